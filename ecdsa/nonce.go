// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ecdsa

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/numeral"
)

// ErrNonceRange is returned when no candidate in [1, n) was drawn within
// maxNonceAttempts.
var ErrNonceRange = errors.New("ecdsa: nonce out of range")

// Each candidate is masked to the bit length of n, so at least half of them
// are accepted.
const maxNonceAttempts = 128

// NonceSource draws nonces in [1, n) from a SHA-256 counter generator. It is
// deterministic in its seed and runs on the key owner's side, who encrypts
// the result before handing it to a signer.
type NonceSource struct {
	n numeral.Numeral

	mu      sync.Mutex
	state   [32]byte
	counter uint64
}

// NewNonceSource seeds a generator for the order n.
func NewNonceSource(n numeral.Numeral, seed []byte) *NonceSource {
	return &NonceSource{n: n, state: sha256.Sum256(seed)}
}

// advance hashes state || counter into the next state.
func (ns *NonceSource) advance() [32]byte {
	var data [40]byte
	copy(data[:32], ns.state[:])
	binary.LittleEndian.PutUint64(data[32:], ns.counter)
	ns.counter++
	ns.state = sha256.Sum256(data[:])
	return ns.state
}

// Next returns the next nonce.
func (ns *NonceSource) Next() (*big.Int, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	n := ns.n.Big()
	bits := n.BitLen()
	size := (bits + 7) / 8
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		var buf []byte
		for len(buf) < size {
			block := ns.advance()
			buf = append(buf, block[:]...)
		}
		v := numeral.FromBytesLE(buf[:size], size*8).Big()
		v.And(v, mask)
		if v.Sign() > 0 && v.Cmp(n) < 0 {
			return v, nil
		}
	}
	return nil, errors.Wrapf(ErrNonceRange, "after %d candidates", maxNonceAttempts)
}

// NextEncrypted draws a nonce and encrypts it at the given width.
func (ns *NonceSource) NextEncrypted(enc engine.Encrypter, blocks int) (engine.Ciphertext, error) {
	k, err := ns.Next()
	if err != nil {
		return nil, err
	}
	return enc.Encrypt(k, blocks)
}

// Counter returns the number of generator steps taken so far.
func (ns *NonceSource) Counter() uint64 {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.counter
}

// Reseed restarts the generator from a new seed.
func (ns *NonceSource) Reseed(seed []byte) {
	ns.mu.Lock()
	ns.state = sha256.Sum256(seed)
	ns.counter = 0
	ns.mu.Unlock()
}
