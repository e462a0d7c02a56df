// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// Decryptor decrypts bits.
type Decryptor struct {
	params    Parameters
	decryptor *rlwe.Decryptor
	ringQ     *ring.Ring
}

// NewDecryptor creates a decryptor from the secret key.
func NewDecryptor(params Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{
		params:    params,
		decryptor: rlwe.NewDecryptor(params.rlwe, sk.SK),
		ringQ:     params.rlwe.RingQ(),
	}
}

// Decrypt returns the bit held by ct: a constant coefficient in [0, Q/2)
// decodes to true.
func (dec *Decryptor) Decrypt(ct *Ciphertext) bool {
	pt := rlwe.NewPlaintext(dec.params.rlwe, ct.Level())
	dec.decryptor.Decrypt(ct.Ciphertext, pt)
	if pt.IsNTT {
		dec.ringQ.INTT(pt.Value, pt.Value)
	}
	return pt.Value.Coeffs[0][0] < dec.params.Q()>>1
}
