// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ecdsa

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/native"
	"github.com/luxfi/fhe-ecdsa/numeral"
)

// ErrInvalidSignature is returned when a signature fails to decode or verify.
var ErrInvalidSignature = errors.New("ecdsa: invalid signature")

// Signature is a cleartext (r, s) pair.
type Signature struct {
	R, S *big.Int
}

func scalarSize(n numeral.Numeral) int { return (n.Bits() + 7) / 8 }

// Encode returns r || s, each little-endian and as wide as the order n.
func (sig Signature) Encode(n numeral.Numeral) []byte {
	out := numeral.New(sig.R, n.Bits()).BytesLE()
	return append(out, numeral.New(sig.S, n.Bits()).BytesLE()...)
}

// Decode parses the output of Encode.
func Decode(b []byte, n numeral.Numeral) (Signature, error) {
	size := scalarSize(n)
	if len(b) != 2*size {
		return Signature{}, errors.Wrapf(ErrInvalidSignature, "length %d, want %d", len(b), 2*size)
	}
	return Signature{
		R: numeral.FromBytesLE(b[:size], n.Bits()).Big(),
		S: numeral.FromBytesLE(b[size:], n.Bits()).Big(),
	}, nil
}

// Verify checks sig over msg against pub with the native group law:
// x(s^-1*(msg*G + r*pub)) = r mod n.
func Verify(params curve.Params, pub native.Affine, msg *big.Int, sig Signature) error {
	n, p := params.N.Big(), params.P.Big()
	for _, v := range []*big.Int{sig.R, sig.S} {
		if v == nil || v.Sign() <= 0 || v.Cmp(n) >= 0 {
			return errors.Wrap(ErrInvalidSignature, "component out of range")
		}
	}
	w := native.Inverse(sig.S, n)
	u1 := native.Mul(new(big.Int).Mod(msg, n), w, n)
	u2 := native.Mul(sig.R, w, n)
	pt := native.AddProjective(
		native.ScalarMul(native.FromAffine(params.G), u1, p),
		native.ScalarMul(native.FromAffine(pub), u2, p),
		p,
	)
	a, ok := native.IntoAffine(pt, p)
	if !ok {
		return errors.Wrap(ErrInvalidSignature, "verification point is the identity")
	}
	if new(big.Int).Mod(a.X, n).Cmp(sig.R) != 0 {
		return errors.Wrap(ErrInvalidSignature, "r mismatch")
	}
	return nil
}

// VerifySecp256k1 verifies sig with the decred implementation. msg is
// interpreted as a 32-byte big-endian digest.
func VerifySecp256k1(pub native.Affine, msg *big.Int, sig Signature) error {
	var enc [65]byte
	enc[0] = 0x04
	pub.X.FillBytes(enc[1:33])
	pub.Y.FillBytes(enc[33:])
	pk, err := secp256k1.ParsePubKey(enc[:])
	if err != nil {
		return errors.Wrap(err, "parse public key")
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R.Bytes()); overflow || r.IsZero() {
		return errors.Wrap(ErrInvalidSignature, "r out of range")
	}
	if overflow := s.SetByteSlice(sig.S.Bytes()); overflow || s.IsZero() {
		return errors.Wrap(ErrInvalidSignature, "s out of range")
	}
	var digest [32]byte
	msg.FillBytes(digest[:])
	if !decredecdsa.NewSignature(&r, &s).Verify(digest[:], pk) {
		return errors.Wrap(ErrInvalidSignature, "secp256k1")
	}
	return nil
}
