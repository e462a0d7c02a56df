// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"github.com/cockroachdb/errors"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Encryptor encrypts bits under a secret or a public key.
type Encryptor struct {
	params    Parameters
	encryptor *rlwe.Encryptor
}

// NewEncryptor creates a secret-key encryptor.
func NewEncryptor(params Parameters, sk *SecretKey) *Encryptor {
	return &Encryptor{params: params, encryptor: rlwe.NewEncryptor(params.rlwe, sk.SK)}
}

// NewPublicEncryptor creates an encryptor that needs only the public key.
func NewPublicEncryptor(params Parameters, pk *PublicKey) *Encryptor {
	return &Encryptor{params: params, encryptor: rlwe.NewEncryptor(params.rlwe, pk.PK)}
}

// Encrypt encrypts one bit as +Q/8 (true) or -Q/8 (false).
func (enc *Encryptor) Encrypt(value bool) (*Ciphertext, error) {
	p := enc.params.rlwe
	q := enc.params.Q()
	pt := rlwe.NewPlaintext(p, p.MaxLevel())
	if value {
		pt.Value.Coeffs[0][0] = q / 8
	} else {
		pt.Value.Coeffs[0][0] = q - q/8
	}
	p.RingQ().NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(p, 1, p.MaxLevel())
	if err := enc.encryptor.Encrypt(pt, ct); err != nil {
		return nil, errors.Wrap(err, "encrypt bit")
	}
	return &Ciphertext{ct}, nil
}
