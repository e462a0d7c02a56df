// Package fhe implements the gate-bootstrapping FHE scheme that backs the
// encrypted radix engine.
//
// A bit is an RLWE sample whose constant coefficient encodes true as +Q/8 and
// false as -Q/8. Every binary gate adds its inputs and bootstraps the sum
// through a test polynomial, so noise is reset after each gate. Integers are
// vectors of such bits grouped into 2-bit radix blocks (see RadixEngine).
//
// This implementation is built on luxfi/lattice primitives:
//   - RLWE encryption for bits
//   - RGSW blind-rotation keys for programmable bootstrapping
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package fhe

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
	"github.com/luxfi/lattice/v7/utils"
)

// ErrUnknownParameters is returned by ParametersByName for an unknown set.
var ErrUnknownParameters = errors.New("fhe: unknown parameter set")

// Parameters defines the scheme parameters. Samples and blind rotation share
// one ring, so bootstrapped outputs need no key or modulus switch.
type Parameters struct {
	rlwe      rlwe.Parameters
	evkParams rlwe.EvaluationKeyParameters
}

// ParametersLiteral is a user-facing parameter description.
type ParametersLiteral struct {
	// LogN is log2 of the ring dimension.
	LogN int
	// Q is the ciphertext modulus, NTT-friendly for 2^LogN.
	Q uint64
	// BaseTwoDecomposition is the gadget base of the blind-rotation keys.
	BaseTwoDecomposition int
}

// Standard parameter sets.
var (
	// PN10QP27: N=1024, Q=134215681.
	PN10QP27 = ParametersLiteral{
		LogN:                 10,
		Q:                    0x7fff801,
		BaseTwoDecomposition: 7,
	}

	// PN11QP54: N=2048, Q~2^54, higher precision and slower gates.
	PN11QP54 = ParametersLiteral{
		LogN:                 11,
		Q:                    0x3FFFFFFFFFC0001,
		BaseTwoDecomposition: 10,
	}
)

// ParametersByName resolves a named parameter set.
func ParametersByName(name string) (ParametersLiteral, error) {
	switch strings.ToUpper(name) {
	case "PN10QP27", "":
		return PN10QP27, nil
	case "PN11QP54":
		return PN11QP54, nil
	}
	return ParametersLiteral{}, errors.Wrapf(ErrUnknownParameters, "%q", name)
}

// NewParametersFromLiteral creates Parameters from a literal.
func NewParametersFromLiteral(lit ParametersLiteral) (Parameters, error) {
	p, err := rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogN,
		Q:       []uint64{lit.Q},
		NTTFlag: true,
	})
	if err != nil {
		return Parameters{}, errors.Wrap(err, "rlwe parameters")
	}
	return Parameters{
		rlwe: p,
		evkParams: rlwe.EvaluationKeyParameters{
			BaseTwoDecomposition: utils.Pointy(lit.BaseTwoDecomposition),
		},
	}, nil
}

// N returns the ring dimension.
func (p Parameters) N() int { return p.rlwe.N() }

// Q returns the ciphertext modulus.
func (p Parameters) Q() uint64 { return p.rlwe.Q()[0] }

// SecretKey is the RLWE secret key.
type SecretKey struct {
	SK *rlwe.SecretKey
}

// PublicKey lets data owners encrypt without the secret key.
type PublicKey struct {
	PK *rlwe.PublicKey
}

// BootstrapKey holds the blind-rotation keys and the gate test polynomials.
// It is shared read-only by all evaluators.
type BootstrapKey struct {
	BRK blindrot.BlindRotationEvaluationKeySet

	TestPolyAND      *ring.Poly
	TestPolyOR       *ring.Poly
	TestPolyXOR      *ring.Poly
	TestPolyXNOR     *ring.Poly
	TestPolyMAJORITY *ring.Poly
}

// Ciphertext is one encrypted bit.
type Ciphertext struct {
	*rlwe.Ciphertext
}

// KeyGenerator generates keys for one parameter set.
type KeyGenerator struct {
	params Parameters
	kgen   *rlwe.KeyGenerator
	ringQ  *ring.Ring
}

// NewKeyGenerator creates a key generator.
func NewKeyGenerator(params Parameters) *KeyGenerator {
	return &KeyGenerator{
		params: params,
		kgen:   rlwe.NewKeyGenerator(params.rlwe),
		ringQ:  params.rlwe.RingQ(),
	}
}

// GenSecretKey generates a secret key.
func (kg *KeyGenerator) GenSecretKey() *SecretKey {
	return &SecretKey{SK: kg.kgen.GenSecretKeyNew()}
}

// GenPublicKey derives a public key from sk.
func (kg *KeyGenerator) GenPublicKey(sk *SecretKey) *PublicKey {
	return &PublicKey{PK: kg.kgen.GenPublicKeyNew(sk.SK)}
}

// GenKeyPair generates a secret key and its public key.
func (kg *KeyGenerator) GenKeyPair() (*SecretKey, *PublicKey) {
	sk := kg.GenSecretKey()
	return sk, kg.GenPublicKey(sk)
}

// threshold returns a test polynomial mapping the normalized phase x to +1
// when pred(x) holds and to -1 otherwise.
func (kg *KeyGenerator) threshold(pred func(x float64) bool) *ring.Poly {
	scale := rlwe.NewScale(float64(kg.params.Q()) / 8.0)
	poly := blindrot.InitTestPolynomial(func(x float64) float64 {
		if pred(x) {
			return 1.0
		}
		return -1.0
	}, scale, kg.ringQ, -1, 1)
	return &poly
}

// GenBootstrapKey generates the blind-rotation keys and gate polynomials.
//
// With the Q/8 encoding a sum of two bits lands at -0.25 (F,F), 0 (T,F) or
// +0.25 (T,T). XOR and XNOR double the sum first so that (T,T) wraps to -0.5
// next to (F,F). Three-input sums land at -0.375, -0.125, 0.125 or 0.375.
func (kg *KeyGenerator) GenBootstrapKey(sk *SecretKey) *BootstrapKey {
	p := kg.params.rlwe
	return &BootstrapKey{
		BRK:              blindrot.GenEvaluationKeyNew(p, sk.SK, p, sk.SK, kg.params.evkParams),
		TestPolyAND:      kg.threshold(func(x float64) bool { return x >= 0.25 }),
		TestPolyOR:       kg.threshold(func(x float64) bool { return x > -0.25 }),
		TestPolyXOR:      kg.threshold(func(x float64) bool { return x > -0.30 && x < 0.30 }),
		TestPolyXNOR:     kg.threshold(func(x float64) bool { return x <= -0.30 || x >= 0.30 }),
		TestPolyMAJORITY: kg.threshold(func(x float64) bool { return x > 0 }),
	}
}
