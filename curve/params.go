// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package curve

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/luxfi/fhe-ecdsa/native"
	"github.com/luxfi/fhe-ecdsa/numeral"
)

var (
	// ErrUnknownCurve is returned by ByName for an unregistered curve.
	ErrUnknownCurve = errors.New("curve: unknown curve")
	// ErrNotOnCurve is returned when a generator does not satisfy the curve
	// equation.
	ErrNotOnCurve = errors.New("curve: point not on curve")
)

// Params describes a short Weierstrass curve y^2 = x^3 + B over F_P with a
// generator G of prime order N.
type Params struct {
	Name string
	P    numeral.Numeral
	N    numeral.Numeral
	B    *big.Int
	G    native.Affine
	// Blocks is the radix width for 2-bit blocks that holds both P and N.
	Blocks int
}

// Toy211 is y^2 = x^3 + 7 over F_211 with G = (4, 156) of order 199.
func Toy211() Params {
	return Params{
		Name:   "toy211",
		P:      numeral.Of(uint8(211)),
		N:      numeral.Of(uint8(199)),
		B:      big.NewInt(7),
		G:      native.Affine{X: big.NewInt(4), Y: big.NewInt(156)},
		Blocks: 4,
	}
}

// Secp256k1 returns the parameters of secp256k1.
func Secp256k1() Params {
	cp := secp256k1.S256().Params()
	return Params{
		Name:   "secp256k1",
		P:      numeral.U256(cp.P),
		N:      numeral.U256(cp.N),
		B:      new(big.Int).Set(cp.B),
		G:      native.Affine{X: new(big.Int).Set(cp.Gx), Y: new(big.Int).Set(cp.Gy)},
		Blocks: 128,
	}
}

// ByName returns a registered curve.
func ByName(name string) (Params, error) {
	switch strings.ToLower(name) {
	case "toy211", "toy":
		return Toy211(), nil
	case "secp256k1":
		return Secp256k1(), nil
	}
	return Params{}, errors.Wrapf(ErrUnknownCurve, "%q", name)
}

// Validate checks that G lies on the curve.
func (p Params) Validate() error {
	if !native.OnCurve(p.G, p.B, p.P.Big()) {
		return errors.Wrapf(ErrNotOnCurve, "%s generator", p.Name)
	}
	return nil
}

// PublicKey returns sk*G in affine form.
func (p Params) PublicKey(sk *big.Int) (native.Affine, bool) {
	pt := native.ScalarMul(native.FromAffine(p.G), sk, p.P.Big())
	return native.IntoAffine(pt, p.P.Big())
}
