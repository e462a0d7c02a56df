// Package native is the cleartext reference for the encrypted field and group
// arithmetic. It is used to build precomputed tables and to check results.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package native

import "math/big"

// Add returns a + b mod p.
func Add(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, p)
}

// Sub returns a - b mod p.
func Sub(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, p)
}

// Mul returns a * b mod p.
func Mul(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, p)
}

// Square returns a^2 mod p.
func Square(a, p *big.Int) *big.Int { return Mul(a, a, p) }

// Double returns 2a mod p.
func Double(a, p *big.Int) *big.Int { return Add(a, a, p) }

// Inverse returns a^-1 mod p, or zero when a has no inverse.
func Inverse(a, p *big.Int) *big.Int {
	r := new(big.Int).ModInverse(new(big.Int).Mod(a, p), p)
	if r == nil {
		return new(big.Int)
	}
	return r
}

// Pow returns a^e mod p.
func Pow(a, e, p *big.Int) *big.Int {
	return new(big.Int).Exp(a, e, p)
}
