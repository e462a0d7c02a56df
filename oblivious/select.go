// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package oblivious provides branch-free selection over encrypted operands.
// A condition is a single-block ciphertext holding 0 or 1; it is widened to
// the operand width before use.
package oblivious

import (
	"math/big"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
)

var zero = new(big.Int)

// Not returns 1 - cond as a single-block flag.
func Not(eng engine.Engine, cond engine.Ciphertext) (engine.Ciphertext, error) {
	return eng.ScalarEq(cond, zero)
}

// Select returns cond*a + (1-cond)*b.
func Select(eng engine.Engine, cond, a, b engine.Ciphertext) (engine.Ciphertext, error) {
	w := max(a.Blocks(), b.Blocks())
	notCond, err := Not(eng, cond)
	if err != nil {
		return nil, err
	}
	var left, right engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) {
			left, err = eng.Mul(engine.Resize(eng, cond, w), a)
			return err
		},
		func() (err error) {
			right, err = eng.Mul(engine.Resize(eng, notCond, w), b)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return eng.Add(left, right)
}

// SelectZero returns cond*a.
func SelectZero(eng engine.Engine, cond, a engine.Ciphertext) (engine.Ciphertext, error) {
	return eng.Mul(a, engine.Resize(eng, cond, a.Blocks()))
}

// SelectZeroConstant returns cond*k as a ciphertext of the given width.
func SelectZeroConstant(eng engine.Engine, k *big.Int, cond engine.Ciphertext, blocks int) (engine.Ciphertext, error) {
	return eng.ScalarMul(engine.Resize(eng, cond, blocks), k)
}

// AndAll reduces flags with bitwise AND as a parallel tree.
func AndAll(eng engine.Engine, flags []engine.Ciphertext) (engine.Ciphertext, error) {
	return forkjoin.Reduce(flags, eng.BitAnd)
}

// OrAll reduces flags with bitwise OR as a parallel tree.
func OrAll(eng engine.Engine, flags []engine.Ciphertext) (engine.Ciphertext, error) {
	return forkjoin.Reduce(flags, eng.BitOr)
}
