// Package engine defines the primitive operation set of a homomorphic integer
// evaluator. Encrypted integers are radix ciphertexts made of fixed-size
// blocks; every algorithm in this module is written against Engine only.
//
// Width semantics shared by all implementations:
//   - a ciphertext of w blocks holds a value modulo 2^(w*BlockBits());
//   - binary operations accept operands of different widths, zero-extend the
//     narrower one and return a result of the wider width;
//   - comparisons return a single block holding 0 or 1;
//   - Extend and Trim add or drop most significant blocks.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package engine

import (
	"math/big"

	"github.com/cockroachdb/errors"
)

var (
	// ErrForeignCiphertext is returned when a ciphertext produced by another
	// engine implementation is passed in.
	ErrForeignCiphertext = errors.New("engine: foreign ciphertext")
	// ErrWidth is returned for invalid block counts.
	ErrWidth = errors.New("engine: invalid width")
)

// Ciphertext is an encrypted radix integer.
type Ciphertext interface {
	Blocks() int
}

// Engine is the homomorphic evaluator. Implementations must be safe for
// concurrent use; operations never mutate their inputs.
type Engine interface {
	// BlockBits is the message width of one block.
	BlockBits() int

	// Trivial encodes a public value as a ciphertext of the given width.
	Trivial(v *big.Int, blocks int) (Ciphertext, error)
	// Extend appends zero blocks up to the given width. It panics when the
	// width is smaller than the current one or the ciphertext is foreign.
	Extend(ct Ciphertext, blocks int) Ciphertext
	// Trim drops most significant blocks down to the given width. It panics
	// when the width is not in [1, ct.Blocks()] or the ciphertext is foreign.
	Trim(ct Ciphertext, blocks int) Ciphertext

	Add(a, b Ciphertext) (Ciphertext, error)
	Sub(a, b Ciphertext) (Ciphertext, error)
	Mul(a, b Ciphertext) (Ciphertext, error)
	// DivRem returns the quotient and remainder. Division by zero yields an
	// all-ones quotient and the dividend as remainder.
	DivRem(a, b Ciphertext) (q, r Ciphertext, err error)
	BitAnd(a, b Ciphertext) (Ciphertext, error)
	BitOr(a, b Ciphertext) (Ciphertext, error)
	Gt(a, b Ciphertext) (Ciphertext, error)

	ScalarAdd(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarMul(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarBitAnd(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarGe(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarLt(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarEq(a Ciphertext, k *big.Int) (Ciphertext, error)
	ScalarNe(a Ciphertext, k *big.Int) (Ciphertext, error)

	ShiftLeft(a Ciphertext, n int) (Ciphertext, error)
	ShiftRight(a Ciphertext, n int) (Ciphertext, error)
}

// Encrypter produces fresh ciphertexts.
type Encrypter interface {
	Encrypt(v *big.Int, blocks int) (Ciphertext, error)
}

// Decrypter recovers plaintext values.
type Decrypter interface {
	Decrypt(ct Ciphertext) (*big.Int, error)
}

// Codec serializes ciphertexts of one engine implementation.
type Codec interface {
	MarshalCiphertext(ct Ciphertext) ([]byte, error)
	UnmarshalCiphertext(data []byte) (Ciphertext, error)
}

// Resize extends or trims ct to exactly the given width.
func Resize(eng Engine, ct Ciphertext, blocks int) Ciphertext {
	switch {
	case ct.Blocks() < blocks:
		return eng.Extend(ct, blocks)
	case ct.Blocks() > blocks:
		return eng.Trim(ct, blocks)
	default:
		return ct
	}
}

// BlocksFor returns the number of blocks needed to hold a value of the given
// bit length, at least one.
func BlocksFor(eng Engine, bitLen int) int {
	bb := eng.BlockBits()
	n := (bitLen + bb - 1) / bb
	if n < 1 {
		n = 1
	}
	return n
}
