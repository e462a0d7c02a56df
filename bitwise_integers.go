// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// This file implements unsigned integer circuits over vectors of encrypted
// bits, built only from the bootstrapped gates of Evaluator. Widths are
// arbitrary; results wrap modulo 2^len. Gates that do not depend on each
// other run concurrently.

package fhe

import (
	"math/big"

	"github.com/cockroachdb/errors"

	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
)

// bitVec is an encrypted unsigned integer, least significant bit first.
type bitVec []*Ciphertext

// circuits evaluates integer circuits with one gate evaluator.
type circuits struct {
	eval *Evaluator
}

func (c *circuits) constant(k *big.Int, n int) bitVec {
	out := make(bitVec, n)
	for i := range out {
		out[i] = c.eval.Constant(k.Bit(i) == 1)
	}
	return out
}

func (c *circuits) zeros(n int) bitVec {
	return c.constant(new(big.Int), n)
}

// each evaluates fn for every bit position concurrently.
func (c *circuits) each(n int, fn func(i int) (*Ciphertext, error)) (bitVec, error) {
	return forkjoin.Map(make([]struct{}, n), func(i int, _ struct{}) (*Ciphertext, error) {
		return fn(i)
	})
}

func (c *circuits) not(a bitVec) bitVec {
	out := make(bitVec, len(a))
	for i, b := range a {
		out[i] = c.eval.NOT(b)
	}
	return out
}

func (c *circuits) and(a, b bitVec) (bitVec, error) {
	return c.each(len(a), func(i int) (*Ciphertext, error) { return c.eval.AND(a[i], b[i]) })
}

func (c *circuits) or(a, b bitVec) (bitVec, error) {
	return c.each(len(a), func(i int) (*Ciphertext, error) { return c.eval.OR(a[i], b[i]) })
}

// andBit masks every bit of a with bit.
func (c *circuits) andBit(a bitVec, bit *Ciphertext) (bitVec, error) {
	return c.each(len(a), func(i int) (*Ciphertext, error) { return c.eval.AND(a[i], bit) })
}

// mux returns a where sel is 1 and b otherwise.
func (c *circuits) mux(sel *Ciphertext, a, b bitVec) (bitVec, error) {
	return c.each(len(a), func(i int) (*Ciphertext, error) { return c.eval.MUX(sel, a[i], b[i]) })
}

// addCarry is a ripple-carry adder: it returns a + b + carry modulo 2^len
// and the carry out. The per-bit XORs are computed up front; along the chain
// the sum bit and the next carry are evaluated concurrently.
func (c *circuits) addCarry(a, b bitVec, carry *Ciphertext) (bitVec, *Ciphertext, error) {
	if len(a) != len(b) {
		return nil, nil, errors.Newf("fhe: adder width mismatch %d vs %d", len(a), len(b))
	}
	half, err := c.each(len(a), func(i int) (*Ciphertext, error) { return c.eval.XOR(a[i], b[i]) })
	if err != nil {
		return nil, nil, err
	}
	sum := make(bitVec, len(a))
	for i := range a {
		cin := carry
		err := forkjoin.Join(
			func() (err error) { sum[i], err = c.eval.XOR(half[i], cin); return },
			func() (err error) { carry, err = c.eval.MAJORITY(a[i], b[i], cin); return },
		)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "adder bit %d", i)
		}
	}
	return sum, carry, nil
}

func (c *circuits) add(a, b bitVec) (bitVec, error) {
	sum, _, err := c.addCarry(a, b, c.eval.Constant(false))
	return sum, err
}

// sub returns a - b modulo 2^len and a bit that is 1 when a >= b.
func (c *circuits) sub(a, b bitVec) (bitVec, *Ciphertext, error) {
	return c.addCarry(a, c.not(b), c.eval.Constant(true))
}

// ge returns a >= b as the carry chain of a + ^b + 1.
func (c *circuits) ge(a, b bitVec) (*Ciphertext, error) {
	carry := c.eval.Constant(true)
	for i := range a {
		var err error
		if carry, err = c.eval.MAJORITY(a[i], c.eval.NOT(b[i]), carry); err != nil {
			return nil, errors.Wrapf(err, "compare bit %d", i)
		}
	}
	return carry, nil
}

// geConst returns a >= k. With a public k each carry step reduces to a
// single AND or OR.
func (c *circuits) geConst(a bitVec, k *big.Int) (*Ciphertext, error) {
	if k.BitLen() > len(a) {
		return c.eval.Constant(false), nil
	}
	carry := c.eval.Constant(true)
	for i := range a {
		var err error
		if k.Bit(i) == 1 {
			carry, err = c.eval.AND(a[i], carry)
		} else {
			carry, err = c.eval.OR(a[i], carry)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "compare bit %d", i)
		}
	}
	return carry, nil
}

// allOf reduces bits with AND as a parallel tree.
func (c *circuits) allOf(a bitVec) (*Ciphertext, error) {
	return forkjoin.Reduce([]*Ciphertext(a), c.eval.AND)
}

// eqConst returns a == k. Matching a bit against a public bit is free.
func (c *circuits) eqConst(a bitVec, k *big.Int) (*Ciphertext, error) {
	if k.BitLen() > len(a) {
		return c.eval.Constant(false), nil
	}
	match := make(bitVec, len(a))
	for i := range a {
		if k.Bit(i) == 1 {
			match[i] = a[i]
		} else {
			match[i] = c.eval.NOT(a[i])
		}
	}
	return c.allOf(match)
}

// mul returns a * b modulo 2^len by shift-and-add. Partial products only
// cover the bits that survive truncation.
func (c *circuits) mul(a, b bitVec) (bitVec, error) {
	n := len(a)
	acc, err := c.andBit(a, b[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		partial, err := c.andBit(a[:n-i], b[i])
		if err != nil {
			return nil, err
		}
		high, err := c.add(acc[i:], partial)
		if err != nil {
			return nil, errors.Wrapf(err, "partial product %d", i)
		}
		acc = append(acc[:i:i], high...)
	}
	return acc, nil
}

// mulConst returns a * k modulo 2^len as a tree sum of shifted copies of a.
func (c *circuits) mulConst(a bitVec, k *big.Int) (bitVec, error) {
	var terms []bitVec
	for i := 0; i < len(a); i++ {
		if k.Bit(i) == 1 {
			terms = append(terms, c.shiftLeft(a, i))
		}
	}
	if len(terms) == 0 {
		return c.zeros(len(a)), nil
	}
	return forkjoin.Reduce(terms, c.add)
}

// divRem is restoring long division. The partial remainder carries one
// extra bit so that the shift never overflows. A zero divisor never
// borrows, which yields an all-ones quotient and the dividend as remainder.
func (c *circuits) divRem(a, b bitVec) (q, r bitVec, err error) {
	n := len(a)
	divisor := append(append(bitVec{}, b...), c.eval.Constant(false))
	rem := c.zeros(n + 1)
	q = make(bitVec, n)
	for i := n - 1; i >= 0; i-- {
		rem = append(bitVec{a[i]}, rem[:n]...)
		diff, noBorrow, err := c.sub(rem, divisor)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "division step %d", i)
		}
		q[i] = noBorrow
		if rem, err = c.mux(noBorrow, diff, rem); err != nil {
			return nil, nil, err
		}
	}
	return q, rem[:n], nil
}

// shiftLeft returns a << s, keeping the width.
func (c *circuits) shiftLeft(a bitVec, s int) bitVec {
	out := make(bitVec, len(a))
	for i := range out {
		if i < s {
			out[i] = c.eval.Constant(false)
		} else {
			out[i] = a[i-s]
		}
	}
	return out
}

// shiftRight returns a >> s, keeping the width.
func (c *circuits) shiftRight(a bitVec, s int) bitVec {
	out := make(bitVec, len(a))
	for i := range out {
		if i+s < len(a) {
			out[i] = a[i+s]
		} else {
			out[i] = c.eval.Constant(false)
		}
	}
	return out
}
