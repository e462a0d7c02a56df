// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"math/big"
	"time"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
	"github.com/luxfi/fhe-ecdsa/oblivious"
)

// ReduceFast reduces x < 2p into [0, p) with one conditional subtraction and
// trims the result to Blocks().
func (f *Field) ReduceFast(x engine.Ciphertext) (engine.Ciphertext, error) {
	ge, err := f.eng.ScalarGe(x, f.pBig)
	if err != nil {
		return nil, err
	}
	corr, err := oblivious.SelectZeroConstant(f.eng, f.pBig, ge, x.Blocks())
	if err != nil {
		return nil, err
	}
	r, err := f.eng.Sub(x, corr)
	if err != nil {
		return nil, err
	}
	return f.extend(r, f.blocks), nil
}

// ReduceDivRem reduces x of any width into [0, p) by division.
func (f *Field) ReduceDivRem(x engine.Ciphertext) (engine.Ciphertext, error) {
	p, err := f.eng.Trivial(f.pBig, x.Blocks())
	if err != nil {
		return nil, err
	}
	_, r, err := f.eng.DivRem(x, p)
	if err != nil {
		return nil, err
	}
	return f.extend(r, f.blocks), nil
}

// Add returns a + b mod p.
func (f *Field) Add(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("add_mod", time.Now())
	s, err := f.eng.Add(f.extend(a, f.blocks+1), b)
	if err != nil {
		return nil, err
	}
	return f.ReduceFast(s)
}

// Sub returns a - b mod p.
func (f *Field) Sub(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("sub_mod", time.Now())
	gt, err := f.eng.Gt(b, a)
	if err != nil {
		return nil, err
	}
	corr, err := oblivious.SelectZeroConstant(f.eng, f.pBig, gt, f.blocks+1)
	if err != nil {
		return nil, err
	}
	t, err := f.eng.Add(f.extend(a, f.blocks+1), corr)
	if err != nil {
		return nil, err
	}
	t, err = f.eng.Sub(t, b)
	if err != nil {
		return nil, err
	}
	return f.extend(t, f.blocks), nil
}

// Double returns 2a mod p.
func (f *Field) Double(a engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("double_mod", time.Now())
	d, err := f.eng.ShiftLeft(f.extend(a, f.blocks+1), 1)
	if err != nil {
		return nil, err
	}
	return f.ReduceFast(d)
}

// Mul returns a * b mod p.
func (f *Field) Mul(a, b engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("mul_mod", time.Now())
	prod, err := f.eng.Mul(f.extend(a, 2*f.blocks), f.extend(b, 2*f.blocks))
	if err != nil {
		return nil, err
	}
	return f.ReduceMersenne(prod)
}

// Square returns a^2 mod p.
func (f *Field) Square(a engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("square_mod", time.Now())
	wide := f.extend(a, 2*f.blocks)
	prod, err := f.eng.Mul(wide, wide)
	if err != nil {
		return nil, err
	}
	return f.ReduceMersenne(prod)
}

// MulConstant returns a * k mod p for a public k.
func (f *Field) MulConstant(a engine.Ciphertext, k *big.Int) (engine.Ciphertext, error) {
	defer f.observe("mul_mod_constant", time.Now())
	prod, err := f.eng.ScalarMul(f.extend(a, 2*f.blocks), new(big.Int).Mod(k, f.pBig))
	if err != nil {
		return nil, err
	}
	return f.ReduceMersenne(prod)
}

// Pow returns a^e mod p. The exponent is scanned for Modulus().Bits()
// iterations, so e must fit the modulus numeral width.
func (f *Field) Pow(a, e engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("pow_mod", time.Now())
	one, err := f.One()
	if err != nil {
		return nil, err
	}
	res, base, exp := one, a, e
	for i := 0; i < f.p.Bits(); i++ {
		bit, err := f.eng.ScalarBitAnd(exp, big.NewInt(1))
		if err != nil {
			return nil, err
		}
		tmp, err := oblivious.Select(f.eng, f.eng.Trim(bit, 1), base, one)
		if err != nil {
			return nil, err
		}
		err = forkjoin.Join(
			func() (err error) {
				res, err = f.Mul(res, tmp)
				return err
			},
			func() (err error) {
				exp, err = f.eng.ShiftRight(exp, 1)
				return err
			},
			func() (err error) {
				base, err = f.Square(base)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
