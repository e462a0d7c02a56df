// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"math/big"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
	"github.com/luxfi/fhe-ecdsa/oblivious"
)

// mersennePlan is the public schedule for reducing a value of a given width
// modulo p = 2^k - c.
type mersennePlan struct {
	k     int
	c     *big.Int
	mask  *big.Int
	folds int
	// fit is the width that holds the folded value.
	fit int
	// subs is the number of conditional subtractions of p that bring the
	// folded bound below p.
	subs int
}

func (f *Field) mersennePlan(blocks int) mersennePlan {
	k := f.pBig.BitLen()
	twoK := new(big.Int).Lsh(big.NewInt(1), uint(k))
	plan := mersennePlan{
		k:    k,
		c:    new(big.Int).Sub(twoK, f.pBig),
		mask: new(big.Int).Sub(twoK, big.NewInt(1)),
	}

	bound := new(big.Int).Lsh(big.NewInt(1), uint(blocks*f.eng.BlockBits()))
	bound.Sub(bound, big.NewInt(1))
	for bound.Cmp(twoK) >= 0 {
		next := new(big.Int).Rsh(bound, uint(k))
		next.Mul(next, plan.c)
		next.Add(next, plan.mask)
		if next.Cmp(bound) >= 0 {
			break
		}
		bound = next
		plan.folds++
	}

	plan.fit = max(f.blocks+1, engine.BlocksFor(f.eng, bound.BitLen()))
	if bound.Cmp(f.pBig) >= 0 {
		plan.subs = int(new(big.Int).Quo(bound, f.pBig).Int64())
	}
	return plan
}

// ReduceMersenne reduces x of any width into [0, p). The value is folded as
// hi*c + lo around bit k, where p = 2^k - c, a fixed number of times derived
// from the width of x, then finished with conditional subtractions.
func (f *Field) ReduceMersenne(x engine.Ciphertext) (engine.Ciphertext, error) {
	plan := f.mersennePlan(x.Blocks())
	for i := 0; i < plan.folds; i++ {
		var lo, hi engine.Ciphertext
		err := forkjoin.Join(
			func() (err error) {
				lo, err = f.eng.ScalarBitAnd(x, plan.mask)
				return err
			},
			func() (err error) {
				hi, err = f.eng.ShiftRight(x, plan.k)
				if err != nil {
					return err
				}
				hi, err = f.eng.ScalarMul(hi, plan.c)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		if x, err = f.eng.Add(lo, hi); err != nil {
			return nil, err
		}
	}

	x = f.extend(x, plan.fit)
	for i := 0; i < plan.subs; i++ {
		ge, err := f.eng.ScalarGe(x, f.pBig)
		if err != nil {
			return nil, err
		}
		corr, err := oblivious.SelectZeroConstant(f.eng, f.pBig, ge, x.Blocks())
		if err != nil {
			return nil, err
		}
		if x, err = f.eng.Sub(x, corr); err != nil {
			return nil, err
		}
	}
	return f.extend(x, f.blocks), nil
}
