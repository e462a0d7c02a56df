// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
	"github.com/luxfi/fhe-ecdsa/oblivious"
)

// inversePlan is the public schedule of the extended Euclidean loop.
type inversePlan struct {
	padded int
	iters  int
	// widths[i] is the width of the remainder pair after iteration i.
	widths []int
}

// lameBound returns the largest n with F(n+2) <= p, the maximum number of
// division steps of Euclid's algorithm on operands not exceeding p.
func lameBound(p *big.Int) int {
	a, b := big.NewInt(1), big.NewInt(1) // F(1), F(2)
	m := 2
	for {
		next := new(big.Int).Add(a, b)
		if next.Cmp(p) > 0 {
			return m - 2
		}
		a, b = b, next
		m++
	}
}

func newInversePlan(p *big.Int, blocks, blockBits int) inversePlan {
	plan := inversePlan{
		padded: blocks + 1,
		iters:  max(p.BitLen()+1, lameBound(p)),
	}

	// bounds[j] is the largest value the j-th remainder can take.
	one := big.NewInt(1)
	bounds := make([]*big.Int, plan.iters+2)
	bounds[0] = new(big.Int).Set(p)
	bounds[1] = new(big.Int).Sub(p, one)
	for j := 2; j < len(bounds); j++ {
		a := new(big.Int).Sub(bounds[j-1], one)
		b := new(big.Int).Sub(bounds[j-2], one)
		b.Rsh(b, 1)
		if b.Cmp(a) < 0 {
			a = b
		}
		if a.Sign() < 0 {
			a.SetInt64(0)
		}
		bounds[j] = a
	}

	plan.widths = make([]int, plan.iters)
	w := plan.padded
	for i := range plan.widths {
		need := max(1, (bounds[i+1].BitLen()+blockBits-1)/blockBits)
		w = min(w, need)
		plan.widths[i] = w
	}
	return plan
}

// Iterations returns the fixed number of Euclidean steps Inverse performs.
func (f *Field) Iterations() int { return f.inv.iters }

// Inverse returns a^-1 mod p for 0 < a < p using a fixed-iteration extended
// Euclidean algorithm. The Bezout coefficient is latched into an accumulator
// on the step where the remainder first reaches zero; later steps run on
// and are masked out.
func (f *Field) Inverse(a engine.Ciphertext) (engine.Ciphertext, error) {
	defer f.observe("inverse_mod", time.Now())
	eng, plan := f.eng, f.inv

	r0, err := eng.Trivial(f.pBig, plan.padded)
	if err != nil {
		return nil, err
	}
	t0, err := eng.Trivial(new(big.Int), plan.padded)
	if err != nil {
		return nil, err
	}
	t1, err := eng.Trivial(big.NewInt(1), plan.padded)
	if err != nil {
		return nil, err
	}
	inv, err := eng.Trivial(new(big.Int), plan.padded)
	if err != nil {
		return nil, err
	}
	wasDone, err := eng.Trivial(new(big.Int), 1)
	if err != nil {
		return nil, err
	}
	r1 := f.extend(a, plan.padded)

	for i := 0; i < plan.iters; i++ {
		start := time.Now()
		q, r, err := eng.DivRem(r0, r1)
		if err != nil {
			return nil, err
		}
		q = f.extend(q, plan.padded)

		var nextT1, doneNow, nextWasDone engine.Ciphertext
		err = forkjoin.Join(
			func() error {
				prod, err := eng.Mul(t1, q)
				if err != nil {
					return err
				}
				nextT1, err = eng.Sub(t0, prod)
				return err
			},
			func() error {
				done, err := eng.ScalarEq(r, new(big.Int))
				if err != nil {
					return err
				}
				notWas, err := oblivious.Not(eng, wasDone)
				if err != nil {
					return err
				}
				if doneNow, err = eng.BitAnd(done, notWas); err != nil {
					return err
				}
				nextWasDone, err = eng.BitOr(wasDone, done)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		t0, t1, wasDone = t1, nextT1, nextWasDone

		latched, err := oblivious.SelectZero(eng, doneNow, t0)
		if err != nil {
			return nil, err
		}
		if inv, err = eng.Add(inv, latched); err != nil {
			return nil, err
		}

		w := plan.widths[i]
		r0, r1 = f.extend(r1, w), f.extend(r, w)
		f.log.Debug("inverse step",
			zap.Int("step", i),
			zap.Int("width", w),
			zap.Duration("elapsed", time.Since(start)))
	}

	// The coefficient lies in (-p, p) and wraps when negative.
	inv, err = eng.ScalarAdd(inv, f.pBig)
	if err != nil {
		return nil, err
	}
	return f.ReduceFast(inv)
}

// Inverses returns the inverses of all values with a single Inverse call.
// The total product is built as a parallel tree; each output multiplies the
// product of the other inputs by the inverted total.
func (f *Field) Inverses(values []engine.Ciphertext) ([]engine.Ciphertext, error) {
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		inv, err := f.Inverse(values[0])
		if err != nil {
			return nil, err
		}
		return []engine.Ciphertext{inv}, nil
	}

	total, err := forkjoin.Reduce(values, f.Mul)
	if err != nil {
		return nil, err
	}
	totalInv, err := f.Inverse(total)
	if err != nil {
		return nil, err
	}
	return forkjoin.Map(values, func(i int, _ engine.Ciphertext) (engine.Ciphertext, error) {
		others := make([]engine.Ciphertext, 0, len(values)-1)
		others = append(others, values[:i]...)
		others = append(others, values[i+1:]...)
		prod, err := forkjoin.Reduce(others, f.Mul)
		if err != nil {
			return nil, err
		}
		return f.Mul(prod, totalInv)
	})
}
