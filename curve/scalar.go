// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package curve

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
	"github.com/luxfi/fhe-ecdsa/native"
	"github.com/luxfi/fhe-ecdsa/oblivious"
)

// MaxWindow bounds the window size of ScalarMulConstantWindowed; a window of
// w bits selects among 2^w - 1 precomputed points.
const MaxWindow = 12

// ErrWindow is returned for a window size outside [1, MaxWindow].
var ErrWindow = errors.New("curve: invalid window size")

var one = big.NewInt(1)

// ScalarBits is the number of scalar bits every multiplication scans.
func (g *Group) ScalarBits() int { return g.scalarBits }

// lowBit returns k & 1 as a single block together with k >> 1.
func (g *Group) lowBit(k engine.Ciphertext) (bit, rest engine.Ciphertext, err error) {
	err = forkjoin.Join(
		func() (err error) {
			bit, err = g.eng.ScalarBitAnd(k, one)
			if err == nil {
				bit = g.eng.Trim(bit, 1)
			}
			return err
		},
		func() (err error) { rest, err = g.eng.ShiftRight(k, 1); return },
	)
	return bit, rest, err
}

// ScalarMul returns k*pt by double-and-add over ScalarBits() bits. The
// running sum and the doubled base advance concurrently.
func (g *Group) ScalarMul(pt Point, k engine.Ciphertext) (Point, error) {
	res, err := g.Identity()
	if err != nil {
		return Point{}, err
	}
	tmp := pt
	for i := 0; i < g.ScalarBits(); i++ {
		var bit engine.Ciphertext
		if bit, k, err = g.lowBit(k); err != nil {
			return Point{}, err
		}
		cur := tmp
		err = forkjoin.Join(
			func() error {
				var add Point
				err := forkjoin.Join(
					func() (err error) { add.X, err = oblivious.SelectZero(g.eng, bit, cur.X); return },
					func() (err error) { add.Y, err = oblivious.SelectZero(g.eng, bit, cur.Y); return },
					func() (err error) { add.Z, err = oblivious.SelectZero(g.eng, bit, cur.Z); return },
				)
				if err != nil {
					return err
				}
				res, err = g.AddProjective(res, add)
				return err
			},
			func() (err error) { tmp, err = g.Double(cur); return },
		)
		if err != nil {
			return Point{}, err
		}
	}
	return res, nil
}

// ScalarMulConstant returns k*base for a public base point, one mixed
// addition per scalar bit. The base is doubled in the clear.
func (g *Group) ScalarMulConstant(base native.Affine, k engine.Ciphertext) (Point, error) {
	p := g.f.Modulus().Big()
	res, err := g.Identity()
	if err != nil {
		return Point{}, err
	}
	tmp := base
	for i := 0; i < g.ScalarBits(); i++ {
		var bit engine.Ciphertext
		if bit, k, err = g.lowBit(k); err != nil {
			return Point{}, err
		}
		var x, y engine.Ciphertext
		err = forkjoin.Join(
			func() (err error) {
				x, err = oblivious.SelectZeroConstant(g.eng, tmp.X, bit, g.f.Blocks())
				return err
			},
			func() (err error) {
				y, err = oblivious.SelectZeroConstant(g.eng, tmp.Y, bit, g.f.Blocks())
				return err
			},
		)
		if err != nil {
			return Point{}, err
		}
		if res, err = g.AddMixed(res, x, y, bit); err != nil {
			return Point{}, err
		}
		var ok bool
		if tmp, ok = native.IntoAffine(native.DoublePoint(native.FromAffine(tmp), p), p); !ok {
			// 2^i*base is the identity only if the order of base is a power of two.
			return Point{}, errors.AssertionFailedf("curve: 2^%d*base is the identity", i+1)
		}
	}
	return res, nil
}

// ScalarMulConstantWindowed returns k*base, consuming w scalar bits per step.
// Each step selects one of 2^w - 1 precomputed multiples with an AND-reduced
// mask per entry, sums the masked entries (at most one is non-zero) and adds
// the result with one mixed addition. The last window may be shorter.
func (g *Group) ScalarMulConstantWindowed(base native.Affine, k engine.Ciphertext, w int) (Point, error) {
	if w < 1 || w > MaxWindow {
		return Point{}, errors.Wrapf(ErrWindow, "%d", w)
	}
	eng, p, blocks := g.eng, g.f.Modulus().Big(), g.f.Blocks()
	res, err := g.Identity()
	if err != nil {
		return Point{}, err
	}
	tmp := base
	total := g.ScalarBits()
	for i := 0; i < total; {
		chunk := min(w, total-i)
		start := time.Now()

		type flagPair struct{ bit, not engine.Ciphertext }
		flags, err := forkjoin.Map(make([]struct{}, chunk), func(j int, _ struct{}) (flagPair, error) {
			shifted, err := eng.ShiftRight(k, j)
			if err != nil {
				return flagPair{}, err
			}
			bit, err := eng.ScalarBitAnd(shifted, one)
			if err != nil {
				return flagPair{}, err
			}
			bit = eng.Trim(bit, 1)
			not, err := oblivious.Not(eng, bit)
			if err != nil {
				return flagPair{}, err
			}
			return flagPair{bit: bit, not: not}, nil
		})
		if err != nil {
			return Point{}, err
		}
		if k, err = eng.ShiftRight(k, chunk); err != nil {
			return Point{}, err
		}

		var table []native.Affine
		table, tmp = native.Multiples(tmp, 1<<chunk-1, p)

		type masked struct{ x, y engine.Ciphertext }
		entries, err := forkjoin.Map(table, func(idx int, pt native.Affine) (masked, error) {
			sel := make([]engine.Ciphertext, chunk)
			for j := range sel {
				if (idx+1)>>j&1 == 1 {
					sel[j] = flags[j].bit
				} else {
					sel[j] = flags[j].not
				}
			}
			mask, err := oblivious.AndAll(eng, sel)
			if err != nil {
				return masked{}, err
			}
			var m masked
			err = forkjoin.Join(
				func() (err error) { m.x, err = oblivious.SelectZeroConstant(eng, pt.X, mask, blocks); return },
				func() (err error) { m.y, err = oblivious.SelectZeroConstant(eng, pt.Y, mask, blocks); return },
			)
			return m, err
		})
		if err != nil {
			return Point{}, err
		}

		var selected masked
		var present engine.Ciphertext
		err = forkjoin.Join(
			func() (err error) {
				selected, err = forkjoin.Reduce(entries, func(a, b masked) (masked, error) {
					var out masked
					err := forkjoin.Join(
						func() (err error) { out.x, err = eng.Add(a.x, b.x); return },
						func() (err error) { out.y, err = eng.Add(a.y, b.y); return },
					)
					return out, err
				})
				return err
			},
			func() (err error) {
				bits := make([]engine.Ciphertext, chunk)
				for j := range bits {
					bits[j] = flags[j].bit
				}
				present, err = oblivious.OrAll(eng, bits)
				return err
			},
		)
		if err != nil {
			return Point{}, err
		}

		if res, err = g.AddMixed(res, selected.x, selected.y, present); err != nil {
			return Point{}, err
		}
		g.log.Debug("scalar mul window",
			zap.Int("from", i),
			zap.Int("bits", chunk),
			zap.Int("points", len(table)),
			zap.Duration("elapsed", time.Since(start)))
		i += chunk
	}
	return res, nil
}
