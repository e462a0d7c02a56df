// Package curve implements the group law of a = 0 short Weierstrass curves
// over encrypted Jacobian coordinates, and fixed-cost scalar multiplication.
//
// The identity is (0, 0, 0). Additions blend the generic formula result with
// the coordinate-wise sum of both operands: when one operand is the identity
// the sum is the other operand. The generic formulas do not cover adding a
// point to itself; callers must not add equal non-identity points.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package curve

import (
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/field"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
	"github.com/luxfi/fhe-ecdsa/oblivious"
)

// Point is an encrypted Jacobian point.
type Point struct {
	X, Y, Z engine.Ciphertext
}

// Option configures a Group.
type Option func(*Group)

// WithLogger sets the logger used for debug timing output.
func WithLogger(l *zap.Logger) Option {
	return func(g *Group) { g.log = l }
}

// WithScalarBits sets the scalar width every multiplication scans. Scalars
// live in the order field, whose width may differ from the coordinate field.
// The default is the coordinate width.
func WithScalarBits(bits int) Option {
	return func(g *Group) {
		if bits > 0 {
			g.scalarBits = bits
		}
	}
}

// Group is the curve group over a coordinate field.
type Group struct {
	f          *field.Field
	eng        engine.Engine
	log        *zap.Logger
	scalarBits int
}

// New returns the group over f.
func New(f *field.Field, opts ...Option) *Group {
	g := &Group{f: f, eng: f.Engine(), log: zap.NewNop(), scalarBits: f.Modulus().Bits()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Field returns the coordinate field.
func (g *Group) Field() *field.Field { return g.f }

// Identity returns a trivial encryption of (0, 0, 0).
func (g *Group) Identity() (Point, error) {
	var pt Point
	var err error
	if pt.X, err = g.f.Zero(); err != nil {
		return Point{}, err
	}
	if pt.Y, err = g.f.Zero(); err != nil {
		return Point{}, err
	}
	if pt.Z, err = g.f.Zero(); err != nil {
		return Point{}, err
	}
	return pt, nil
}

// Double returns 2*pt using dbl-2009-l. The identity doubles to itself.
func (g *Group) Double(pt Point) (Point, error) {
	defer g.timed("double", time.Now())
	f := g.f
	var a, b engine.Ciphertext
	err := forkjoin.Join(
		func() (err error) { a, err = f.Square(pt.X); return },
		func() (err error) { b, err = f.Square(pt.Y); return },
	)
	if err != nil {
		return Point{}, err
	}
	c, err := f.Square(b)
	if err != nil {
		return Point{}, err
	}

	// d = 2*((x + b)^2 - (a + c)), e = 3a
	var xb, ac, a2 engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { xb, err = f.Add(pt.X, b); return },
		func() (err error) { ac, err = f.Add(a, c); return },
		func() (err error) { a2, err = f.Double(a); return },
	)
	if err != nil {
		return Point{}, err
	}
	xb2, err := f.Square(xb)
	if err != nil {
		return Point{}, err
	}
	d, err := f.Sub(xb2, ac)
	if err != nil {
		return Point{}, err
	}
	if d, err = f.Double(d); err != nil {
		return Point{}, err
	}
	e, err := f.Add(a2, a)
	if err != nil {
		return Point{}, err
	}

	var ff, z, d2 engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { ff, err = f.Square(e); return },
		func() (err error) {
			yz, err := f.Mul(pt.Y, pt.Z)
			if err != nil {
				return err
			}
			z, err = f.Double(yz)
			return err
		},
		func() (err error) { d2, err = f.Double(d); return },
	)
	if err != nil {
		return Point{}, err
	}
	x, err := f.Sub(ff, d2)
	if err != nil {
		return Point{}, err
	}

	var edx, c8 engine.Ciphertext
	err = forkjoin.Join(
		func() error {
			dx, err := f.Sub(d, x)
			if err != nil {
				return err
			}
			edx, err = f.Mul(e, dx)
			return err
		},
		func() (err error) {
			c8 = c
			for i := 0; i < 3 && err == nil; i++ {
				c8, err = f.Double(c8)
			}
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}
	y, err := f.Sub(edx, c8)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y, Z: z}, nil
}

// AddMixed returns pt + (x2, y2) where the affine operand is present when
// flag is 1 and must be (0, 0) when flag is 0 (madd-2007-bl).
func (g *Group) AddMixed(pt Point, x2, y2, flag engine.Ciphertext) (Point, error) {
	defer g.timed("add_mixed", time.Now())
	f := g.f
	z1z1, err := f.Square(pt.Z)
	if err != nil {
		return Point{}, err
	}
	var u2, s2 engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { u2, err = f.Mul(x2, z1z1); return },
		func() error {
			z3, err := f.Mul(z1z1, pt.Z)
			if err != nil {
				return err
			}
			s2, err = f.Mul(y2, z3)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}

	// h = u2 - x1, i = 4h^2, r = 2(s2 - y1)
	var h, r engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { h, err = f.Sub(u2, pt.X); return },
		func() error {
			sy, err := f.Sub(s2, pt.Y)
			if err != nil {
				return err
			}
			r, err = f.Double(sy)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}
	hh, err := f.Square(h)
	if err != nil {
		return Point{}, err
	}
	i, err := f.Double(hh)
	if err != nil {
		return Point{}, err
	}
	if i, err = f.Double(i); err != nil {
		return Point{}, err
	}

	var j, v engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { j, err = f.Mul(h, i); return },
		func() (err error) { v, err = f.Mul(pt.X, i); return },
	)
	if err != nil {
		return Point{}, err
	}

	// x3 = r^2 - j - 2v, z3 = 2*z1*h, y3 = r(v - x3) - 2*y1*j
	var x3, z3, yj2 engine.Ciphertext
	err = forkjoin.Join(
		func() error {
			r2, err := f.Square(r)
			if err != nil {
				return err
			}
			t, err := f.Sub(r2, j)
			if err != nil {
				return err
			}
			v2, err := f.Double(v)
			if err != nil {
				return err
			}
			x3, err = f.Sub(t, v2)
			return err
		},
		func() error {
			zh, err := f.Mul(pt.Z, h)
			if err != nil {
				return err
			}
			z3, err = f.Double(zh)
			return err
		},
		func() error {
			j2, err := f.Double(j)
			if err != nil {
				return err
			}
			yj2, err = f.Mul(pt.Y, j2)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}
	vx, err := f.Sub(v, x3)
	if err != nil {
		return Point{}, err
	}
	rvx, err := f.Mul(r, vx)
	if err != nil {
		return Point{}, err
	}
	y3, err := f.Sub(rvx, yj2)
	if err != nil {
		return Point{}, err
	}

	return g.blend(Point{X: x3, Y: y3, Z: z3}, pt, Point{X: x2, Y: y2, Z: flag}, pt.Z, flag)
}

// AddProjective returns a + b for two Jacobian points (add-2007-bl).
func (g *Group) AddProjective(a, b Point) (Point, error) {
	defer g.timed("add_projective", time.Now())
	f := g.f
	var z0z0, z1z1 engine.Ciphertext
	err := forkjoin.Join(
		func() (err error) { z0z0, err = f.Square(a.Z); return },
		func() (err error) { z1z1, err = f.Square(b.Z); return },
	)
	if err != nil {
		return Point{}, err
	}

	var u0, u1, s0, s1 engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { u0, err = f.Mul(a.X, z1z1); return },
		func() (err error) { u1, err = f.Mul(b.X, z0z0); return },
		func() error {
			t, err := f.Mul(b.Z, z1z1)
			if err != nil {
				return err
			}
			s0, err = f.Mul(a.Y, t)
			return err
		},
		func() error {
			t, err := f.Mul(a.Z, z0z0)
			if err != nil {
				return err
			}
			s1, err = f.Mul(b.Y, t)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}

	// h = u1 - u0, r = 2(s1 - s0), i = (2h)^2
	var h, r engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { h, err = f.Sub(u1, u0); return },
		func() error {
			ds, err := f.Sub(s1, s0)
			if err != nil {
				return err
			}
			r, err = f.Double(ds)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}
	h2, err := f.Double(h)
	if err != nil {
		return Point{}, err
	}
	i, err := f.Square(h2)
	if err != nil {
		return Point{}, err
	}

	var j, v engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { j, err = f.Mul(h, i); return },
		func() (err error) { v, err = f.Mul(u0, i); return },
	)
	if err != nil {
		return Point{}, err
	}

	var r2, s0j2, zz engine.Ciphertext
	err = forkjoin.Join(
		func() (err error) { r2, err = f.Square(r); return },
		func() error {
			s0j, err := f.Mul(s0, j)
			if err != nil {
				return err
			}
			s0j2, err = f.Double(s0j)
			return err
		},
		func() error {
			sum, err := f.Add(a.Z, b.Z)
			if err != nil {
				return err
			}
			zz, err = f.Square(sum)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}

	t, err := f.Sub(r2, j)
	if err != nil {
		return Point{}, err
	}
	v2, err := f.Double(v)
	if err != nil {
		return Point{}, err
	}
	x, err := f.Sub(t, v2)
	if err != nil {
		return Point{}, err
	}

	var y, z engine.Ciphertext
	err = forkjoin.Join(
		func() error {
			vx, err := f.Sub(v, x)
			if err != nil {
				return err
			}
			rvx, err := f.Mul(r, vx)
			if err != nil {
				return err
			}
			y, err = f.Sub(rvx, s0j2)
			return err
		},
		func() error {
			t, err := f.Sub(zz, z0z0)
			if err != nil {
				return err
			}
			if t, err = f.Sub(t, z1z1); err != nil {
				return err
			}
			z, err = f.Mul(t, h)
			return err
		},
	)
	if err != nil {
		return Point{}, err
	}

	return g.blend(Point{X: x, Y: y, Z: z}, a, b, a.Z, b.Z)
}

// blend returns generic when both presence indicators are non-zero and the
// coordinate-wise sum a + b otherwise.
func (g *Group) blend(generic, a, b Point, presentA, presentB engine.Ciphertext) (Point, error) {
	eng := g.eng
	var nzA, nzB engine.Ciphertext
	err := forkjoin.Join(
		func() (err error) { nzA, err = eng.ScalarNe(presentA, big.NewInt(0)); return },
		func() (err error) { nzB, err = eng.ScalarNe(presentB, big.NewInt(0)); return },
	)
	if err != nil {
		return Point{}, err
	}
	both, err := eng.BitAnd(nzA, nzB)
	if err != nil {
		return Point{}, err
	}

	var out Point
	pick := func(dst *engine.Ciphertext, gen, ca, cb engine.Ciphertext) func() error {
		return func() error {
			sum, err := eng.Add(ca, cb)
			if err != nil {
				return err
			}
			*dst, err = oblivious.Select(eng, both, gen, engine.Resize(eng, sum, g.f.Blocks()))
			return err
		}
	}
	err = forkjoin.Join(
		pick(&out.X, generic.X, a.X, b.X),
		pick(&out.Y, generic.Y, a.Y, b.Y),
		pick(&out.Z, generic.Z, a.Z, b.Z),
	)
	if err != nil {
		return Point{}, err
	}
	return out, nil
}

// IntoAffine returns (x/z^2, y/z^3). The result is undefined for the
// identity.
func (g *Group) IntoAffine(pt Point) (x, y engine.Ciphertext, err error) {
	zInv, err := g.f.Inverse(pt.Z)
	if err != nil {
		return nil, nil, err
	}
	return g.IntoAffineInv(pt, zInv)
}

// IntoAffineInv is IntoAffine with a precomputed z^-1.
func (g *Group) IntoAffineInv(pt Point, zInv engine.Ciphertext) (x, y engine.Ciphertext, err error) {
	zInv2, err := g.f.Square(zInv)
	if err != nil {
		return nil, nil, err
	}
	zInv3, err := g.f.Mul(zInv2, zInv)
	if err != nil {
		return nil, nil, err
	}
	err = forkjoin.Join(
		func() (err error) { x, err = g.f.Mul(pt.X, zInv2); return },
		func() (err error) { y, err = g.f.Mul(pt.Y, zInv3); return },
	)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (g *Group) timed(op string, start time.Time) {
	g.log.Debug("group op", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
}
