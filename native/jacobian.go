// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package native

import "math/big"

// Point is a Jacobian point (X:Y:Z) on y^2 = x^3 + b. Z = 0 is the identity.
type Point struct {
	X, Y, Z *big.Int
}

// Affine is an affine point. The identity has no affine form.
type Affine struct {
	X, Y *big.Int
}

// Identity returns (0:0:0).
func Identity() Point {
	return Point{X: new(big.Int), Y: new(big.Int), Z: new(big.Int)}
}

// FromAffine lifts an affine point to Z = 1. (0, 0) lifts to the identity.
func FromAffine(a Affine) Point {
	if a.isZero() {
		return Identity()
	}
	return Point{X: new(big.Int).Set(a.X), Y: new(big.Int).Set(a.Y), Z: big.NewInt(1)}
}

func (a Affine) isZero() bool { return a.X.Sign() == 0 && a.Y.Sign() == 0 }

// IsIdentity reports whether Z = 0.
func (pt Point) IsIdentity() bool { return pt.Z.Sign() == 0 }

// DoublePoint doubles a point (a = 0, dbl-2009-l).
func DoublePoint(pt Point, p *big.Int) Point {
	a := Square(pt.X, p)
	b := Square(pt.Y, p)
	c := Square(b, p)
	xb := Square(Add(pt.X, b, p), p)
	d := Double(Sub(xb, Add(a, c, p), p), p)
	e := Add(Double(a, p), a, p)
	f := Square(e, p)
	z := Double(Mul(pt.Y, pt.Z, p), p)
	x := Sub(f, Double(d, p), p)
	c8 := Double(Double(Double(c, p), p), p)
	y := Sub(Mul(e, Sub(d, x, p), p), c8, p)
	return Point{X: x, Y: y, Z: z}
}

// AddAffine adds an affine point to a Jacobian point (madd-2007-bl).
func AddAffine(pt Point, q Affine, p *big.Int) Point {
	if pt.IsIdentity() {
		return FromAffine(q)
	}
	if q.isZero() {
		return pt
	}
	z1z1 := Square(pt.Z, p)
	u2 := Mul(q.X, z1z1, p)
	s2 := Mul(q.Y, Mul(z1z1, pt.Z, p), p)
	if pt.X.Cmp(u2) == 0 && pt.Y.Cmp(s2) == 0 {
		return DoublePoint(pt, p)
	}
	h := Sub(u2, pt.X, p)
	hh := Square(h, p)
	i := Double(Double(hh, p), p)
	j := Mul(h, i, p)
	r := Double(Sub(s2, pt.Y, p), p)
	v := Mul(pt.X, i, p)
	x := Sub(Square(r, p), Add(j, Double(v, p), p), p)
	y := Sub(Mul(r, Sub(v, x, p), p), Double(Mul(pt.Y, j, p), p), p)
	z := Double(Mul(pt.Z, h, p), p)
	return Point{X: x, Y: y, Z: z}
}

// AddProjective adds two Jacobian points (add-2007-bl).
func AddProjective(a, b Point, p *big.Int) Point {
	if a.IsIdentity() {
		return b
	}
	if b.IsIdentity() {
		return a
	}
	z0z0 := Square(a.Z, p)
	z1z1 := Square(b.Z, p)
	u0 := Mul(a.X, z1z1, p)
	u1 := Mul(b.X, z0z0, p)
	s0 := Mul(a.Y, Mul(b.Z, z1z1, p), p)
	s1 := Mul(b.Y, Mul(a.Z, z0z0, p), p)
	if u0.Cmp(u1) == 0 && s0.Cmp(s1) == 0 {
		return DoublePoint(a, p)
	}
	h := Sub(u1, u0, p)
	r := Double(Sub(s1, s0, p), p)
	i := Square(Double(h, p), p)
	j := Mul(h, i, p)
	v := Mul(u0, i, p)
	x := Sub(Sub(Square(r, p), j, p), Double(v, p), p)
	y := Sub(Mul(r, Sub(v, x, p), p), Double(Mul(s0, j, p), p), p)
	zs := Square(Add(a.Z, b.Z, p), p)
	z := Mul(Sub(Sub(zs, z0z0, p), z1z1, p), h, p)
	return Point{X: x, Y: y, Z: z}
}

// IntoAffine converts to affine coordinates. ok is false for the identity.
func IntoAffine(pt Point, p *big.Int) (a Affine, ok bool) {
	if pt.IsIdentity() {
		return Affine{X: new(big.Int), Y: new(big.Int)}, false
	}
	zInv := Inverse(pt.Z, p)
	zInv2 := Square(zInv, p)
	zInv3 := Mul(zInv2, zInv, p)
	return Affine{X: Mul(pt.X, zInv2, p), Y: Mul(pt.Y, zInv3, p)}, true
}

// ScalarMul returns k*pt by double-and-add over the bits of k.
func ScalarMul(pt Point, k, p *big.Int) Point {
	res := Identity()
	tmp := pt
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			res = AddProjective(res, tmp, p)
		}
		tmp = DoublePoint(tmp, p)
	}
	return res
}

// Multiples returns [base, 2*base, ..., count*base] in affine form, with the
// identity encoded as (0, 0), followed by (count+1)*base.
func Multiples(base Affine, count int, p *big.Int) ([]Affine, Affine) {
	out := make([]Affine, 0, count)
	acc := FromAffine(base)
	for i := 0; i < count; i++ {
		a, _ := IntoAffine(acc, p)
		out = append(out, a)
		acc = AddAffine(acc, base, p)
	}
	next, _ := IntoAffine(acc, p)
	return out, next
}

// OnCurve reports whether a satisfies y^2 = x^3 + b mod p.
func OnCurve(a Affine, b, p *big.Int) bool {
	lhs := Square(a.Y, p)
	rhs := Add(Mul(Square(a.X, p), a.X, p), b, p)
	return lhs.Cmp(rhs) == 0
}
