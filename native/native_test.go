// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	p251 = big.NewInt(251)
	b7   = big.NewInt(7)
	g251 = Affine{X: big.NewInt(8), Y: big.NewInt(45)}
)

func affine(t *testing.T, pt Point, p *big.Int) (int64, int64) {
	t.Helper()
	a, ok := IntoAffine(pt, p)
	require.True(t, ok)
	return a.X.Int64(), a.Y.Int64()
}

func TestModular(t *testing.T) {
	for a := int64(0); a < 251; a += 7 {
		for b := int64(0); b < 251; b += 11 {
			A, B := big.NewInt(a), big.NewInt(b)
			assert.Equal(t, (a+b)%251, Add(A, B, p251).Int64())
			assert.Equal(t, ((a-b)%251+251)%251, Sub(A, B, p251).Int64())
			assert.Equal(t, a*b%251, Mul(A, B, p251).Int64())
		}
		assert.Equal(t, 2*a%251, Double(big.NewInt(a), p251).Int64())
		assert.Equal(t, a*a%251, Square(big.NewInt(a), p251).Int64())
		if a != 0 {
			inv := Inverse(big.NewInt(a), p251)
			assert.Equal(t, int64(1), Mul(inv, big.NewInt(a), p251).Int64())
		}
	}
	assert.Equal(t, int64(0), Inverse(big.NewInt(0), p251).Int64())
	assert.Equal(t, int64(1), Pow(big.NewInt(8), big.NewInt(250), p251).Int64())
}

func TestDoublePoint(t *testing.T) {
	require.True(t, OnCurve(g251, b7, p251))
	x, y := affine(t, DoublePoint(FromAffine(g251), p251), p251)
	assert.Equal(t, int64(157), x)
	assert.Equal(t, int64(22), y)

	assert.True(t, DoublePoint(Identity(), p251).IsIdentity())
}

func TestAddAffine(t *testing.T) {
	pt := Point{X: big.NewInt(48), Y: big.NewInt(68), Z: big.NewInt(153)}
	got := AddAffine(pt, Affine{X: big.NewInt(56), Y: big.NewInt(225)}, p251)
	assert.Equal(t, int64(67), got.X.Int64())
	assert.Equal(t, int64(248), got.Y.Int64())
	assert.Equal(t, int64(91), got.Z.Int64())

	id := AddAffine(Identity(), g251, p251)
	x, y := affine(t, id, p251)
	assert.Equal(t, int64(8), x)
	assert.Equal(t, int64(45), y)
}

func TestScalarMulVectors(t *testing.T) {
	g := FromAffine(g251)
	tests := []struct {
		k    int64
		x, y int64
	}{
		{2, 157, 22},
		{6, 176, 125},
		{26, 92, 120},
	}
	for _, tt := range tests {
		x, y := affine(t, ScalarMul(g, big.NewInt(tt.k), p251), p251)
		assert.Equal(t, tt.x, x, "k=%d", tt.k)
		assert.Equal(t, tt.y, y, "k=%d", tt.k)
	}
	assert.True(t, ScalarMul(g, big.NewInt(36), p251).IsIdentity())
}

func TestAddProjectiveMatchesScalarMul(t *testing.T) {
	g := FromAffine(g251)
	for a := int64(1); a < 36; a++ {
		for b := int64(1); b < 36; b += 5 {
			sum := AddProjective(ScalarMul(g, big.NewInt(a), p251), ScalarMul(g, big.NewInt(b), p251), p251)
			want := ScalarMul(g, big.NewInt((a+b)%36), p251)
			if want.IsIdentity() {
				assert.True(t, sum.IsIdentity())
				continue
			}
			wx, wy := affine(t, want, p251)
			gx, gy := affine(t, sum, p251)
			assert.Equal(t, wx, gx)
			assert.Equal(t, wy, gy)
		}
	}
}

func TestMultiples(t *testing.T) {
	table, next := Multiples(g251, 7, p251)
	require.Len(t, table, 7)
	for i, a := range table {
		x, y := affine(t, ScalarMul(FromAffine(g251), big.NewInt(int64(i+1)), p251), p251)
		assert.Equal(t, x, a.X.Int64())
		assert.Equal(t, y, a.Y.Int64())
	}
	x, y := affine(t, ScalarMul(FromAffine(g251), big.NewInt(8), p251), p251)
	assert.Equal(t, x, next.X.Int64())
	assert.Equal(t, y, next.Y.Int64())
}
