// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/engine/plain"
	"github.com/luxfi/fhe-ecdsa/numeral"
)

const secp256k1P = "115792089237316195423570985008687907853269984665640564039457584007908834671663"

func newField(t *testing.T, p numeral.Numeral, blocks int, opts ...Option) (*Field, *plain.Engine) {
	t.Helper()
	eng := plain.New(2)
	f, err := New(eng, p, blocks, opts...)
	require.NoError(t, err)
	return f, eng
}

func enc(t *testing.T, eng *plain.Engine, v int64, blocks int) engine.Ciphertext {
	t.Helper()
	ct, err := eng.Encrypt(big.NewInt(v), blocks)
	require.NoError(t, err)
	return ct
}

func dec(t *testing.T, eng *plain.Engine, ct engine.Ciphertext) int64 {
	t.Helper()
	v, err := eng.Decrypt(ct)
	require.NoError(t, err)
	return v.Int64()
}

func TestNewValidation(t *testing.T) {
	eng := plain.New(2)
	tests := []struct {
		name   string
		p      numeral.Numeral
		blocks int
		err    error
	}{
		{"even", numeral.Of(uint8(250)), 4, ErrModulus},
		{"composite", numeral.Of(uint8(221)), 4, ErrModulus},
		{"two", numeral.Of(uint8(2)), 4, ErrModulus},
		{"narrow", numeral.Of(uint8(251)), 3, ErrBlocks},
		{"zero blocks", numeral.Of(uint8(251)), 0, ErrBlocks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(eng, tt.p, tt.blocks)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
	_, err := New(eng, numeral.Of(uint8(251)), 4)
	assert.NoError(t, err)
}

func TestArithmeticMatchesNative(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(251)), 4)
	const p = 251
	for a := int64(0); a < p; a += 3 {
		for b := int64(0); b < p; b += 5 {
			A, B := enc(t, eng, a, 4), enc(t, eng, b, 4)

			sum, err := f.Add(A, B)
			require.NoError(t, err)
			assert.Equal(t, 4, sum.Blocks())
			assert.Equal(t, (a+b)%p, dec(t, eng, sum), "%d+%d", a, b)

			diff, err := f.Sub(A, B)
			require.NoError(t, err)
			assert.Equal(t, 4, diff.Blocks())
			assert.Equal(t, ((a-b)%p+p)%p, dec(t, eng, diff), "%d-%d", a, b)

			prod, err := f.Mul(A, B)
			require.NoError(t, err)
			assert.Equal(t, 4, prod.Blocks())
			assert.Equal(t, a*b%p, dec(t, eng, prod), "%d*%d", a, b)
		}
		A := enc(t, eng, a, 4)
		sq, err := f.Square(A)
		require.NoError(t, err)
		assert.Equal(t, a*a%p, dec(t, eng, sq))

		d, err := f.Double(A)
		require.NoError(t, err)
		assert.Equal(t, 2*a%p, dec(t, eng, d))

		mc, err := f.MulConstant(A, big.NewInt(200))
		require.NoError(t, err)
		assert.Equal(t, a*200%p, dec(t, eng, mc))
	}
}

func TestPow(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(251)), 4)
	for _, tc := range [][2]int64{{8, 0}, {8, 1}, {8, 250}, {45, 123}, {2, 8}, {0, 5}, {250, 2}} {
		got, err := f.Pow(enc(t, eng, tc[0], 4), enc(t, eng, tc[1], 4))
		require.NoError(t, err)
		want := new(big.Int).Exp(big.NewInt(tc[0]), big.NewInt(tc[1]), big.NewInt(251))
		assert.Equal(t, want.Int64(), dec(t, eng, got), "%d^%d", tc[0], tc[1])
	}
}

func TestReduceMersenneMatchesDivRem(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, p := range []uint8{251, 211, 199, 157, 13} {
		f, eng := newField(t, numeral.Of(p), 4)
		for i := 0; i < 300; i++ {
			x := enc(t, eng, rng.Int63n(1<<16), 8)
			m, err := f.ReduceMersenne(x)
			require.NoError(t, err)
			d, err := f.ReduceDivRem(x)
			require.NoError(t, err)
			assert.Equal(t, dec(t, eng, d), dec(t, eng, m))
			assert.Equal(t, 4, m.Blocks())
		}
	}
}

func TestReduceFast(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(251)), 4)
	for _, x := range []int64{0, 1, 250, 251, 252, 501} {
		got, err := f.ReduceFast(enc(t, eng, x, 5))
		require.NoError(t, err)
		assert.Equal(t, x%251, dec(t, eng, got))
	}
}

func TestInverseExhaustive(t *testing.T) {
	for _, p := range []uint8{157, 251, 233} {
		f, eng := newField(t, numeral.Of(p), 4)
		for a := int64(1); a < int64(p); a++ {
			inv, err := f.Inverse(enc(t, eng, a, 4))
			require.NoError(t, err)
			assert.Equal(t, 4, inv.Blocks())
			assert.Equal(t, int64(1), dec(t, eng, inv)*a%int64(p), "p=%d a=%d", p, a)
		}
	}
}

func TestInverseInvolution(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(157)), 4)
	for _, a := range []int64{8, 6, 45, 123, 127, 156} {
		inv, err := f.Inverse(enc(t, eng, a, 4))
		require.NoError(t, err)
		back, err := f.Inverse(inv)
		require.NoError(t, err)
		assert.Equal(t, a, dec(t, eng, back))
	}
}

func TestIterations(t *testing.T) {
	eng := plain.New(2)
	for _, tc := range []struct {
		p     uint8
		iters int
	}{{251, 11}, {233, 11}, {157, 10}, {211, 10}, {199, 10}} {
		f, err := New(eng, numeral.Of(tc.p), 4)
		require.NoError(t, err)
		assert.Equal(t, tc.iters, f.Iterations(), "p=%d", tc.p)
	}
}

func TestInverses(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(251)), 4)
	in := []int64{8, 123, 45, 6, 250}
	cts := make([]engine.Ciphertext, len(in))
	for i, v := range in {
		cts[i] = enc(t, eng, v, 4)
	}
	invs, err := f.Inverses(cts)
	require.NoError(t, err)
	require.Len(t, invs, len(in))
	for i := range in {
		single, err := f.Inverse(cts[i])
		require.NoError(t, err)
		assert.Equal(t, dec(t, eng, single), dec(t, eng, invs[i]))
	}

	back, err := f.Inverses(invs)
	require.NoError(t, err)
	for i, v := range in {
		assert.Equal(t, v, dec(t, eng, back[i]))
	}

	one, err := f.Inverses(cts[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(157), dec(t, eng, one[0]))

	none, err := f.Inverses(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOperationCountIsDataIndependent(t *testing.T) {
	f, eng := newField(t, numeral.Of(uint8(233)), 4)
	run := func(a, b int64) plain.Stats {
		eng.ResetStats()
		A, B := enc(t, eng, a, 4), enc(t, eng, b, 4)
		_, err := f.Inverse(A)
		require.NoError(t, err)
		_, err = f.Mul(A, B)
		require.NoError(t, err)
		_, err = f.Sub(A, B)
		require.NoError(t, err)
		_, err = f.Pow(A, B)
		require.NoError(t, err)
		return eng.Stats()
	}
	want := run(1, 0)
	assert.Equal(t, want, run(144, 232))
	assert.Equal(t, want, run(232, 17))
}

func TestSecp256k1Field(t *testing.T) {
	p := numeral.MustFromDecimal(secp256k1P, 256)
	f, eng := newField(t, p, 128)
	rng := rand.New(rand.NewSource(1))
	pb := p.Big()
	for i := 0; i < 8; i++ {
		a := new(big.Int).Rand(rng, pb)
		b := new(big.Int).Rand(rng, pb)
		A, err := eng.Encrypt(a, 128)
		require.NoError(t, err)
		B, err := eng.Encrypt(b, 128)
		require.NoError(t, err)

		prod, err := f.Mul(A, B)
		require.NoError(t, err)
		got, _ := eng.Decrypt(prod)
		want := new(big.Int).Mul(a, b)
		assert.Equal(t, want.Mod(want, pb).String(), got.String())

		if i < 2 && a.Sign() != 0 {
			inv, err := f.Inverse(A)
			require.NoError(t, err)
			got, _ := eng.Decrypt(inv)
			assert.Equal(t, new(big.Int).ModInverse(a, pb).String(), got.String())
		}
	}
}

type recorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *recorder) ObserveOp(op string, _ time.Duration) {
	r.mu.Lock()
	r.ops[op]++
	r.mu.Unlock()
}

func TestObserver(t *testing.T) {
	rec := &recorder{ops: map[string]int{}}
	f, eng := newField(t, numeral.Of(uint8(251)), 4, WithObserver(rec))
	a := enc(t, eng, 8, 4)
	_, err := f.Add(a, a)
	require.NoError(t, err)
	_, err = f.Inverse(a)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ops["add_mod"])
	assert.Equal(t, 1, rec.ops["inverse_mod"])
}
