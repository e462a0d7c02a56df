// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ecdsa

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/engine/plain"
	"github.com/luxfi/fhe-ecdsa/native"
)

const (
	demoKey   = "32670510020758816978083085130507043184471273380659243275938904335757337482424"
	demoNonce = "158972629851468960855479098042189567798917817837573660423710583832714848"
)

func encrypt(t *testing.T, eng *plain.Engine, v *big.Int, blocks int) engine.Ciphertext {
	t.Helper()
	ct, err := eng.Encrypt(v, blocks)
	require.NoError(t, err)
	return ct
}

func TestSignToyVectors(t *testing.T) {
	params := curve.Toy211()
	tests := []struct {
		sk, k, msg int64
		window     int
		r, s       int64
	}{
		{42, 77, 1, 6, 155, 144},
		{123, 150, 5, 4, 171, 58},
	}
	for _, tt := range tests {
		eng := plain.New(2)
		signer, err := NewSigner(eng, params, WithWindow(tt.window))
		require.NoError(t, err)

		es, err := signer.Sign(
			encrypt(t, eng, big.NewInt(tt.sk), signer.Blocks()),
			encrypt(t, eng, big.NewInt(tt.k), signer.Blocks()),
			big.NewInt(tt.msg),
		)
		require.NoError(t, err)
		assert.Equal(t, signer.Blocks(), es.R.Blocks())
		assert.Equal(t, signer.Blocks(), es.S.Blocks())

		sig, err := Decrypt(eng, es)
		require.NoError(t, err)
		assert.Equal(t, tt.r, sig.R.Int64(), "sk=%d k=%d", tt.sk, tt.k)
		assert.Equal(t, tt.s, sig.S.Int64(), "sk=%d k=%d", tt.sk, tt.k)

		pub, ok := params.PublicKey(big.NewInt(tt.sk))
		require.True(t, ok)
		assert.NoError(t, Verify(params, pub, big.NewInt(tt.msg), sig))
		assert.Error(t, Verify(params, pub, big.NewInt(tt.msg+1), sig))
	}
}

func TestSignVerifiesAcrossInputs(t *testing.T) {
	params := curve.Toy211()
	eng := plain.New(2)
	signer, err := NewSigner(eng, params, WithWindow(3))
	require.NoError(t, err)
	nonces := NewNonceSource(params.N, []byte("toy"))

	for _, sk := range []int64{1, 2, 97, 198} {
		pub, ok := params.PublicKey(big.NewInt(sk))
		require.True(t, ok)
		for msg := int64(0); msg < 3; msg++ {
			k, err := nonces.Next()
			require.NoError(t, err)
			es, err := signer.Sign(
				encrypt(t, eng, big.NewInt(sk), signer.Blocks()),
				encrypt(t, eng, k, signer.Blocks()),
				big.NewInt(msg),
			)
			require.NoError(t, err)
			sig, err := Decrypt(eng, es)
			require.NoError(t, err)
			if sig.R.Sign() == 0 || sig.S.Sign() == 0 {
				continue
			}
			assert.NoError(t, Verify(params, pub, big.NewInt(msg), sig), "sk=%d k=%s msg=%d", sk, k, msg)
		}
	}
}

func TestSignCiphertextMessage(t *testing.T) {
	params := curve.Toy211()
	eng := plain.New(2)
	signer, err := NewSigner(eng, params)
	require.NoError(t, err)

	// A one-block message is widened to the order width.
	msg := encrypt(t, eng, big.NewInt(1), 1)
	es, err := signer.SignCiphertext(
		encrypt(t, eng, big.NewInt(42), signer.Blocks()),
		encrypt(t, eng, big.NewInt(77), signer.Blocks()),
		msg,
	)
	require.NoError(t, err)
	sig, err := Decrypt(eng, es)
	require.NoError(t, err)
	assert.Equal(t, int64(155), sig.R.Int64())
	assert.Equal(t, int64(144), sig.S.Int64())
}

func TestSignOperationCount(t *testing.T) {
	params := curve.Toy211()
	eng := plain.New(2)
	signer, err := NewSigner(eng, params, WithWindow(4))
	require.NoError(t, err)
	run := func(sk, k, msg int64) plain.Stats {
		skCt := encrypt(t, eng, big.NewInt(sk), signer.Blocks())
		kCt := encrypt(t, eng, big.NewInt(k), signer.Blocks())
		eng.ResetStats()
		_, err := signer.Sign(skCt, kCt, big.NewInt(msg))
		require.NoError(t, err)
		return eng.Stats()
	}
	want := run(42, 77, 1)
	assert.Equal(t, want, run(123, 150, 5))
	assert.Equal(t, want, run(1, 198, 0))
}

func TestNewSignerWindow(t *testing.T) {
	_, err := NewSigner(plain.New(2), curve.Toy211(), WithWindow(0))
	assert.True(t, errors.Is(err, curve.ErrWindow))
}

func TestSignSecp256k1(t *testing.T) {
	if testing.Short() {
		t.Skip("256-bit signing in short mode")
	}
	params := curve.Secp256k1()
	eng := plain.New(2)
	signer, err := NewSigner(eng, params)
	require.NoError(t, err)

	sk, _ := new(big.Int).SetString(demoKey, 10)
	k, _ := new(big.Int).SetString(demoNonce, 10)
	msg := new(big.Int).SetBytes(bytes.Repeat([]byte{0xa5}, 32))

	es, err := signer.Sign(
		encrypt(t, eng, sk, signer.Blocks()),
		encrypt(t, eng, k, signer.Blocks()),
		msg,
	)
	require.NoError(t, err)
	sig, err := Decrypt(eng, es)
	require.NoError(t, err)

	p, n := params.P.Big(), params.N.Big()
	R, ok := native.IntoAffine(native.ScalarMul(native.FromAffine(params.G), k, p), p)
	require.True(t, ok)
	assert.Equal(t, new(big.Int).Mod(R.X, n).String(), sig.R.String())

	pub, ok := params.PublicKey(sk)
	require.True(t, ok)
	assert.NoError(t, Verify(params, pub, msg, sig))
	assert.NoError(t, VerifySecp256k1(pub, new(big.Int).Mod(msg, n), sig))

	bad := Signature{R: sig.R, S: new(big.Int).Add(sig.S, big.NewInt(1))}
	assert.True(t, errors.Is(VerifySecp256k1(pub, msg, bad), ErrInvalidSignature))
}

func TestSignatureEncoding(t *testing.T) {
	toy := curve.Toy211()
	sig := Signature{R: big.NewInt(155), S: big.NewInt(144)}
	b := sig.Encode(toy.N)
	assert.Equal(t, []byte{155, 144}, b)
	back, err := Decode(b, toy.N)
	require.NoError(t, err)
	assert.Equal(t, "155", back.R.String())
	assert.Equal(t, "144", back.S.String())

	_, err = Decode(b[:1], toy.N)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	secp := curve.Secp256k1()
	wide := Signature{R: big.NewInt(0x0102), S: big.NewInt(3)}
	b = wide.Encode(secp.N)
	require.Len(t, b, 64)
	assert.Equal(t, byte(0x02), b[0])
	assert.Equal(t, byte(0x01), b[1])
	assert.Equal(t, byte(3), b[32])
}

func TestVerifyRange(t *testing.T) {
	params := curve.Toy211()
	pub, _ := params.PublicKey(big.NewInt(42))
	for _, sig := range []Signature{
		{R: big.NewInt(0), S: big.NewInt(144)},
		{R: big.NewInt(155), S: big.NewInt(199)},
		{R: nil, S: big.NewInt(1)},
	} {
		assert.True(t, errors.Is(Verify(params, pub, big.NewInt(1), sig), ErrInvalidSignature))
	}
}

func TestNonceSource(t *testing.T) {
	n := curve.Toy211().N
	a := NewNonceSource(n, []byte("seed"))
	b := NewNonceSource(n, []byte("seed"))
	var first []*big.Int
	for i := 0; i < 50; i++ {
		x, err := a.Next()
		require.NoError(t, err)
		y, err := b.Next()
		require.NoError(t, err)
		assert.Equal(t, x.String(), y.String())
		assert.True(t, x.Sign() > 0 && x.Cmp(n.Big()) < 0, "nonce %s", x)
		first = append(first, x)
	}
	assert.NotZero(t, a.Counter())

	a.Reseed([]byte("seed"))
	assert.Zero(t, a.Counter())
	x, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, first[0].String(), x.String())

	eng := plain.New(2)
	ct, err := NewNonceSource(n, []byte("seed")).NextEncrypted(eng, 4)
	require.NoError(t, err)
	v, err := eng.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, first[0].String(), v.String())
}
