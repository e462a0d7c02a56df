// Package ecdsa signs with an encrypted private key and an encrypted nonce.
// The signer never sees a cleartext scalar: the nonce point, the x-coordinate
// reduction and the s computation all run on ciphertexts. Degenerate outputs
// (r = 0 or s = 0) are not detected; the key owner checks them after
// decryption.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package ecdsa

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/field"
	"github.com/luxfi/fhe-ecdsa/internal/forkjoin"
)

// DefaultWindow is the window size of the nonce-point multiplication.
const DefaultWindow = 6

// EncryptedSignature is a signature whose components are still encrypted.
type EncryptedSignature struct {
	R, S engine.Ciphertext
}

// Option configures a Signer.
type Option func(*Signer)

// WithWindow sets the window size used for the nonce point.
func WithWindow(w int) Option {
	return func(s *Signer) { s.window = w }
}

// WithLogger sets the logger; it is passed on to the fields and the group.
func WithLogger(l *zap.Logger) Option {
	return func(s *Signer) { s.log = l }
}

// WithObserver records field operation timings.
func WithObserver(o field.Observer) Option {
	return func(s *Signer) { s.obs = o }
}

// Signer computes ECDSA signatures over one curve.
type Signer struct {
	params curve.Params
	coord  *field.Field
	order  *field.Field
	group  *curve.Group
	window int
	log    *zap.Logger
	obs    field.Observer
}

// NewSigner builds the coordinate field, the order field and the group for
// params on eng.
func NewSigner(eng engine.Engine, params curve.Params, opts ...Option) (*Signer, error) {
	s := &Signer{params: params, window: DefaultWindow, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.window < 1 || s.window > curve.MaxWindow {
		return nil, errors.Wrapf(curve.ErrWindow, "%d", s.window)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	fopts := []field.Option{field.WithLogger(s.log)}
	if s.obs != nil {
		fopts = append(fopts, field.WithObserver(s.obs))
	}
	var err error
	if s.coord, err = field.New(eng, params.P, params.Blocks, fopts...); err != nil {
		return nil, errors.Wrapf(err, "%s coordinate field", params.Name)
	}
	if s.order, err = field.New(eng, params.N, params.Blocks, fopts...); err != nil {
		return nil, errors.Wrapf(err, "%s order field", params.Name)
	}
	s.group = curve.New(s.coord, curve.WithLogger(s.log), curve.WithScalarBits(params.N.Bits()))
	return s, nil
}

// Params returns the curve parameters.
func (s *Signer) Params() curve.Params { return s.params }

// Blocks returns the width expected for keys, nonces and messages.
func (s *Signer) Blocks() int { return s.params.Blocks }

// OrderField returns the scalar field.
func (s *Signer) OrderField() *field.Field { return s.order }

// Sign signs a cleartext message, taken modulo the group order.
func (s *Signer) Sign(sk, nonce engine.Ciphertext, msg *big.Int) (EncryptedSignature, error) {
	m, err := s.order.Constant(msg)
	if err != nil {
		return EncryptedSignature{}, err
	}
	return s.SignCiphertext(sk, nonce, m)
}

// SignCiphertext signs an encrypted message, which must be below the group
// order. sk and nonce must lie in [1, n).
func (s *Signer) SignCiphertext(sk, nonce, msg engine.Ciphertext) (EncryptedSignature, error) {
	start := time.Now()
	eng := s.coord.Engine()
	msg = engine.Resize(eng, msg, s.order.Blocks())

	var r, rsk, kInv engine.Ciphertext
	err := forkjoin.Join(
		func() error {
			phase := time.Now()
			R, err := s.group.ScalarMulConstantWindowed(s.params.G, nonce, s.window)
			if err != nil {
				return errors.Wrap(err, "nonce point")
			}
			s.log.Debug("sign phase", zap.String("phase", "nonce_point"), zap.Duration("elapsed", time.Since(phase)))

			phase = time.Now()
			zInv, err := s.coord.Inverse(R.Z)
			if err != nil {
				return errors.Wrap(err, "nonce point z inverse")
			}
			zInv2, err := s.coord.Square(zInv)
			if err != nil {
				return err
			}
			x, err := s.coord.Mul(R.X, zInv2)
			if err != nil {
				return err
			}
			if r, err = s.order.ReduceFast(x); err != nil {
				return err
			}
			s.log.Debug("sign phase", zap.String("phase", "affine_x"), zap.Duration("elapsed", time.Since(phase)))

			if rsk, err = s.order.Mul(r, sk); err != nil {
				return err
			}
			return nil
		},
		func() (err error) {
			phase := time.Now()
			if kInv, err = s.order.Inverse(nonce); err != nil {
				return errors.Wrap(err, "nonce inverse")
			}
			s.log.Debug("sign phase", zap.String("phase", "nonce_inverse"), zap.Duration("elapsed", time.Since(phase)))
			return nil
		},
	)
	if err != nil {
		return EncryptedSignature{}, err
	}

	sum, err := s.order.Add(msg, rsk)
	if err != nil {
		return EncryptedSignature{}, err
	}
	sig, err := s.order.Mul(kInv, sum)
	if err != nil {
		return EncryptedSignature{}, err
	}
	s.log.Debug("signed", zap.String("curve", s.params.Name), zap.Duration("elapsed", time.Since(start)))
	return EncryptedSignature{R: r, S: sig}, nil
}

// Decrypt opens an encrypted signature.
func Decrypt(dec engine.Decrypter, es EncryptedSignature) (Signature, error) {
	r, err := dec.Decrypt(es.R)
	if err != nil {
		return Signature{}, errors.Wrap(err, "decrypt r")
	}
	s, err := dec.Decrypt(es.S)
	if err != nil {
		return Signature{}, errors.Wrap(err, "decrypt s")
	}
	return Signature{R: r, S: s}, nil
}
