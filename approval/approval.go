// Package approval is the service surface of the system: an application is
// reviewed against an encrypted balance and the encrypted decision is then
// signed, so the applicant can present a signature without the server ever
// learning the balance, the decision or the signature.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package approval

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/ecdsa"
	"github.com/luxfi/fhe-ecdsa/engine"
)

// DefaultThreshold is the balance below which an application is approved.
const DefaultThreshold = 100

// Option configures a Service.
type Option func(*Service)

// WithThreshold sets the approval threshold.
func WithThreshold(t uint64) Option {
	return func(s *Service) { s.threshold = new(big.Int).SetUint64(t) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service reviews applications and signs decisions.
type Service struct {
	eng       engine.Engine
	signer    *ecdsa.Signer
	threshold *big.Int
	log       *zap.Logger
}

// New returns a service that signs with signer.
func New(signer *ecdsa.Signer, opts ...Option) *Service {
	s := &Service{
		eng:       signer.OrderField().Engine(),
		signer:    signer,
		threshold: big.NewInt(DefaultThreshold),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signer returns the signer used by SignResult.
func (s *Service) Signer() *ecdsa.Signer { return s.signer }

// Threshold returns the approval threshold.
func (s *Service) Threshold() *big.Int { return new(big.Int).Set(s.threshold) }

// ReviewApplication returns an encrypted 1 when balance < threshold and an
// encrypted 0 otherwise, as a single block.
func (s *Service) ReviewApplication(balance engine.Ciphertext) (engine.Ciphertext, error) {
	start := time.Now()
	ok, err := s.eng.ScalarLt(balance, s.threshold)
	if err != nil {
		return nil, errors.Wrap(err, "review application")
	}
	s.log.Debug("reviewed application",
		zap.Int("blocks", balance.Blocks()),
		zap.Duration("elapsed", time.Since(start)))
	return ok, nil
}

// SignResult signs an encrypted decision under an encrypted key and nonce.
// The decision is widened to the order width and used as the message.
func (s *Service) SignResult(sk, nonce, decision engine.Ciphertext) (ecdsa.EncryptedSignature, error) {
	msg := engine.Resize(s.eng, decision, s.signer.Blocks())
	sig, err := s.signer.SignCiphertext(sk, nonce, msg)
	if err != nil {
		return ecdsa.EncryptedSignature{}, errors.Wrap(err, "sign result")
	}
	return sig, nil
}
