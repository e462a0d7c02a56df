// Package field implements modular arithmetic over encrypted integers.
//
// A Field binds an engine to an odd prime modulus p and a block count. Inputs
// are canonical values in [0, p) of exactly Blocks() blocks; every operation
// runs a fixed sequence of engine calls that depends only on p and the block
// count, never on the encrypted values. Out-of-range inputs are a caller
// precondition and produce undefined results rather than errors.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package field

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/numeral"
)

var (
	// ErrModulus is returned for a modulus that is not an odd prime.
	ErrModulus = errors.New("field: modulus must be an odd prime")
	// ErrBlocks is returned when the block count cannot hold the modulus.
	ErrBlocks = errors.New("field: block count too small for modulus")
)

// Observer receives the duration of every field operation.
type Observer interface {
	ObserveOp(op string, d time.Duration)
}

// Option configures a Field.
type Option func(*Field)

// WithLogger sets the logger used for debug timing output.
func WithLogger(l *zap.Logger) Option {
	return func(f *Field) { f.log = l }
}

// WithObserver sets the operation observer.
func WithObserver(o Observer) Option {
	return func(f *Field) { f.obs = o }
}

// Field is modular arithmetic over one prime modulus.
type Field struct {
	eng    engine.Engine
	p      numeral.Numeral
	pBig   *big.Int
	blocks int

	inv inversePlan

	log *zap.Logger
	obs Observer
}

// New validates the modulus and block count and precomputes the public
// iteration plans.
func New(eng engine.Engine, p numeral.Numeral, blocks int, opts ...Option) (*Field, error) {
	pb := p.Big()
	if pb.Cmp(big.NewInt(2)) <= 0 || pb.Bit(0) == 0 || !pb.ProbablyPrime(20) {
		return nil, errors.Wrapf(ErrModulus, "p=%s", pb)
	}
	if blocks <= 0 || pb.BitLen() > blocks*eng.BlockBits() {
		return nil, errors.Wrapf(ErrBlocks, "p has %d bits, %d blocks of %d bits",
			pb.BitLen(), blocks, eng.BlockBits())
	}
	f := &Field{
		eng:    eng,
		p:      p,
		pBig:   pb,
		blocks: blocks,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.inv = newInversePlan(pb, blocks, eng.BlockBits())
	return f, nil
}

// Engine returns the underlying engine.
func (f *Field) Engine() engine.Engine { return f.eng }

// Modulus returns p.
func (f *Field) Modulus() numeral.Numeral { return f.p }

// Blocks returns the canonical operand width.
func (f *Field) Blocks() int { return f.blocks }

// Constant returns a trivial encryption of v mod p.
func (f *Field) Constant(v *big.Int) (engine.Ciphertext, error) {
	return f.eng.Trivial(new(big.Int).Mod(v, f.pBig), f.blocks)
}

// Zero returns a trivial zero.
func (f *Field) Zero() (engine.Ciphertext, error) {
	return f.eng.Trivial(new(big.Int), f.blocks)
}

// One returns a trivial one.
func (f *Field) One() (engine.Ciphertext, error) {
	return f.eng.Trivial(big.NewInt(1), f.blocks)
}

func (f *Field) observe(op string, start time.Time) {
	if f.obs != nil {
		f.obs.ObserveOp(op, time.Since(start))
	}
}

func (f *Field) extend(ct engine.Ciphertext, blocks int) engine.Ciphertext {
	return engine.Resize(f.eng, ct, blocks)
}
