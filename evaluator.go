// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
	"golang.org/x/sync/semaphore"
)

// gateSlots bounds the number of bootstraps in flight. Callers may fan out
// freely above it: only the leaf bootstrap holds a slot, so nested fork-join
// cannot deadlock on it.
type gateSlots struct {
	sem      *semaphore.Weighted
	size     int
	inflight atomic.Int64
	peak     atomic.Int64
}

func newGateSlots(n int) *gateSlots {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	return &gateSlots{sem: semaphore.NewWeighted(int64(n)), size: n}
}

func (s *gateSlots) acquire() {
	// Acquire only fails on a cancelled context.
	_ = s.sem.Acquire(context.Background(), 1)
	n := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (s *gateSlots) release() {
	s.inflight.Add(-1)
	s.sem.Release(1)
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithParallelism bounds the number of concurrent bootstraps, and with it the
// number of live blind-rotation evaluators. n < 1 uses GOMAXPROCS.
func WithParallelism(n int) EvaluatorOption {
	return func(eval *Evaluator) { eval.slots = newGateSlots(n) }
}

// Evaluator evaluates boolean gates on encrypted bits. It needs only the
// bootstrap key and is safe for concurrent use: each gate borrows its own
// blind-rotation evaluator.
type Evaluator struct {
	params Parameters
	bsk    *BootstrapKey
	ringQ  *ring.Ring
	pool   sync.Pool
	slots  *gateSlots
}

// NewEvaluator creates a gate evaluator.
func NewEvaluator(params Parameters, bsk *BootstrapKey, opts ...EvaluatorOption) *Evaluator {
	eval := &Evaluator{
		params: params,
		bsk:    bsk,
		ringQ:  params.rlwe.RingQ(),
		slots:  newGateSlots(0),
	}
	for _, opt := range opts {
		opt(eval)
	}
	eval.pool.New = func() any {
		return blindrot.NewEvaluator(params.rlwe, params.rlwe)
	}
	return eval
}

// Parallelism returns the bootstrap concurrency bound.
func (eval *Evaluator) Parallelism() int { return eval.slots.size }

// bootstrap blind-rotates ct through testPoly. The result is a fresh sample
// under the same key.
func (eval *Evaluator) bootstrap(ct *Ciphertext, testPoly *ring.Poly) (*Ciphertext, error) {
	eval.slots.acquire()
	defer eval.slots.release()
	br := eval.pool.Get().(*blindrot.Evaluator)
	defer eval.pool.Put(br)

	results, err := br.Evaluate(ct.Ciphertext, map[int]*ring.Poly{0: testPoly}, eval.bsk.BRK)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap")
	}
	out, ok := results[0]
	if !ok {
		return nil, errors.New("bootstrap: no result for slot 0")
	}
	return &Ciphertext{out.CopyNew()}, nil
}

func (eval *Evaluator) add(cts ...*Ciphertext) *Ciphertext {
	res := rlwe.NewCiphertext(eval.params.rlwe, 1, cts[0].Level())
	res.Value[0] = *cts[0].Value[0].CopyNew()
	res.Value[1] = *cts[0].Value[1].CopyNew()
	for _, ct := range cts[1:] {
		eval.ringQ.Add(res.Value[0], ct.Value[0], res.Value[0])
		eval.ringQ.Add(res.Value[1], ct.Value[1], res.Value[1])
	}
	res.IsNTT = cts[0].IsNTT
	return &Ciphertext{res}
}

// Constant returns a noiseless encryption of a public bit.
func (eval *Evaluator) Constant(value bool) *Ciphertext {
	q := eval.params.Q()
	pt := rlwe.NewPlaintext(eval.params.rlwe, eval.params.rlwe.MaxLevel())
	if value {
		pt.Value.Coeffs[0][0] = q / 8
	} else {
		pt.Value.Coeffs[0][0] = q - q/8
	}
	eval.ringQ.NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(eval.params.rlwe, 1, eval.params.rlwe.MaxLevel())
	ct.Value[0] = *pt.Value.CopyNew()
	ct.IsNTT = true
	return &Ciphertext{ct}
}

// NOT negates a bit without bootstrapping.
func (eval *Evaluator) NOT(ct *Ciphertext) *Ciphertext {
	res := rlwe.NewCiphertext(eval.params.rlwe, 1, ct.Level())
	eval.ringQ.Neg(ct.Value[0], res.Value[0])
	eval.ringQ.Neg(ct.Value[1], res.Value[1])
	res.IsNTT = ct.IsNTT
	return &Ciphertext{res}
}

// AND returns a AND b.
func (eval *Evaluator) AND(a, b *Ciphertext) (*Ciphertext, error) {
	return eval.bootstrap(eval.add(a, b), eval.bsk.TestPolyAND)
}

// OR returns a OR b.
func (eval *Evaluator) OR(a, b *Ciphertext) (*Ciphertext, error) {
	return eval.bootstrap(eval.add(a, b), eval.bsk.TestPolyOR)
}

// XOR returns a XOR b with a single bootstrap of 2(a+b).
func (eval *Evaluator) XOR(a, b *Ciphertext) (*Ciphertext, error) {
	sum := eval.add(a, b)
	return eval.bootstrap(eval.add(sum, sum), eval.bsk.TestPolyXOR)
}

// XNOR returns NOT(a XOR b).
func (eval *Evaluator) XNOR(a, b *Ciphertext) (*Ciphertext, error) {
	sum := eval.add(a, b)
	return eval.bootstrap(eval.add(sum, sum), eval.bsk.TestPolyXNOR)
}

// MAJORITY returns 1 when at least two inputs are 1, with a single
// bootstrap. It is the carry of a full adder.
func (eval *Evaluator) MAJORITY(a, b, c *Ciphertext) (*Ciphertext, error) {
	return eval.bootstrap(eval.add(a, b, c), eval.bsk.TestPolyMAJORITY)
}

// MUX returns a when sel is 1 and b otherwise.
func (eval *Evaluator) MUX(sel, a, b *Ciphertext) (*Ciphertext, error) {
	left, err := eval.AND(sel, a)
	if err != nil {
		return nil, err
	}
	right, err := eval.AND(eval.NOT(sel), b)
	if err != nil {
		return nil, err
	}
	return eval.OR(left, right)
}

// Refresh bootstraps a bit to reset its noise.
func (eval *Evaluator) Refresh(ct *Ciphertext) (*Ciphertext, error) {
	return eval.OR(ct, eval.Constant(false))
}
