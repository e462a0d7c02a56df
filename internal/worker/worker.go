// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package worker executes queued review and sign jobs.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/approval"
	"github.com/luxfi/fhe-ecdsa/engine"
	"github.com/luxfi/fhe-ecdsa/internal/metrics"
	"github.com/luxfi/fhe-ecdsa/internal/queue"
	"github.com/luxfi/fhe-ecdsa/internal/storage"
)

// Input and result names used in queue.Job maps.
const (
	InputBalance  = "balance"
	InputMessage  = "message"
	InputKey      = "key"
	InputNonce    = "nonce"
	ResultVerdict = "decision"
	ResultR       = "r"
	ResultS       = "s"
)

// Pool runs a fixed number of workers against one queue.
type Pool struct {
	workers int
	queue   queue.Queue
	store   storage.Storage
	codec   engine.Codec
	service *approval.Service
	metrics *metrics.Metrics
	log     *zap.Logger

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of concurrent jobs.
func WithWorkers(n int) Option { return func(p *Pool) { p.workers = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(p *Pool) { p.log = l } }

// WithMetrics records job outcomes.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Pool) { p.metrics = m } }

// New returns a stopped pool.
func New(q queue.Queue, store storage.Storage, codec engine.Codec, service *approval.Service, opts ...Option) *Pool {
	p := &Pool{
		workers: 1,
		queue:   q,
		store:   store,
		codec:   codec,
		service: service,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start launches the workers. They stop when ctx is done or Stop is called.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("worker pool already running")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.log.Info("starting workers", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	return nil
}

// Stop cancels the workers and waits up to timeout for running jobs.
func (p *Pool) Stop(timeout time.Duration) error {
	if !p.running.Load() {
		return nil
	}
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.running.Store(false)
		p.log.Info("worker pool stopped")
		return nil
	case <-time.After(timeout):
		return errors.Newf("worker pool: shutdown exceeded %s", timeout)
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))
	for ctx.Err() == nil {
		job, err := p.queue.Pop(ctx)
		switch {
		case err == nil:
			p.Process(ctx, job)
		case errors.Is(err, queue.ErrQueueEmpty), ctx.Err() != nil:
		default:
			log.Warn("pop job", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
	}
}

// Process runs one job to completion and records its final state.
func (p *Pool) Process(ctx context.Context, job *queue.Job) {
	log := p.log.With(zap.String("job", job.ID), zap.String("kind", string(job.Kind)))
	start := time.Now()
	if p.metrics != nil {
		p.metrics.JobStarted()
	}

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("mark processing", zap.Error(err))
	}

	results, err := p.execute(ctx, job)
	if err != nil {
		job.Status = queue.StatusFailed
		job.Error = err.Error()
		log.Error("job failed", zap.Error(err))
	} else {
		job.Status = queue.StatusCompleted
		job.Results = results
		log.Info("job completed", zap.Duration("elapsed", time.Since(start)))
	}
	if p.metrics != nil {
		p.metrics.JobFinished(string(job.Kind), job.Status.String(), time.Since(start))
	}
	if err := p.queue.Update(ctx, job); err != nil {
		log.Error("record result", zap.Error(err))
	}
}

func (p *Pool) execute(ctx context.Context, job *queue.Job) (map[string]string, error) {
	switch job.Kind {
	case queue.KindReview:
		balance, err := p.load(ctx, job, InputBalance)
		if err != nil {
			return nil, err
		}
		decision, err := p.service.ReviewApplication(balance)
		if err != nil {
			return nil, errors.Wrap(err, "review")
		}
		h, err := p.save(ctx, decision)
		if err != nil {
			return nil, err
		}
		return map[string]string{ResultVerdict: string(h)}, nil

	case queue.KindSign:
		var in [3]engine.Ciphertext
		for i, name := range []string{InputMessage, InputKey, InputNonce} {
			ct, err := p.load(ctx, job, name)
			if err != nil {
				return nil, err
			}
			in[i] = ct
		}
		sig, err := p.service.SignResult(in[1], in[2], in[0])
		if err != nil {
			return nil, errors.Wrap(err, "sign")
		}
		r, err := p.save(ctx, sig.R)
		if err != nil {
			return nil, err
		}
		s, err := p.save(ctx, sig.S)
		if err != nil {
			return nil, err
		}
		return map[string]string{ResultR: string(r), ResultS: string(s)}, nil
	}
	return nil, errors.Newf("unsupported job kind %q", job.Kind)
}

func (p *Pool) load(ctx context.Context, job *queue.Job, name string) (engine.Ciphertext, error) {
	h, ok := job.Inputs[name]
	if !ok {
		return nil, errors.Newf("missing input %q", name)
	}
	data, err := p.store.Load(ctx, storage.Handle(h))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	ct, err := p.codec.UnmarshalCiphertext(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	p.log.Debug("loaded input", zap.String("input", name), zap.String("size", humanize.IBytes(uint64(len(data)))))
	return ct, nil
}

func (p *Pool) save(ctx context.Context, ct engine.Ciphertext) (storage.Handle, error) {
	data, err := p.codec.MarshalCiphertext(ct)
	if err != nil {
		return "", errors.Wrap(err, "encode result")
	}
	h, err := p.store.Store(ctx, data)
	return h, errors.Wrap(err, "store result")
}
