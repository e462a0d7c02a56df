// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package worker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhe-ecdsa/approval"
	"github.com/luxfi/fhe-ecdsa/curve"
	"github.com/luxfi/fhe-ecdsa/ecdsa"
	"github.com/luxfi/fhe-ecdsa/engine/plain"
	"github.com/luxfi/fhe-ecdsa/internal/metrics"
	"github.com/luxfi/fhe-ecdsa/internal/queue"
	"github.com/luxfi/fhe-ecdsa/internal/storage"
)

type harness struct {
	eng   *plain.Engine
	queue *queue.MemoryQueue
	store *storage.MemoryStorage
	pool  *Pool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	eng := plain.New(2)
	signer, err := ecdsa.NewSigner(eng, curve.Toy211())
	require.NoError(t, err)
	h := &harness{
		eng:   eng,
		queue: queue.NewMemoryQueue(16, 10*time.Millisecond),
		store: storage.NewMemoryStorage(1 << 20),
	}
	h.pool = New(h.queue, h.store, eng, approval.New(signer),
		WithWorkers(2), WithMetrics(metrics.New(prometheus.NewRegistry())))
	return h
}

func (h *harness) put(t *testing.T, v int64, blocks int) string {
	t.Helper()
	ct, err := h.eng.Encrypt(big.NewInt(v), blocks)
	require.NoError(t, err)
	data, err := h.eng.MarshalCiphertext(ct)
	require.NoError(t, err)
	handle, err := h.store.Store(context.Background(), data)
	require.NoError(t, err)
	return string(handle)
}

func (h *harness) get(t *testing.T, handle string) int64 {
	t.Helper()
	data, err := h.store.Load(context.Background(), storage.Handle(handle))
	require.NoError(t, err)
	ct, err := h.eng.UnmarshalCiphertext(data)
	require.NoError(t, err)
	v, err := h.eng.Decrypt(ct)
	require.NoError(t, err)
	return v.Int64()
}

func TestReviewThenSign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	review := &queue.Job{ID: "review", Kind: queue.KindReview, Inputs: map[string]string{InputBalance: h.put(t, 50, 4)}}
	require.NoError(t, h.queue.Push(ctx, review))
	h.pool.Process(ctx, review)

	got, err := h.queue.Get(ctx, "review")
	require.NoError(t, err)
	require.Equal(t, queue.StatusCompleted, got.Status, got.Error)
	decision := got.Results[ResultVerdict]
	assert.Equal(t, int64(1), h.get(t, decision))

	sign := &queue.Job{ID: "sign", Kind: queue.KindSign, Inputs: map[string]string{
		InputMessage: decision,
		InputKey:     h.put(t, 42, 4),
		InputNonce:   h.put(t, 77, 4),
	}}
	require.NoError(t, h.queue.Push(ctx, sign))
	h.pool.Process(ctx, sign)

	got, err = h.queue.Get(ctx, "sign")
	require.NoError(t, err)
	require.Equal(t, queue.StatusCompleted, got.Status, got.Error)
	assert.Equal(t, int64(155), h.get(t, got.Results[ResultR]))
	assert.Equal(t, int64(144), h.get(t, got.Results[ResultS]))
}

func TestFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cases := map[string]*queue.Job{
		"kind":    {ID: "a", Kind: "add"},
		"missing": {ID: "b", Kind: queue.KindReview},
		"unknown": {ID: "c", Kind: queue.KindReview, Inputs: map[string]string{InputBalance: string(storage.ComputeHandle([]byte("x")))}},
		"garbage": {ID: "d", Kind: queue.KindReview, Inputs: map[string]string{InputBalance: "zz"}},
	}
	for name, job := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.queue.Push(ctx, job))
			h.pool.Process(ctx, job)
			got, err := h.queue.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, queue.StatusFailed, got.Status)
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestPoolLoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.pool.Start(ctx))
	assert.Error(t, h.pool.Start(ctx))

	job := &queue.Job{ID: "loop", Kind: queue.KindReview, Inputs: map[string]string{InputBalance: h.put(t, 120, 4)}}
	require.NoError(t, h.queue.Push(ctx, job))

	require.Eventually(t, func() bool {
		got, err := h.queue.Get(ctx, "loop")
		return err == nil && got.Status == queue.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	got, err := h.queue.Get(ctx, "loop")
	require.NoError(t, err)
	assert.Equal(t, int64(0), h.get(t, got.Results[ResultVerdict]))
	require.NoError(t, h.pool.Stop(5*time.Second))
	require.NoError(t, h.pool.Stop(time.Second))
}
