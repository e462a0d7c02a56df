// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseQueue(t *testing.T, q Queue) {
	ctx := context.Background()

	_, err := q.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	first := &Job{ID: uuid.NewString(), Kind: KindReview, Inputs: map[string]string{"balance": "h1"}}
	second := &Job{ID: uuid.NewString(), Kind: KindSign, Inputs: map[string]string{"message": "h2"}}
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))
	assert.Equal(t, StatusPending, first.Status)
	assert.False(t, first.CreatedAt.IsZero())

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, KindReview, got.Kind)
	assert.Equal(t, "h1", got.Inputs["balance"])

	got.Status = StatusCompleted
	got.Results = map[string]string{"decision": "h3"}
	require.NoError(t, q.Update(ctx, got))

	stored, err := q.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, "h3", stored.Results["decision"])

	got, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(8, 20*time.Millisecond)
	exerciseQueue(t, q)
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Close())
}

func TestMemoryQueueIsolation(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1, time.Millisecond)
	job := &Job{ID: "a", Kind: KindReview, Inputs: map[string]string{"balance": "x"}}
	require.NoError(t, q.Push(ctx, job))
	job.Inputs["balance"] = "mutated"

	got, err := q.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Inputs["balance"])
}

func TestMemoryQueueCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := NewMemoryQueue(1, time.Hour)
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("FHE_TEST_REDIS")
	if addr == "" {
		t.Skip("FHE_TEST_REDIS not set")
	}
	q, err := NewRedisQueue(context.Background(), RedisConfig{
		Addr:        addr,
		Queue:       "test-" + uuid.NewString(),
		PollTimeout: time.Second,
	})
	require.NoError(t, err)
	defer q.Close()
	exerciseQueue(t, q)
}

func TestKind(t *testing.T) {
	assert.True(t, KindReview.Valid())
	assert.True(t, KindSign.Valid())
	assert.False(t, Kind("add").Valid())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestOpenMemory(t *testing.T) {
	q, err := Open(context.Background(), RedisConfig{}, 4)
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)
}
