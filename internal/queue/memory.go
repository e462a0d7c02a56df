// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// MemoryQueue implements Queue in process. It backs single-binary
// deployments and tests.
type MemoryQueue struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	pending     chan string
	pollTimeout time.Duration
}

// NewMemoryQueue returns a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int, pollTimeout time.Duration) *MemoryQueue {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &MemoryQueue{
		jobs:        make(map[string]*Job),
		pending:     make(chan string, capacity),
		pollTimeout: pollTimeout,
	}
}

func (q *MemoryQueue) store(job *Job) {
	cp := job.clone()
	q.mu.Lock()
	q.jobs[job.ID] = cp
	q.mu.Unlock()
}

func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	stamp(job, true)
	q.store(job)
	select {
	case q.pending <- job.ID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	timer := time.NewTimer(q.pollTimeout)
	defer timer.Stop()
	select {
	case id := <-q.pending:
		return q.Get(ctx, id)
	case <-timer.C:
		return nil, ErrQueueEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Update(_ context.Context, job *Job) error {
	stamp(job, false)
	q.store(job)
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, errors.Wrapf(ErrJobNotFound, "%s", id)
	}
	return job.clone(), nil
}

func (q *MemoryQueue) Close() error { return nil }

func (j *Job) clone() *Job {
	cp := *j
	cp.Inputs = maps.Clone(j.Inputs)
	cp.Results = maps.Clone(j.Results)
	return &cp
}

// Len returns the number of jobs waiting to be popped.
func (q *MemoryQueue) Len() int { return len(q.pending) }
