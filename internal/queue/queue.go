// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package queue carries review and sign jobs from the gateway to workers.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrQueueEmpty is returned by Pop when no job arrived within the poll
	// timeout.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = errors.New("job not found")
)

// DefaultPollTimeout bounds how long Pop waits before returning ErrQueueEmpty.
const DefaultPollTimeout = 2 * time.Second

// jobTTL is how long finished jobs remain visible to pollers.
const jobTTL = 24 * time.Hour

// Kind selects what a worker does with a job.
type Kind string

const (
	// KindReview evaluates balance < threshold. Input "balance".
	KindReview Kind = "review"
	// KindSign signs an encrypted message. Inputs "message", "key", "nonce";
	// results "r" and "s".
	KindSign Kind = "sign"
)

// Valid reports whether k is a known job kind.
func (k Kind) Valid() bool { return k == KindReview || k == KindSign }

// JobStatus is the lifecycle state of a job.
type JobStatus uint8

const (
	StatusPending JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Job is one request. Inputs and Results map names to storage handles.
type Job struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Inputs    map[string]string `json:"inputs"`
	Results   map[string]string `json:"results,omitempty"`
	Status    JobStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Queue is a FIFO of jobs with lookup by ID.
type Queue interface {
	// Push records job as pending and enqueues it.
	Push(ctx context.Context, job *Job) error
	// Pop dequeues the oldest job, or returns ErrQueueEmpty after the poll
	// timeout.
	Pop(ctx context.Context) (*Job, error)
	// Update stores a new job state.
	Update(ctx context.Context, job *Job) error
	// Get looks a job up by ID.
	Get(ctx context.Context, id string) (*Job, error)
	Close() error
}

// RedisQueue implements Queue on a Redis list plus one key per job.
type RedisQueue struct {
	client      *redis.Client
	queueKey    string
	jobPrefix   string
	pollTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Queue names the list; several deployments can share a server.
	Queue string
	// PollTimeout defaults to DefaultPollTimeout.
	PollTimeout time.Duration
}

// NewRedisQueue connects and pings the server.
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr)
	}

	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = DefaultPollTimeout
	}
	return &RedisQueue{
		client:      client,
		queueKey:    "fhe:queue:" + cfg.Queue,
		jobPrefix:   "fhe:job:" + cfg.Queue + ":",
		pollTimeout: poll,
	}, nil
}

func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	stamp(job, true)
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job")
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobPrefix+job.ID, data, jobTTL)
	pipe.LPush(ctx, q.queueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "push job %s", job.ID)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, q.pollTimeout, q.queueKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrQueueEmpty
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		return nil, errors.Wrap(err, "pop job")
	case len(result) < 2:
		return nil, ErrQueueEmpty
	}
	return q.Get(ctx, result[1])
}

func (q *RedisQueue) Update(ctx context.Context, job *Job) error {
	stamp(job, false)
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job")
	}
	if err := q.client.Set(ctx, q.jobPrefix+job.ID, data, jobTTL).Err(); err != nil {
		return errors.Wrapf(err, "update job %s", job.ID)
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(ErrJobNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrapf(err, "unmarshal job %s", id)
	}
	return &job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func stamp(job *Job, created bool) {
	now := time.Now().UTC()
	if created {
		job.CreatedAt = now
		job.Status = StatusPending
	}
	job.UpdatedAt = now
}

// Open returns a Redis queue when cfg.Addr is set and an in-process queue
// of the given capacity otherwise.
func Open(ctx context.Context, cfg RedisConfig, capacity int) (Queue, error) {
	if cfg.Addr == "" {
		return NewMemoryQueue(capacity, cfg.PollTimeout), nil
	}
	return NewRedisQueue(ctx, cfg)
}
