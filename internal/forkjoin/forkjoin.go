// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package forkjoin runs independent encrypted sub-operations concurrently.
//
// Groups themselves are unbounded: a task may call Join, and a bounded group
// deadlocks once every slot waits on its children. The work at the leaves is
// bounded instead; the TFHE evaluator admits a fixed number of concurrent
// bootstraps (see fhe.WithParallelism).
package forkjoin

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ErrEmpty is returned by Reduce on an empty input.
var ErrEmpty = errors.New("forkjoin: empty input")

// Join runs all functions concurrently and returns the first error.
func Join(fns ...func() error) error {
	if len(fns) == 1 {
		return fns[0]()
	}
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}

// Map applies fn to every element concurrently, preserving order.
func Map[T, R any](in []T, fn func(i int, v T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	var g errgroup.Group
	for i := range in {
		g.Go(func() error {
			r, err := fn(i, in[i])
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Reduce folds the input with an associative function as a balanced tree,
// evaluating the halves of every level concurrently.
func Reduce[T any](in []T, fn func(a, b T) (T, error)) (T, error) {
	var zero T
	switch len(in) {
	case 0:
		return zero, ErrEmpty
	case 1:
		return in[0], nil
	case 2:
		return fn(in[0], in[1])
	}
	mid := len(in) / 2
	var left, right T
	err := Join(
		func() (err error) {
			left, err = Reduce(in[:mid], fn)
			return err
		},
		func() (err error) {
			right, err = Reduce(in[mid:], fn)
			return err
		},
	)
	if err != nil {
		return zero, err
	}
	return fn(left, right)
}
