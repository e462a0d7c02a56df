// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package forkjoin

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	var n atomic.Int32
	err := Join(
		func() error { n.Add(1); return nil },
		func() error { n.Add(2); return nil },
		func() error { n.Add(4); return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, int32(7), n.Load())

	boom := errors.New("boom")
	err = Join(func() error { return nil }, func() error { return boom })
	assert.True(t, errors.Is(err, boom))
}

func TestNestedJoin(t *testing.T) {
	var n atomic.Int32
	var leaf func(depth int) error
	leaf = func(depth int) error {
		if depth == 0 {
			n.Add(1)
			return nil
		}
		return Join(
			func() error { return leaf(depth - 1) },
			func() error { return leaf(depth - 1) },
		)
	}
	require.NoError(t, leaf(8))
	assert.Equal(t, int32(256), n.Load())
}

func TestMapPreservesOrder(t *testing.T) {
	out, err := Map([]int{1, 2, 3, 4}, func(i int, v int) (int, error) {
		return v*v + i, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 11, 19}, out)
}

func TestReduce(t *testing.T) {
	sum := func(a, b int) (int, error) { return a + b, nil }
	for n := 1; n <= 17; n++ {
		in := make([]int, n)
		want := 0
		for i := range in {
			in[i] = i + 1
			want += i + 1
		}
		got, err := Reduce(in, sum)
		require.NoError(t, err)
		assert.Equal(t, want, got, "n=%d", n)
	}

	_, err := Reduce([]int{}, sum)
	assert.True(t, errors.Is(err, ErrEmpty))
}
