// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()
	blob := []byte("encrypted balance")

	h, err := s.Store(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, ComputeHandle(blob), h)
	require.NoError(t, h.Validate())

	again, err := s.Store(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, h, again)

	got, err := s.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	ok, err := s.Exists(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, h))
	_, err = s.Load(ctx, h)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, h), ErrNotFound)
	ok, err = s.Exists(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []Handle{"", "../../etc/passwd", Handle(string(h[:63]) + "G")} {
		_, err = s.Load(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidHandle, "%q", bad)
	}
	require.NoError(t, s.Close())
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage(1<<10))
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(8)
	_, err := s.Store(ctx, []byte("12345"))
	require.NoError(t, err)
	_, err = s.Store(ctx, []byte("67890"))
	assert.ErrorIs(t, err, ErrStorageFull)
	used, capacity := s.Usage()
	assert.Equal(t, int64(5), used)
	assert.Equal(t, int64(8), capacity)
}

func TestNew(t *testing.T) {
	s, err := New(KindMemory, "", "1 KiB")
	require.NoError(t, err)
	_, capacity := s.(*MemoryStorage).Usage()
	assert.Equal(t, int64(1024), capacity)

	_, err = New(KindMemory, "", "lots")
	assert.Error(t, err)

	s, err = New(KindFile, t.TempDir(), "")
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	_, err = New("s3", "", "")
	assert.Error(t, err)
}
