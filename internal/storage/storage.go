// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package storage keeps serialized ciphertexts under content-derived handles.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

var (
	ErrNotFound      = errors.New("ciphertext not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid ciphertext handle")
)

// Handle is the hex sha256 of the stored bytes.
type Handle string

// ComputeHandle returns the handle of data.
func ComputeHandle(data []byte) Handle {
	sum := sha256.Sum256(data)
	return Handle(hex.EncodeToString(sum[:]))
}

// Validate rejects anything that is not a lowercase hex sha256 digest.
// File storage relies on this to keep handles inside its directory.
func (h Handle) Validate() error {
	if len(h) != 2*sha256.Size {
		return errors.Wrapf(ErrInvalidHandle, "%q", string(h))
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return errors.Wrapf(ErrInvalidHandle, "%q", string(h))
		}
	}
	return nil
}

// Storage is a content-addressed blob store.
type Storage interface {
	// Store saves data and returns its handle. Storing the same bytes twice
	// is a no-op.
	Store(ctx context.Context, data []byte) (Handle, error)
	Load(ctx context.Context, handle Handle) ([]byte, error)
	Delete(ctx context.Context, handle Handle) error
	Exists(ctx context.Context, handle Handle) (bool, error)
	Close() error
}

// Kinds accepted by New.
const (
	KindMemory = "memory"
	KindFile   = "file"
)

// New opens a storage of the given kind. capacity is a human readable size
// such as "256MiB" and only applies to memory storage.
func New(kind, path, capacity string) (Storage, error) {
	switch kind {
	case KindMemory, "":
		limit, err := humanize.ParseBytes(capacity)
		if err != nil {
			return nil, errors.Wrapf(err, "storage capacity %q", capacity)
		}
		return NewMemoryStorage(int64(limit)), nil
	case KindFile:
		return NewFileStorage(path)
	}
	return nil, errors.Newf("unknown storage kind %q", kind)
}

// MemoryStorage keeps blobs in a map, bounded by a byte capacity.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[Handle][]byte
	capacity int64
	size     int64
}

// NewMemoryStorage returns a store holding at most capacity bytes.
func NewMemoryStorage(capacity int64) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[Handle][]byte),
		capacity: capacity,
	}
}

func (s *MemoryStorage) Store(_ context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[handle]; ok {
		return handle, nil
	}
	if s.size+int64(len(data)) > s.capacity {
		return "", errors.Wrapf(ErrStorageFull, "%s used of %s",
			humanize.IBytes(uint64(s.size)), humanize.IBytes(uint64(s.capacity)))
	}
	s.data[handle] = append([]byte(nil), data...)
	s.size += int64(len(data))
	return handle, nil
}

func (s *MemoryStorage) Load(_ context.Context, handle Handle) ([]byte, error) {
	if err := handle.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[handle]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", handle)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, handle Handle) error {
	if err := handle.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[handle]
	if !ok {
		return errors.Wrapf(ErrNotFound, "%s", handle)
	}
	s.size -= int64(len(data))
	delete(s.data, handle)
	return nil
}

func (s *MemoryStorage) Exists(_ context.Context, handle Handle) (bool, error) {
	if err := handle.Validate(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[handle]
	return ok, nil
}

// Usage returns the stored byte count and the capacity.
func (s *MemoryStorage) Usage() (used, capacity int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, s.capacity
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[Handle][]byte)
	s.size = 0
	return nil
}

// FileStorage keeps one file per blob, sharded by the first handle byte.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates baseDir if needed.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, errors.New("file storage needs a directory")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) (string, error) {
	if err := handle.Validate(); err != nil {
		return "", err
	}
	h := string(handle)
	return filepath.Join(s.baseDir, h[:2], h), nil
}

func (s *FileStorage) Store(_ context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path, _ := s.path(handle)
	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", errors.Wrap(err, "create shard dir")
	}

	// Write to a unique temp file and rename so readers never see a
	// partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+string(handle)+".*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, "rename temp file")
	}
	return handle, nil
}

func (s *FileStorage) Load(_ context.Context, handle Handle) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s", handle)
	}
	return data, errors.Wrap(err, "read blob")
}

func (s *FileStorage) Delete(_ context.Context, handle Handle) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "%s", handle)
	}
	return errors.Wrap(err, "remove blob")
}

func (s *FileStorage) Exists(_ context.Context, handle Handle) (bool, error) {
	path, err := s.path(handle)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "stat blob")
}

func (s *FileStorage) Close() error { return nil }
