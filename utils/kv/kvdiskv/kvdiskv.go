// Package kvdiskv wraps diskv to a standard interface for a key-value store.
package kvdiskv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/TincheHK/prefw/utils/kv"

	"github.com/peterbourgon/diskv/v3"
)

// KVDiskv wraps a diskv object to implement an on-disk key-value store.
type KVDiskv struct {
	diskv *diskv.Diskv
}

func NewBucket(dv *diskv.Diskv) *KVDiskv {
	return &KVDiskv{diskv: dv}
}

// New creates a bucket in path with a flat (single directory) layout.
func New(path string) *KVDiskv {
	return NewBucket(diskv.New(diskv.Options{
		BasePath:     path,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024,
	}))
}

func (s *KVDiskv) Get(_ context.Context, k string) ([]byte, error) {
	v, err := s.diskv.Read(k)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", kv.ErrKeyNotFound, k)
	}
	return v, err
}

func (s *KVDiskv) Set(_ context.Context, k string, v []byte) error {
	return s.diskv.Write(k, v)
}

func (s *KVDiskv) Has(_ context.Context, k string) (bool, error) {
	return s.diskv.Has(k), nil
}

func (s *KVDiskv) Delete(_ context.Context, k string) error {
	if !s.diskv.Has(k) {
		return nil
	}
	return s.diskv.Erase(k)
}

func (s *KVDiskv) Keys(cancel <-chan struct{}) <-chan string {
	return s.diskv.Keys(cancel)
}
