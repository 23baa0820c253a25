// Package diskv implements an engine storage backend using the diskv key-value store.
package diskv

import (
	"path/filepath"

	"github.com/TincheHK/prefw/engine/storage/kv"
	"github.com/TincheHK/prefw/utils/kv/kvdiskv"
)

// Diskv is a a diskv-backed engine storage backend.
type Diskv struct {
	*kv.KV
}

// New creates a new engine storage backend in path.
func New(path string) *Diskv {
	return &Diskv{KV: kv.New(
		kvdiskv.New(filepath.Join(path, "engine", "instance")),
		kvdiskv.New(filepath.Join(path, "engine", "task")),
	)}
}
