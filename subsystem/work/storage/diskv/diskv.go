// Package diskv implements a work definition storage backend backed by an on-disk key-value store.
package diskv

import (
	"path/filepath"

	"github.com/TincheHK/prefw/subsystem/work/storage/kv"
	"github.com/TincheHK/prefw/utils/kv/kvdiskv"
)

// Diskv is a work definition storage backend backed by an on-disk key-value store.
type Diskv struct {
	*kv.KV
}

// New creates a new initialized work definition data store.
func New(path string) *Diskv {
	return &Diskv{KV: kv.New(kvdiskv.New(filepath.Join(path, "work")))}
}
