// Package inmem implements a work definition storage backend backed by an in-memory key-value store.
package inmem

import (
	"github.com/TincheHK/prefw/subsystem/work/storage/kv"
	"github.com/TincheHK/prefw/utils/kv/kvmap"
)

// InMem is a work definition storage backend backed by an in-memory key-value store.
type InMem struct {
	*kv.KV
}

func New() *InMem {
	return &InMem{KV: kv.New(kvmap.NewBucket())}
}
