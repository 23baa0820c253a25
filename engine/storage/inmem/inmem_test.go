package inmem

import (
	"testing"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/engine/storage/test"
)

func TestInmemStorage(t *testing.T) {
	s := New()
	test.TestEngineStorage(t, func() storage.Storage { return s })
}
