package diskv

import (
	"testing"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/engine/storage/test"
)

func TestDiskvStorage(t *testing.T) {
	dir := t.TempDir()
	test.TestEngineStorage(t, func() storage.Storage { return New(dir) })
}
