package diskv

import (
	"testing"

	"github.com/TincheHK/prefw/subsystem/work/storage"
	"github.com/TincheHK/prefw/subsystem/work/storage/test"
)

func TestDiskv(t *testing.T) {
	test.TestWorkStorage(t, func() storage.Storage { return New(t.TempDir()) })
}
