package inmem

import (
	"testing"

	"github.com/TincheHK/prefw/subsystem/work/storage"
	"github.com/TincheHK/prefw/subsystem/work/storage/test"
)

func TestInMem(t *testing.T) {
	test.TestWorkStorage(t, func() storage.Storage { return New() })
}
