package kvmap

import (
	"testing"

	"github.com/TincheHK/prefw/utils/kv/test"
)

func TestKVMap(t *testing.T) {
	test.TestBucket(t, NewBucket())
}
