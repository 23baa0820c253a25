package redis

import (
	"os"
	"testing"

	"github.com/TincheHK/prefw/subsystem/work/storage"
	"github.com/TincheHK/prefw/subsystem/work/storage/test"

	"github.com/redis/go-redis/v9"
)

func TestRedis(t *testing.T) {
	addr := os.Getenv("PREFW_REDIS_STORAGE_TEST_ADDR")
	if addr == "" {
		t.Skip("PREFW_REDIS_STORAGE_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	test.TestWorkStorage(t, func() storage.Storage { return New(client, "prefw:test:work:") })
}
