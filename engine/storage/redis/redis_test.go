package redis

import (
	"os"
	"testing"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/engine/storage/test"

	"github.com/redis/go-redis/v9"
)

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("PREFW_REDIS_STORAGE_TEST_ADDR")
	if addr == "" {
		t.Skip("PREFW_REDIS_STORAGE_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	test.TestEngineStorage(t, func() storage.Storage { return New(client, "prefw:test:engine:") })
}
