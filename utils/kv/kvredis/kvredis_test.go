package kvredis

import (
	"os"
	"testing"

	"github.com/TincheHK/prefw/utils/kv/test"

	"github.com/redis/go-redis/v9"
)

func TestKVRedis(t *testing.T) {
	addr := os.Getenv("PREFW_REDIS_STORAGE_TEST_ADDR")
	if addr == "" {
		t.Skip("PREFW_REDIS_STORAGE_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	test.TestBucket(t, NewBucket(client, "prefw:test:kv:"))
}
