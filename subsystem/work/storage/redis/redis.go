// Package redis implements a work definition storage backend using Redis.
package redis

import (
	"github.com/TincheHK/prefw/subsystem/work/storage/kv"
	"github.com/TincheHK/prefw/utils/kv/kvredis"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the default key prefix of work definition keys.
const DefaultPrefix = "prefw:work:"

// Redis is a Redis-backed work definition storage backend.
type Redis struct {
	*kv.KV
}

// New creates a new work definition storage backend using client.
// Keys are stored under prefix, or DefaultPrefix if empty.
func New(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{KV: kv.New(kvredis.NewBucket(client, prefix))}
}
