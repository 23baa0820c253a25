// Package redis implements an engine storage backend using Redis.
package redis

import (
	"github.com/TincheHK/prefw/engine/storage/kv"
	"github.com/TincheHK/prefw/utils/kv/kvredis"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the default key prefix of engine storage keys.
const DefaultPrefix = "prefw:engine:"

// Redis is a Redis-backed engine storage backend.
type Redis struct {
	*kv.KV
}

// New creates a new engine storage backend using client.
// Keys are stored under prefix, or DefaultPrefix if empty.
func New(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{KV: kv.New(
		kvredis.NewBucket(client, prefix+"instance:"),
		kvredis.NewBucket(client, prefix+"task:"),
	)}
}
