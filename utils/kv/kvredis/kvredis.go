// Package kvredis implements a key-value store backed by Redis.
package kvredis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TincheHK/prefw/utils/kv"

	"github.com/redis/go-redis/v9"
)

// scanCount is the SCAN batch size hint used when traversing keys.
const scanCount = 100

// KVRedis is a key-value bucket within a Redis keyspace.
// Keys of the bucket are stored with a prefix so multiple buckets
// may share one Redis database.
type KVRedis struct {
	client redis.UniversalClient
	prefix string
}

// NewBucket creates a bucket whose keys are stored under prefix.
func NewBucket(client redis.UniversalClient, prefix string) *KVRedis {
	return &KVRedis{client: client, prefix: prefix}
}

func (s *KVRedis) key(k string) string {
	return s.prefix + k
}

func (s *KVRedis) Get(ctx context.Context, k string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", kv.ErrKeyNotFound, k)
	}
	return v, err
}

func (s *KVRedis) Set(ctx context.Context, k string, v []byte) error {
	return s.client.Set(ctx, s.key(k), v, 0).Err()
}

func (s *KVRedis) Has(ctx context.Context, k string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(k)).Result()
	return n > 0, err
}

func (s *KVRedis) Delete(ctx context.Context, k string) error {
	return s.client.Del(ctx, s.key(k)).Err()
}

// Keys traverses the bucket keys using SCAN.
// Traversal stops early on cancel or on a Redis error.
func (s *KVRedis) Keys(cancel <-chan struct{}) <-chan string {
	r := make(chan string)
	go func() {
		defer close(r)
		ctx, stop := context.WithCancel(context.Background())
		defer stop()
		iter := s.client.Scan(ctx, 0, s.prefix+"*", scanCount).Iterator()
		for iter.Next(ctx) {
			select {
			case <-cancel:
				return
			case r <- strings.TrimPrefix(iter.Val(), s.prefix):
			}
		}
	}()
	return r
}
