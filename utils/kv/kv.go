// Package kv defines an interface for key-value store.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrKeyNotFound is returned by buckets when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Bucket defines basic CRUD operations for key-value pairs in a single "namespace."
type Bucket interface {
	// Get returns the value of k. A missing key is ErrKeyNotFound.
	Get(ctx context.Context, k string) (v []byte, err error)
	Set(ctx context.Context, k string, v []byte) error
	Has(ctx context.Context, k string) (found bool, err error)
	// Delete removes k. Deleting a missing key is not an error.
	Delete(ctx context.Context, k string) error
}

// TraversingBucket allows us to get a list of the keys in the bucket as well.
type TraversingBucket interface {
	Bucket
	// Keys returns the unordered keys in the bucket
	Keys(cancel <-chan struct{}) <-chan string
}

// SetMap iterates over m to set the keys in b and returns any error.
func SetMap(ctx context.Context, b Bucket, m map[string][]byte) error {
	for k, v := range m {
		if err := b.Set(ctx, k, v); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

// GetMap iterates over keys to get the values in b and returns any error.
func GetMap(ctx context.Context, b Bucket, keys []string) (map[string][]byte, error) {
	var err error
	ret := make(map[string][]byte)
	for _, k := range keys {
		if ret[k], err = b.Get(ctx, k); err != nil {
			return ret, fmt.Errorf("getting %s: %w", k, err)
		}
	}
	return ret, nil
}

// DeleteSlice deletes s keys from b.
func DeleteSlice(ctx context.Context, b Bucket, s []string) error {
	for _, k := range s {
		if err := b.Delete(ctx, k); err != nil {
			return fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	return nil
}

// KeysWithPrefix returns the sorted keys in b starting with prefix.
func KeysWithPrefix(ctx context.Context, b TraversingBucket, prefix string) ([]string, error) {
	cancel := make(chan struct{})
	defer close(cancel)
	var keys []string
	for k := range b.Keys(cancel) {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// GetJSON unmarshals the JSON value of k in b into v.
func GetJSON(ctx context.Context, b Bucket, k string, v interface{}) error {
	raw, err := b.Get(ctx, k)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", k, err)
	}
	return nil
}

// SetJSON marshals v into JSON and sets it as k in b.
func SetJSON(ctx context.Context, b Bucket, k string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", k, err)
	}
	return b.Set(ctx, k, raw)
}
