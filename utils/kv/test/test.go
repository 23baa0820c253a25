// Package test provides a conformance test for key-value buckets.
package test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/TincheHK/prefw/utils/kv"
)

// TestBucket exercises the basic operations of b.
// b should be empty.
func TestBucket(t *testing.T, b kv.TraversingBucket) {
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	if !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("have: %v, want: %v", err, kv.ErrKeyNotFound)
	}

	if err = kv.SetMap(ctx, b, map[string][]byte{
		"a.1": []byte("one"),
		"a.2": []byte("two"),
		"b.1": []byte("three"),
	}); err != nil {
		t.Fatal(err)
	}

	v, err := b.Get(ctx, "a.2")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := v, []byte("two"); !bytes.Equal(have, want) {
		t.Errorf("have: %s, want: %s", have, want)
	}

	found, err := b.Has(ctx, "b.1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("expected key b.1")
	}

	keys, err := kv.KeysWithPrefix(ctx, b, "a.")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := len(keys), 2; have != want {
		t.Fatalf("keys: have: %v, want: %v", have, want)
	}
	if have, want := keys[0], "a.1"; have != want {
		t.Errorf("first key: have: %v, want: %v", have, want)
	}

	if err = kv.DeleteSlice(ctx, b, []string{"a.1", "a.2", "b.1"}); err != nil {
		t.Fatal(err)
	}
	// deleting a missing key is not an error
	if err = b.Delete(ctx, "a.1"); err != nil {
		t.Errorf("delete missing key: %v", err)
	}
	if found, _ = b.Has(ctx, "a.1"); found {
		t.Error("expected key a.1 to be deleted")
	}

	type doc struct {
		Name string `json:"name"`
	}
	if err = kv.SetJSON(ctx, b, "doc", &doc{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	d := new(doc)
	if err = kv.GetJSON(ctx, b, "doc", d); err != nil {
		t.Fatal(err)
	}
	if have, want := d.Name, "x"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if err = b.Delete(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
}
