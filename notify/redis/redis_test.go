package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/TincheHK/prefw/notify"

	"github.com/redis/go-redis/v9"
)

func TestPublish(t *testing.T) {
	addr := os.Getenv("PREFW_REDIS_STORAGE_TEST_ADDR")
	if addr == "" {
		t.Skip("PREFW_REDIS_STORAGE_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "test/group/staff")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := New(client, "test").Publish(ctx, "staff", notify.NewWorkInstanceUpdate(ts)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-sub.Channel():
		m := new(notify.Message)
		if err := json.Unmarshal([]byte(msg.Payload), m); err != nil {
			t.Fatal(err)
		}
		if have, want := m.Action, notify.ActionUpdate; have != want {
			t.Errorf("have: %v, want: %v", have, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
