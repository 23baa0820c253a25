// Package redis publishes notifications with Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TincheHK/prefw/notify"

	"github.com/redis/go-redis/v9"
)

// Publisher publishes notifications on Redis channels named after
// the group channel, optionally prefixed.
type Publisher struct {
	client redis.UniversalClient
	prefix string
}

// New creates a new Redis publisher.
func New(client redis.UniversalClient, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix}
}

// Publish publishes m on the channel of group.
func (p *Publisher) Publish(ctx context.Context, group string, m *notify.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	channel := p.prefix + notify.Channel(group)
	if err = p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", channel, err)
	}
	return nil
}
