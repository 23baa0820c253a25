// Package bayeux publishes notifications to a Faye/Bayeux server over HTTP.
package bayeux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/TincheHK/prefw/notify"
)

// Publisher publishes notifications by POSTing Bayeux publish messages.
type Publisher struct {
	url    string
	client *http.Client
}

// Option configures a publisher.
type Option func(*Publisher)

// WithClient sets the HTTP client used for publishing.
func WithClient(client *http.Client) Option {
	return func(p *Publisher) {
		p.client = client
	}
}

// New creates a new Bayeux publisher for the server at url.
func New(url string, opts ...Option) *Publisher {
	p := &Publisher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type publishMessage struct {
	Channel string          `json:"channel"`
	Data    *notify.Message `json:"data"`
}

// Publish sends m on the channel of group.
func (p *Publisher) Publish(ctx context.Context, group string, m *notify.Message) error {
	body, err := json.Marshal(&publishMessage{Channel: notify.Channel(group), Data: m})
	if err != nil {
		return fmt.Errorf("marshal bayeux message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build bayeux request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("bayeux publish to %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("bayeux %s returned status %d", p.url, resp.StatusCode)
	}
	return nil
}
