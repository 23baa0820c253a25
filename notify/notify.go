// Package notify emits work instance update notifications to permission groups.
package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/TincheHK/prefw/log/logkeys"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

const (
	// ActionUpdate is the action of a state change notification.
	ActionUpdate = "update"

	// CollectionWorkInstance is the collection tag of work instance notifications.
	CollectionWorkInstance = "WorkInstance"
)

// Message is a notification payload.
type Message struct {
	Action     string    `json:"action"`
	Collection string    `json:"@collection"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewWorkInstanceUpdate creates an update message for a work instance
// saved at ts.
func NewWorkInstanceUpdate(ts time.Time) *Message {
	return &Message{
		Action:     ActionUpdate,
		Collection: CollectionWorkInstance,
		Timestamp:  ts,
	}
}

// Channel returns the messaging channel of group.
func Channel(group string) string {
	return "/group/" + group
}

// Publisher delivers a message to the members of a permission group.
type Publisher interface {
	Publish(ctx context.Context, group string, m *Message) error
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, group string, m *Message) error

// Publish calls f(ctx, group, m).
func (f PublisherFunc) Publish(ctx context.Context, group string, m *Message) error {
	return f(ctx, group, m)
}

// Multi publishes to every publisher in turn.
type Multi []Publisher

// Publish publishes m to all publishers and joins their errors.
func (p Multi) Publish(ctx context.Context, group string, m *Message) error {
	var errs []error
	for _, pub := range p {
		if err := pub.Publish(ctx, group, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Union returns the sorted union of groups without duplicates or empty names.
func Union(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var r []string
	for _, g := range groups {
		for _, name := range g {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			r = append(r, name)
		}
	}
	sort.Strings(r)
	return r
}

// Fanout emits m once per group using pub and returns the number of
// successful deliveries. Delivery is fire-and-forget: failures are
// logged and never retried.
func Fanout(ctx context.Context, pub Publisher, logger log.Logger, groups []string, m *Message) int {
	if pub == nil || len(groups) < 1 {
		return 0
	}
	logger = ctxlog.Logger(ctx, logger)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, group := range groups {
		wg.Add(1)
		go func(group string) {
			defer wg.Done()
			if err := pub.Publish(ctx, group, m); err != nil {
				logger.Info(
					logkeys.Message, "publish notification",
					logkeys.Group, group,
					logkeys.Error, err,
				)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(group)
	}
	wg.Wait()
	return ok
}

// LogPublisher logs notifications instead of delivering them.
type LogPublisher struct {
	logger log.Logger
}

// NewLogPublisher creates a new log publisher.
func NewLogPublisher(logger log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, group string, m *Message) error {
	ctxlog.Logger(ctx, p.logger).Debug(
		logkeys.Message, "notification",
		logkeys.Group, group,
		"channel", Channel(group),
		"action", m.Action,
		"collection", m.Collection,
		"timestamp", m.Timestamp,
	)
	return nil
}
