// Package kafka publishes notifications to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/TincheHK/prefw/notify"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Publisher writes one Kafka message per notification keyed by channel.
type Publisher struct {
	writer *kafka.Writer
}

// New creates a new Kafka publisher writing to topic on brokers.
func New(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same channel, same partition
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond, // one message per publish
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,

		AllowAutoTopicCreation: true,
	}}
}

// Publish writes m keyed by the channel of group.
// The active trace context is carried in the message headers.
func (p *Publisher) Publish(ctx context.Context, group string, m *notify.Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(notify.Channel(group)),
		Value:   value,
		Headers: traceHeaders(ctx),
		Time:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// traceHeaders returns the trace context of ctx as Kafka headers
// sorted by key.
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	keys := carrier.Keys()
	sort.Strings(keys)
	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}
	return headers
}
