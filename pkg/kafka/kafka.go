// Package kafka wraps segmentio/kafka-go for publishing order events.
package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka: no brokers configured")

type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list.
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool { return len(c.Brokers) > 0 }

// NewWriter returns a writer hashing on message key. With an empty topic
// each message must carry its own.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// messageWriter is the subset of *kafka.Writer the Publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends raw payloads to per-message topics.
type Publisher struct {
	w messageWriter
}

// NewPublisher builds a Publisher on a topic-less writer.
func (c *Client) NewPublisher() (*Publisher, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return &Publisher{w: c.NewWriter("")}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *Publisher) Close() error { return p.w.Close() }
