package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestNewClientParsesBrokers(t *testing.T) {
	c := NewClient(" kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Brokers)
	assert.True(t, c.Enabled())

	_, err := NewClient("").NewPublisher()
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPublisherSetsTopicAndKey(t *testing.T) {
	w := &captureWriter{}
	p := &Publisher{w: w}

	assert.NoError(t, p.Publish(context.Background(), "storefront.orders", "order-1", []byte(`{"type":"order.created"}`)))
	assert.NoError(t, p.Close())

	if assert.Len(t, w.msgs, 1) {
		assert.Equal(t, "storefront.orders", w.msgs[0].Topic)
		assert.Equal(t, []byte("order-1"), w.msgs[0].Key)
		assert.False(t, w.msgs[0].Time.IsZero())
	}
	assert.True(t, w.closed)
}

func TestNewWriterHashesOnKey(t *testing.T) {
	w := NewClient("localhost:9092").NewWriter("")
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}
