// Package outbox stores events in the same transaction as the state change
// that produced them, and relays them to a message broker afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// Record is one pending or sent event.
type Record struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string     `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	Topic     string     `gorm:"size:128;not null" json:"topic"`
	Key       string     `gorm:"size:128" json:"key"`
	Payload   string     `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `gorm:"index" json:"sent_at"`
}

func (Record) TableName() string { return "outbox" }

// Insert writes ev to the outbox through tx. The record key is the order id
// so a partitioned broker keeps one order's events in sequence.
func Insert(tx *gorm.DB, topic string, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("outbox: encode %s: %w", ev.Type, err)
	}
	rec := Record{
		EventID: ev.EventID,
		Topic:   topic,
		Key:     ev.OrderID,
		Payload: string(data),
	}
	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("outbox: insert %s: %w", ev.Type, err)
	}
	return nil
}

// FetchPending returns up to limit unsent records, oldest first.
func FetchPending(ctx context.Context, db *gorm.DB, limit int) ([]Record, error) {
	var out []Record
	err := db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkSent stamps record id as delivered.
func MarkSent(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).
		Model(&Record{}).
		Where("id = ?", id).
		Update("sent_at", time.Now().UTC()).Error
}

// Publisher delivers a record's payload to a broker.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Relay moves pending records to a Publisher.
type Relay struct {
	db    *gorm.DB
	pub   Publisher
	batch int
}

func NewRelay(db *gorm.DB, pub Publisher, batch int) *Relay {
	if batch <= 0 {
		batch = 100
	}
	return &Relay{db: db, pub: pub, batch: batch}
}

// Run publishes one batch. It stops at the first publish failure so records
// are never delivered out of order; the failed record is retried next run.
func (r *Relay) Run(ctx context.Context) error {
	_, err := r.Flush(ctx)
	return err
}

// Flush is Run that also reports how many records were delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := FetchPending(ctx, r.db, r.batch)
	if err != nil {
		return 0, fmt.Errorf("outbox: fetch pending: %w", err)
	}

	sent := 0
	for _, rec := range recs {
		if err := r.pub.Publish(ctx, rec.Topic, rec.Key, []byte(rec.Payload)); err != nil {
			metrics.OutboxPublished.WithLabelValues("failed").Inc()
			return sent, fmt.Errorf("outbox: publish %s: %w", rec.EventID, err)
		}
		if err := MarkSent(ctx, r.db, rec.ID); err != nil {
			return sent, fmt.Errorf("outbox: mark %s sent: %w", rec.EventID, err)
		}
		metrics.OutboxPublished.WithLabelValues("sent").Inc()
		sent++
	}
	if sent > 0 {
		logger.Debug("outbox: relayed", "count", sent)
	}
	return sent, nil
}

// LogPublisher writes records to the application log. It is used when no
// broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	logger.WithCtx(ctx).Info("outbox: event", "topic", topic, "key", key, "payload", string(value))
	return nil
}
