package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/outbox"
)

type sent struct {
	topic, key string
	value      []byte
}

type recorder struct {
	msgs   []sent
	failAt int
}

func (r *recorder) Publish(_ context.Context, topic, key string, value []byte) error {
	if r.failAt > 0 && len(r.msgs)+1 == r.failAt {
		r.failAt = 0
		return errors.New("broker down")
	}
	r.msgs = append(r.msgs, sent{topic, key, value})
	return nil
}

func TestRelayDeliversInOrder(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	for _, typ := range []string{event.OrderCreated, event.OrderConfirmed} {
		require.NoError(t, outbox.Insert(db, "storefront.orders", event.New(typ, "o1", "u1", nil)))
	}

	pub := &recorder{}
	n, err := outbox.NewRelay(db, pub, 10).Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "o1", pub.msgs[0].key)

	var first event.Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].value, &first))
	assert.Equal(t, event.OrderCreated, first.Type)

	pending, err := outbox.FetchPending(ctx, db, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayStopsAtFirstFailure(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, outbox.Insert(db, "storefront.orders", event.New(event.OrderCreated, "o", "u", nil)))
	}

	pub := &recorder{failAt: 2}
	relay := outbox.NewRelay(db, pub, 10)

	n, err := relay.Flush(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := outbox.FetchPending(ctx, db, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	n, err = relay.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertRollsBackWithTransaction(t *testing.T) {
	db := testdb.Open(t)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, outbox.Insert(tx, "t", event.New(event.OrderFailed, "o", "u", nil)))
		return errors.New("abort")
	})

	pending, err := outbox.FetchPending(context.Background(), db, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
