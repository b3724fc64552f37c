package migrations_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

func TestMigrateRollbackStatus(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.Defaults("sqlite", dsn))
	require.NoError(t, err)
	defer database.Close(db)

	runner := migration.New(db)

	ran, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, ran, 7)
	assert.Equal(t, "20260101000000_create_users_table", ran[0])
	for _, table := range []string{"users", "products", "cart_items", "orders", "order_items", "outbox"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("orders", migrations.OrderIdempotencyIndex))

	again, err := runner.Run()
	require.NoError(t, err)
	assert.Empty(t, again)

	var out bytes.Buffer
	require.NoError(t, runner.Status(&out))
	assert.Equal(t, 7, strings.Count(out.String(), "Ran"))

	undone, err := runner.Rollback()
	require.NoError(t, err)
	require.Len(t, undone, 7)
	assert.Equal(t, "20260101000006_add_order_idempotency_index", undone[0])
	assert.False(t, db.Migrator().HasTable("orders"))

	out.Reset()
	require.NoError(t, runner.Status(&out))
	assert.Equal(t, 7, strings.Count(out.String(), "Pending"))
}
