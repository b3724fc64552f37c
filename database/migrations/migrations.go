// Package migrations registers the storefront schema. Import it for its
// side effects before running a migration.Runner.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/migration"
	"github.com/shashiranjanraj/storefront/pkg/outbox"
)

func init() {
	migration.Register("20260101000000_create_users_table", table(&models.User{}, "users"))
	migration.Register("20260101000001_create_products_table", table(&models.Product{}, "products"))
	migration.Register("20260101000002_create_cart_items_table", table(&models.CartItem{}, "cart_items"))
	migration.Register("20260101000003_create_orders_table", table(&models.Order{}, "orders"))
	migration.Register("20260101000004_create_order_items_table", table(&models.OrderItem{}, "order_items"))
	migration.Register("20260101000005_create_outbox_table", table(&outbox.Record{}, "outbox"))
	migration.Register("20260101000006_add_order_idempotency_index", orderIdempotencyIndex{})
}

// createTable migrates a single model and drops its table on rollback.
type createTable struct {
	model any
	name  string
}

func table(model any, name string) *createTable { return &createTable{model: model, name: name} }

func (m *createTable) Up(db *gorm.DB) error { return db.AutoMigrate(m.model) }

func (m *createTable) Down(db *gorm.DB) error { return db.Migrator().DropTable(m.name) }

// OrderIdempotencyIndex names the unique (user_id, idempotency_key) index.
const OrderIdempotencyIndex = "idx_order_user_idem"

// orderIdempotencyIndex makes an idempotency key unique per user. Orders
// without a key are left out of the index: SQL Server treats NULLs as
// equal, so a plain unique index would allow only one keyless order per
// user there. MySQL has no partial indexes but already keeps NULLs
// distinct.
type orderIdempotencyIndex struct{}

func (orderIdempotencyIndex) Up(db *gorm.DB) error {
	if db.Migrator().HasIndex("orders", OrderIdempotencyIndex) {
		if err := db.Migrator().DropIndex("orders", OrderIdempotencyIndex); err != nil {
			return err
		}
	}
	sql := "CREATE UNIQUE INDEX " + OrderIdempotencyIndex + " ON orders (user_id, idempotency_key)"
	if db.Dialector.Name() != "mysql" {
		sql += " WHERE idempotency_key IS NOT NULL"
	}
	return db.Exec(sql).Error
}

func (orderIdempotencyIndex) Down(db *gorm.DB) error {
	return db.Migrator().DropIndex("orders", OrderIdempotencyIndex)
}
