// Package testdb opens a migrated, private in-memory SQLite database for
// tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	_ "github.com/shashiranjanraj/storefront/database/migrations"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

// Open returns a fresh database with the full schema applied. It is closed
// when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := database.Open(database.Defaults("sqlite", dsn))
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if _, err := migration.New(db).Run(); err != nil {
		t.Fatalf("testdb: migrate: %v", err)
	}
	return db
}

// User inserts a user with role and returns it.
func User(t testing.TB, db *gorm.DB, role string) *models.User {
	t.Helper()
	u := &models.User{
		Name:     "Test " + role,
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "x",
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("testdb: create user: %v", err)
	}
	return u
}

// Product inserts a product priced at price with qty units in stock.
func Product(t testing.TB, db *gorm.DB, sellerID, price string, qty int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Product " + uuid.NewString()[:6],
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Category: "Books",
		SellerID: sellerID,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("testdb: create product: %v", err)
	}
	return p
}

// Stock reads a product's current quantity.
func Stock(t testing.TB, db *gorm.DB, productID string) int {
	t.Helper()
	var p models.Product
	if err := db.First(&p, "id = ?", productID).Error; err != nil {
		t.Fatalf("testdb: load product: %v", err)
	}
	return p.Quantity
}
