// Package seeders fills a fresh database with demo accounts and listings.
//
// Seeders run through `storefront seed` and must be safe to run twice.
package seeders

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// SeederFunc is the signature for a seed function.
type SeederFunc func(db *gorm.DB) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

func init() {
	Register("users", seedUsers)
	Register("products", seedProducts)
}

// Register adds a seeder to the registry. Seeders run in registration
// order.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// Names lists the registered seeders.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// RunAll executes every registered seeder inside one transaction and stops
// on the first error.
func RunAll(db *gorm.DB) error {
	mu.Lock()
	current := make([]seederEntry, len(entries))
	copy(current, entries)
	mu.Unlock()

	return db.Transaction(func(tx *gorm.DB) error {
		for _, e := range current {
			if err := e.fn(tx); err != nil {
				return fmt.Errorf("seeder %q: %w", e.name, err)
			}
			logger.Info("seeded", "seeder", e.name)
		}
		return nil
	})
}
