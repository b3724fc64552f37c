// Package migration runs versioned schema changes and records which ones
// have been applied in the storefront_migrations table.
//
// Migrations register themselves from init functions:
//
//	func init() {
//	    migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
//	}
package migration

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Migration applies and reverses one schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "storefront_migrations" }

type named struct {
	name string
	m    Migration
}

var (
	regMu    sync.Mutex
	registry []named
)

// Register adds m under name. Names are timestamp prefixed and run in
// lexical order.
func Register(name string, m Migration) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append(registry, named{name: name, m: m})
}

func registered() []named {
	regMu.Lock()
	defer regMu.Unlock()
	out := append([]named(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Runner applies registered migrations to one database.
type Runner struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Runner { return &Runner{db: db} }

func (r *Runner) ensureTable() error {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) applied() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load applied: %w", err)
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

// Run applies every pending migration as one batch and returns the names
// applied.
func (r *Runner) Run() ([]string, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.applied()
	if err != nil {
		return nil, err
	}

	batch := r.lastBatch() + 1
	var ran []string
	for _, reg := range registered() {
		if _, ok := done[reg.name]; ok {
			continue
		}
		logger.Info("migration: up", "name", reg.name, "batch", batch)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := reg.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: reg.name, Batch: batch}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		ran = append(ran, reg.name)
	}
	if len(ran) == 0 {
		logger.Info("migration: nothing to migrate")
	}
	return ran, nil
}

// Rollback reverses the most recent batch and returns the names reverted.
func (r *Runner) Rollback() ([]string, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	batch := r.lastBatch()
	if batch == 0 {
		return nil, nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	byName := make(map[string]Migration)
	for _, reg := range registered() {
		byName[reg.name] = reg.m
	}

	var reverted []string
	for _, row := range rows {
		m, ok := byName[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: %s is applied but not registered", row.Name)
		}
		logger.Info("migration: down", "name", row.Name, "batch", batch)
		row := row
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&row).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		reverted = append(reverted, row.Name)
	}
	return reverted, nil
}

// Status writes one line per registered migration to w.
func (r *Runner) Status(w io.Writer) error {
	if err := r.ensureTable(); err != nil {
		return err
	}
	done, err := r.applied()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-55s  %-8s  %s\n", "Migration", "Status", "Batch")
	for _, reg := range registered() {
		if row, ok := done[reg.name]; ok {
			fmt.Fprintf(w, "%-55s  %-8s  %d\n", reg.name, "Ran", row.Batch)
		} else {
			fmt.Fprintf(w, "%-55s  %-8s  -\n", reg.name, "Pending")
		}
	}
	return nil
}

func (r *Runner) lastBatch() int {
	var max struct{ Max int }
	r.db.Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&max)
	return max.Max
}
