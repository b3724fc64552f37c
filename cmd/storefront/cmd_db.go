package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

// withDB opens the configured database for the duration of fn.
func withDB(fn func(db *gorm.DB) error) error {
	db, err := server.OpenDB()
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			ran, err := migration.New(db).Run()
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				fmt.Println("Nothing to migrate.")
			}
			for _, name := range ran {
				fmt.Println("Migrated:", name)
			}
			return nil
		})
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			undone, err := migration.New(db).Rollback()
			if err != nil {
				return err
			}
			if len(undone) == 0 {
				fmt.Println("Nothing to roll back.")
			}
			for _, name := range undone {
				fmt.Println("Rolled back:", name)
			}
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return migration.New(db).Status(os.Stdout)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo accounts and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			if err := seeders.RunAll(db); err != nil {
				return err
			}
			fmt.Printf("Seeded %v. Demo accounts use password %q.\n", seeders.Names(), seeders.DemoPassword)
			return nil
		})
	},
}
