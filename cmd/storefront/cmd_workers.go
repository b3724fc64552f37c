package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// withApp builds the application without serving HTTP.
func withApp(ctx context.Context, fn func(app *server.App) error) error {
	return withDB(func(db *gorm.DB) error {
		app, err := server.New(ctx, db, server.Overrides{})
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(app)
	})
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Settle stale PENDING orders against the payment provider once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *server.App) error {
			sum, err := app.Reconciler.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		})
	},
}

var outboxRelayCmd = &cobra.Command{
	Use:   "outbox:relay",
	Short: "Publish undelivered order events once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *server.App) error {
			n, err := app.Relay.Flush(cmd.Context())
			fmt.Printf("Published %d event(s).\n", n)
			return err
		})
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the background jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(app *server.App) error {
			s := app.Scheduler()
			for _, t := range s.List() {
				logger.Info("scheduled", "task", t)
			}
			s.Start(ctx)
			<-ctx.Done()
			s.Stop()
			logger.Info("scheduler stopped")
			return nil
		})
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the background jobs and their intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *server.App) error {
			for _, t := range app.Scheduler().List() {
				fmt.Println(t)
			}
			return nil
		})
	},
}
