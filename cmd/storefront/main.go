// Command storefront runs the storefront API and its maintenance tasks.
//
//	storefront serve            start HTTP, gRPC health and the scheduler
//	storefront migrate          apply pending migrations
//	storefront seed             insert demo accounts and products
//	storefront reconcile        settle stale PENDING orders once
//	storefront outbox:relay     publish undelivered order events once
//	storefront schedule:run     run only the background jobs
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/storefront/database/migrations"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront API server and maintenance tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(outboxRelayCmd)
	rootCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleListCmd)
}
