// Command admin-cli runs one-off administration tasks against the same
// database as the API: migrations, seeding and spreadsheet imports.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin-cli",
		Short:         "skillradar administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newImportCmd("users"),
		newImportCmd("locations"),
		newCreateAdminCmd(),
		newTokenCmd(),
	)
	return root
}
