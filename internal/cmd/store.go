package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/config"
	"github.com/foliolens/foliolens/internal/core/store"
	"github.com/foliolens/foliolens/internal/observability"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local database",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		observability.CLILogger.Info("Database schema is up to date",
			zap.String("driver", db.Driver()))
		return nil
	},
}

var storePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired analysis cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		removed, err := db.PruneAnalysisCache(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d expired cache entries\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storePruneCmd)
}
