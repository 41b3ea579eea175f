package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/config"
	"github.com/sells-group/appraisal-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "appraisal-cli",
	Short: "Comparable valuation pipeline",
	Long:  "Scores comparable sales against a subject property, manages primary selection, brackets a defensible price range, and computes blended per-attribute adjustments.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
