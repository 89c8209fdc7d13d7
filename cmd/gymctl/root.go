package main

import (
	"fmt"
	"time"

	appctx "github.com/bassista/go_gym/internal/app"
	"github.com/bassista/go_gym/internal/config"
	"github.com/bassista/go_gym/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// cli holds what every subcommand shares: the wired app and a clock.
type cli struct {
	app *appctx.App
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	c := &cli{now: time.Now}

	root := &cobra.Command{
		Use:   "gymctl",
		Short: "Log and inspect gym progress from the terminal",
		Long: `gymctl reads and writes the same progress document as the server.

Configuration comes from config/config.yaml, .env and GO_GYM_* variables.
Without a token, owner and repo the records are kept in the local file only.

EXAMPLES:

  gymctl add "Bieżnia" 30                  # log today
  gymctl add Plank 1.5 --date 2024-03-02   # log a past day
  gymctl list "Bieżnia"
  gymctl stats
  gymctl refresh`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || c.app != nil {
				return nil
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if _, err := logger.SetLevel(cfg.Misc.LogLevel); err != nil {
				logger.WithComponent("gymctl").Warnf("invalid log level '%s', using 'info'", cfg.Misc.LogLevel)
			}
			// the CLI is short-lived; its metrics are never scraped
			a, err := appctx.Build(cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.app.Shutdown()
		},
	}

	root.AddCommand(c.newAddCmd(), c.newListCmd(), c.newStatsCmd(), c.newRefreshCmd())
	return root
}
