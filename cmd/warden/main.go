// Command warden runs the social-recovery wallet service and its operator
// tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"warden/internal/platform/config"
	"warden/internal/platform/logger"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// cli carries the state shared by subcommands once flags are parsed.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// newRootCmd builds a fresh command tree, so tests can run commands in
// isolation.
func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           "warden",
		Short:         "Warden is a custodial wallet service with guardian-based social recovery.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			c.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	flags.String("server-addr", ":8080", "HTTP listen address")
	flags.String("store-backend", config.BackendMemory, `wallet store backend ("memory", "postgres")`)
	flags.String("ledger-backend", config.BackendMemory, `ledger backend ("memory", "postgres", "redis")`)
	flags.String("database-url", "", "Postgres connection URL")
	flags.String("redis-url", "", "Redis connection URL")
	flags.StringSlice("kafka-brokers", nil, "Kafka seed brokers; enables the outbox relay")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", `log format ("json", "text")`)

	cmd.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newTokenCmd(c),
		newConfigCmd(c),
	)
	return cmd
}
