package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"lumina-backend/internal/app"
	"lumina-backend/internal/config"
	"lumina-backend/internal/logging"
)

// commandContext lazily loads configuration shared by subcommands.
type commandContext struct {
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	// narration owns stdout
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.cfg, c.logger = cfg, logger
	return cfg, nil
}

func (c *commandContext) withApp(fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "lumina",
		Short:         "Lumina asset ingestion CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))

	return rootCmd
}
