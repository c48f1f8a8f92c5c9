// Package cmd defines and implements the CLI commands for the munro-enricher executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/config"
	"github.com/JakeFAU/munro-enricher/internal/logging"
)

var cfgFile string

// envKeyType is the key for storing the runtime environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// runtimeEnv carries what every subcommand needs.
type runtimeEnv struct {
	cfg    config.Config
	logger *zap.Logger
}

// loadEnv is a variable so tests can substitute configuration.
var loadEnv = func(path string) (*runtimeEnv, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtimeEnv{cfg: cfg, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "munro-enricher",
		Short: "Enriches a list of Munros with route details and GPX tracks.",
		Long: `munro-enricher visits the walkhighlands page of every Munro in the input
list, follows the link to the detailed route description, extracts its
summary and statistics, and downloads the GPX track. Runs are resumable:
entities already enriched in the output file are skipped.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnv(cfgFile)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(env.logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, env))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if env, err := resolveEnv(cmd.Context()); err == nil {
				_ = env.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); MUNRO_* env vars override")

	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

func resolveEnv(ctx context.Context) (*runtimeEnv, error) {
	if ctx == nil {
		return nil, errors.New("runtime environment not initialized")
	}
	env, ok := ctx.Value(envKey).(*runtimeEnv)
	if !ok || env == nil {
		return nil, errors.New("runtime environment not initialized")
	}
	return env, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "munro-enricher: %v\n", err)
		os.Exit(1)
	}
}
