package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/discover"
	collyfetcher "github.com/JakeFAU/munro-enricher/internal/fetcher/colly"
	"github.com/JakeFAU/munro-enricher/internal/policy/ratelimit"
	"github.com/JakeFAU/munro-enricher/internal/storage/jsonfile"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Builds the entity list from the index page",
		Long: `Loads the A-Z index page, collects every linked entity and writes the
list to the configured input path for a later enrich run.`,
		RunE: runDiscoverCommand,
	}
}

func runDiscoverCommand(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := env.cfg, env.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetcher.UserAgent,
		RespectRobots: cfg.Fetcher.RespectRobots,
		Timeout:       cfg.RequestTimeout(),
	}, limiter, logger)
	factory, closeFactory := buildSessionFactory(cfg, limiter, static, logger)
	defer closeFactory()

	discoverer := discover.New(factory, discover.Config{
		IndexURL:     cfg.Discover.IndexURL,
		LinkSelector: cfg.Discover.LinkSelector,
		BaseURL:      cfg.Discover.BaseURL,
		WaitTimeout:  cfg.DiscoverWait(),
	}, logger)

	entities, err := discoverer.Run(ctx)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return fmt.Errorf("no entities found at %s", cfg.Discover.IndexURL)
	}
	if err := jsonfile.WriteEntities(cfg.Input.Entities, entities); err != nil {
		return err
	}
	logger.Info("entity list written",
		zap.String("path", cfg.Input.Entities),
		zap.Int("entities", len(entities)),
	)
	return nil
}
