package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/attachment"
	"github.com/JakeFAU/munro-enricher/internal/config"
	"github.com/JakeFAU/munro-enricher/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/munro-enricher/internal/fetcher/colly"
	"github.com/JakeFAU/munro-enricher/internal/fetcher/headless"
	"github.com/JakeFAU/munro-enricher/internal/id/uuid"
	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/pipeline"
	"github.com/JakeFAU/munro-enricher/internal/policy/ratelimit"
	"github.com/JakeFAU/munro-enricher/internal/processor"
	pubsubpublisher "github.com/JakeFAU/munro-enricher/internal/publisher/pubsub"
	"github.com/JakeFAU/munro-enricher/internal/route"
	gcsstore "github.com/JakeFAU/munro-enricher/internal/storage/gcs"
	"github.com/JakeFAU/munro-enricher/internal/storage/jsonfile"
	localstore "github.com/JakeFAU/munro-enricher/internal/storage/local"
	memorystore "github.com/JakeFAU/munro-enricher/internal/storage/memory"
	"github.com/JakeFAU/munro-enricher/internal/worker"
)

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Enriches every entity not yet complete in the output file",
		Long: `Loads the entity list and any existing output, then visits each remaining
entity with a pool of browser sessions. Progress is checkpointed to the
output file so an interrupted run resumes where it stopped.`,
		RunE: runEnrichCommand,
	}
}

func runEnrichCommand(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := env.cfg, env.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entities, err := jsonfile.LoadEntities(cfg.Input.Entities)
	if err != nil {
		return err
	}
	store, err := jsonfile.NewStore(cfg.Output.Path)
	if err != nil {
		return err
	}
	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		shutdown := serveMetrics(cfg.Metrics.Addr, logger)
		defer shutdown()
	}

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

	downloader, closeStore, err := buildDownloader(ctx, cfg, static, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	minJitter, maxJitter := cfg.Jitter()
	proc := processor.New(cfg.Layout, downloader, processor.Config{
		DetailTimeout: cfg.DetailTimeout(),
		JitterMin:     minJitter,
		JitterMax:     maxJitter,
	}, logger)

	workers := make([]*worker.Worker, 0, cfg.Pipeline.Workers)
	for i := 0; i < cfg.Pipeline.Workers; i++ {
		workers = append(workers, worker.New(i, factory, proc, logger))
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}

	coordinator := pipeline.New(
		dispatcher.New(workers, logger),
		store,
		publisher,
		pipeline.Config{
			CheckpointEvery: cfg.Pipeline.CheckpointEvery,
			Topic:           cfg.PubSub.TopicName,
			RunID:           runID,
		},
		logger,
	)

	output, stats, err := coordinator.Run(ctx, entities, prior)
	if err != nil {
		return fmt.Errorf("run enrichment: %w", err)
	}
	logger.Info("enrich command finished",
		zap.String("run_id", runID),
		zap.String("output", store.Path()),
		zap.Int("records", len(output)),
		zap.Int("processed", stats.Completed),
		zap.Int("checkpoint_errors", stats.CheckpointErrs),
	)
	return nil
}

func buildSessionFactory(cfg config.Config, limiter *ratelimit.Limiter, static *collyfetcher.Fetcher, logger *zap.Logger) (route.SessionFactory, func()) {
	if cfg.Fetcher.Mode == config.FetcherStatic {
		return static, func() {}
	}
	factory := headless.NewFactory(headless.Config{
		UserAgent:         cfg.Fetcher.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		ShowBrowser:       cfg.Fetcher.ShowBrowser,
		ExecPath:          cfg.Fetcher.ChromePath,
	}, limiter, logger)
	return factory, factory.Close
}

// buildDownloader returns a nil Downloader when attachments are disabled.
func buildDownloader(ctx context.Context, cfg config.Config, getter attachment.Getter, logger *zap.Logger) (processor.Downloader, func(), error) {
	noop := func() {}
	if !cfg.Attachments.Enabled {
		return nil, noop, nil
	}

	var (
		store   attachment.BlobStore
		closeFn = noop
	)
	switch cfg.Attachments.Backend {
	case config.BackendLocal:
		local, err := localstore.New(localstore.Config{BaseDir: cfg.Attachments.Dir})
		if err != nil {
			return nil, noop, fmt.Errorf("init attachment dir: %w", err)
		}
		store = local
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("init storage client: %w", err)
		}
		bucket, err := gcsstore.New(client, gcsstore.Config{
			Bucket: cfg.Attachments.GCSBucket,
			Prefix: cfg.Attachments.GCSPrefix,
		})
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		store = bucket
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Warn("storage client close failed", zap.Error(err))
			}
		}
	case config.BackendMemory:
		store = memorystore.NewBlobStore()
	default:
		return nil, noop, fmt.Errorf("unsupported attachment backend %q", cfg.Attachments.Backend)
	}

	downloader := attachment.New(store, getter, cfg.Layout, attachment.Config{
		ConfirmTimeout: cfg.ConfirmTimeout(),
		ContentType:    cfg.Attachments.ContentType,
	}, logger)
	return downloader, closeFn, nil
}

// buildPublisher returns a nil Publisher when Pub/Sub is disabled.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (route.Publisher, func(), error) {
	if !cfg.PubSub.Enabled {
		return nil, func() {}, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("init pubsub client: %w", err)
	}
	publisher, err := pubsubpublisher.New(client, map[string]string{"source": "munro-enricher"})
	if err != nil {
		_ = client.Close()
		return nil, func() {}, err
	}
	return publisher, func() {
		publisher.Close()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}, nil
}

func serveMetrics(addr string, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
}
