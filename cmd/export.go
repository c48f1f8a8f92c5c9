package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/config"
	"github.com/JakeFAU/munro-enricher/internal/route"
	"github.com/JakeFAU/munro-enricher/internal/storage/jsonfile"
	"github.com/JakeFAU/munro-enricher/internal/storage/postgres"
	"github.com/JakeFAU/munro-enricher/internal/storage/sqlite"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Copies the enriched output into a SQL table",
		Long: `Reads the enriched output file and upserts every record, keyed by URL,
into SQLite or Postgres according to export.driver.`,
		RunE: runExportCommand,
	}
}

func runExportCommand(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := env.cfg, env.logger
	ctx := cmd.Context()

	store, err := jsonfile.NewStore(cfg.Output.Path)
	if err != nil {
		return err
	}
	records, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Info("nothing to export", zap.String("path", store.Path()))
		return nil
	}

	sink, err := openSink(ctx, cfg.Export)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("sink close failed", zap.Error(cerr))
		}
	}()

	if err := sink.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("export records: %w", err)
	}
	logger.Info("records exported",
		zap.String("driver", cfg.Export.Driver),
		zap.String("table", cfg.Export.Table),
		zap.Int("records", len(records)),
	)
	return nil
}

func openSink(ctx context.Context, cfg config.ExportConfig) (route.RecordSink, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.Table)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported export driver %q", cfg.Driver)
	}
}
