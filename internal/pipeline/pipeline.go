// Package pipeline coordinates a resumable enrichment run: it selects the
// entities still missing from the output, dispatches them, and checkpoints
// the accumulated output as records arrive.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/clock/system"
	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultCheckpointEvery = 5

// Saver overwrites the output store with the full record list.
type Saver interface {
	Save(ctx context.Context, records []route.Record) error
}

// Dispatcher processes entities concurrently, yielding records in
// completion order and closing the channel when done.
type Dispatcher interface {
	Dispatch(ctx context.Context, entities []route.Entity) <-chan route.Record
}

// Config controls checkpointing and notifications.
type Config struct {
	CheckpointEvery int
	// Topic receives one notification per record when a publisher is set.
	Topic string
	RunID string
	// Clock stamps notifications. Nil means the system clock.
	Clock route.Clock
}

// Coordinator owns the output list for the duration of a run. Only the
// goroutine calling Run touches it.
type Coordinator struct {
	dispatcher Dispatcher
	saver      Saver
	publisher  route.Publisher
	cfg        Config
	logger     *zap.Logger
}

// Stats summarizes a run.
type Stats struct {
	Done           int
	Remaining      int
	Completed      int
	CompleteNow    int
	Checkpoints    int
	CheckpointErrs int
}

// New constructs a Coordinator. publisher may be nil.
func New(dispatcher Dispatcher, saver Saver, publisher route.Publisher, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	if cfg.RunID != "" {
		logger = logger.With(zap.String("run_id", cfg.RunID))
	}
	return &Coordinator{
		dispatcher: dispatcher,
		saver:      saver,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
	}
}

// Partition splits the work: done holds every complete prior record (one per
// URL, whether or not the entity is still listed) and remaining holds the
// listed entities without one, deduplicated by URL in input order. When a URL
// is complete more than once in prior, the last record wins and keeps the
// position of the first.
func Partition(entities []route.Entity, prior []route.Record) ([]route.Record, []route.Entity) {
	doneURLs := make(map[string]int, len(prior))
	done := make([]route.Record, 0, len(prior))
	for _, rec := range prior {
		if !rec.Complete() {
			continue
		}
		if i, dup := doneURLs[rec.URL]; dup {
			done[i] = rec
			continue
		}
		doneURLs[rec.URL] = len(done)
		done = append(done, rec)
	}

	queued := make(map[string]struct{}, len(entities))
	remaining := make([]route.Entity, 0, len(entities))
	for _, e := range entities {
		if _, ok := doneURLs[e.URL]; ok {
			continue
		}
		if _, dup := queued[e.URL]; dup {
			continue
		}
		queued[e.URL] = struct{}{}
		remaining = append(remaining, e)
	}
	return done, remaining
}

// Run enriches the entities not yet complete in prior and returns the final
// output: the complete prior records followed by this run's records in
// arrival order. The output is saved every CheckpointEvery records and once
// more at the end if anything is unsaved. A failed final save is returned;
// earlier failures are only logged since the next checkpoint rewrites
// everything.
func (c *Coordinator) Run(ctx context.Context, entities []route.Entity, prior []route.Record) ([]route.Record, Stats, error) {
	start := time.Now()
	done, remaining := Partition(entities, prior)
	stats := Stats{Done: len(done), Remaining: len(remaining)}
	c.logger.Info("run planned",
		zap.Int("entities", len(entities)),
		zap.Int("done", stats.Done),
		zap.Int("remaining", stats.Remaining),
	)
	if len(remaining) == 0 {
		c.logger.Info("nothing to do")
		return done, stats, nil
	}

	output := make([]route.Record, 0, len(done)+len(remaining))
	output = append(output, done...)
	unsaved := false

	for rec := range c.dispatcher.Dispatch(ctx, remaining) {
		output = append(output, rec)
		stats.Completed++
		if rec.Complete() {
			stats.CompleteNow++
		}
		unsaved = true
		c.notify(ctx, rec)

		if stats.Completed%c.cfg.CheckpointEvery == 0 {
			if err := c.checkpoint(ctx, output, &stats); err != nil {
				c.logger.Error("checkpoint failed", zap.Int("records", len(output)), zap.Error(err))
				continue
			}
			unsaved = false
		}
	}

	if unsaved {
		if err := c.checkpoint(ctx, output, &stats); err != nil {
			return output, stats, fmt.Errorf("final checkpoint: %w", err)
		}
	}

	fields := []zap.Field{
		zap.Int("completed", stats.Completed),
		zap.Int("complete_this_run", stats.CompleteNow),
		zap.Int("checkpoints", stats.Checkpoints),
		zap.Int("output_records", len(output)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if ctx.Err() != nil {
		c.logger.Warn("run interrupted", append(fields, zap.Int("skipped", stats.Remaining-stats.Completed))...)
	} else {
		c.logger.Info("run finished", fields...)
	}
	return output, stats, nil
}

func (c *Coordinator) checkpoint(ctx context.Context, output []route.Record, stats *Stats) error {
	// Saves must land even while the run is being interrupted.
	if err := c.saver.Save(context.WithoutCancel(ctx), output); err != nil {
		stats.CheckpointErrs++
		metrics.ObserveCheckpoint("error")
		return err
	}
	stats.Checkpoints++
	metrics.ObserveCheckpoint("ok")
	c.logger.Info("checkpoint saved", zap.Int("records", len(output)), zap.Int("completed", stats.Completed))
	return nil
}

func (c *Coordinator) notify(ctx context.Context, rec route.Record) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":    c.cfg.RunID,
		"name":      rec.Name,
		"url":       rec.URL,
		"complete":  rec.Complete(),
		"gpx_file":  rec.AttachmentPath,
		"timestamp": c.cfg.Clock.Now().UTC().Format(time.RFC3339),
	}
	id, err := c.publisher.Publish(context.WithoutCancel(ctx), c.cfg.Topic, payload)
	if err != nil {
		c.logger.Warn("publish failed", zap.String("url", rec.URL), zap.Error(err))
		return
	}
	c.logger.Debug("record published", zap.String("url", rec.URL), zap.String("message_id", id))
}
