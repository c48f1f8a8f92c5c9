// Package worker runs the per-worker loop: one session, many entities.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

// Processor enriches a single entity using the worker's session.
type Processor interface {
	Process(ctx context.Context, session route.Session, entity route.Entity) route.Record
}

// Worker owns one session for its lifetime. A failed session start is
// retried on the next entity; until then entities get default records.
type Worker struct {
	id        int
	factory   route.SessionFactory
	processor Processor
	logger    *zap.Logger
	session   route.Session
}

// New constructs a Worker.
func New(id int, factory route.SessionFactory, processor Processor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:        id,
		factory:   factory,
		processor: processor,
		logger:    logger.Named("worker").With(zap.Int("worker_id", id)),
	}
}

// Run consumes entities until jobs is closed, sending one record per entity
// to results. Entities already taken are finished even after ctx is
// canceled; the caller stops the flow by closing jobs.
func (w *Worker) Run(ctx context.Context, jobs <-chan route.Entity, results chan<- route.Record) {
	defer w.closeSession()
	work := context.WithoutCancel(ctx)

	for entity := range jobs {
		metrics.IncActiveWorkers()
		rec := w.processor.Process(work, w.ensureSession(work), entity)
		metrics.DecActiveWorkers()
		results <- rec
	}
	w.logger.Debug("worker finished")
}

func (w *Worker) ensureSession(ctx context.Context) route.Session {
	if w.session != nil || w.factory == nil {
		return w.session
	}
	session, err := w.factory.NewSession(ctx)
	if err != nil {
		w.logger.Error("session start failed", zap.Error(err))
		return nil
	}
	w.session = session
	return session
}

func (w *Worker) closeSession() {
	if w.session == nil {
		return
	}
	if err := w.session.Close(); err != nil {
		w.logger.Warn("session close failed", zap.Error(err))
	}
	w.session = nil
}
