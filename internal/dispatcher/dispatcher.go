// Package dispatcher fans entities out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/route"
	"github.com/JakeFAU/munro-enricher/internal/worker"
)

// Dispatcher feeds entities to its workers and merges their records.
type Dispatcher struct {
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher over a fixed set of workers.
func New(workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		workers: workers,
		logger:  logger.Named("dispatcher"),
	}
}

// Dispatch starts the workers and returns a channel of records in completion
// order. Canceling ctx stops handing out entities; records for entities
// already taken still arrive. The channel closes once every worker exits.
func (d *Dispatcher) Dispatch(ctx context.Context, entities []route.Entity) <-chan route.Record {
	jobs := make(chan route.Entity)
	results := make(chan route.Record, len(d.workers))

	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx, jobs, results)
		}(w)
	}

	go func() {
		defer close(jobs)
		for i, entity := range entities {
			if ctx.Err() != nil {
				d.logger.Info("dispatch stopped", zap.Int("dispatched", i), zap.Int("pending", len(entities)-i))
				return
			}
			select {
			case jobs <- entity:
			case <-ctx.Done():
				d.logger.Info("dispatch stopped", zap.Int("dispatched", i), zap.Int("pending", len(entities)-i))
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}
