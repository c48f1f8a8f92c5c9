// Package processor turns one entity into one record. Process never fails:
// every error path collapses to default fields.
package processor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/extract"
	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultDetailTimeout = 10 * time.Second

// Downloader fetches the attachment linked from a detail page.
type Downloader interface {
	Download(ctx context.Context, session route.Session, detail route.PageView) (string, error)
}

// Config controls per-entity behavior.
type Config struct {
	// DetailTimeout bounds the wait for the detail page's ready marker.
	DetailTimeout time.Duration
	// JitterMin and JitterMax bound the pause after the first page load.
	JitterMin time.Duration
	JitterMax time.Duration
}

// Processor enriches single entities. It is safe for concurrent use as long
// as each caller passes its own session.
type Processor struct {
	layout     extract.Layout
	downloader Downloader
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Processor. downloader may be nil to skip attachments.
func New(layout extract.Layout, downloader Downloader, cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = defaultDetailTimeout
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	return &Processor{
		layout:     layout,
		downloader: downloader,
		cfg:        cfg,
		logger:     logger.Named("processor"),
	}
}

// Process returns the record for entity. A nil session yields the default
// record.
func (p *Processor) Process(ctx context.Context, session route.Session, entity route.Entity) (rec route.Record) {
	start := time.Now()
	logger := p.logger.With(zap.String("name", entity.Name), zap.String("url", entity.URL))
	rec = route.NewRecord(entity)
	outcome := "failed"

	defer func() {
		if r := recover(); r != nil {
			logger.Error("entity processing panicked", zap.Any("panic", r))
			rec = route.NewRecord(entity)
			outcome = "panic"
		}
		metrics.ObserveEntity(outcome, time.Since(start))
	}()

	if session == nil {
		logger.Warn("no session available")
		return rec
	}

	details, err := p.enrich(ctx, session, entity, logger)
	if err != nil {
		switch {
		case errors.Is(err, route.ErrNoDetailLink):
			logger.Info("no detail link", zap.Error(err))
		case errors.Is(err, route.ErrNotReady):
			logger.Warn("detail page not ready", zap.Error(err))
		default:
			logger.Warn("entity fetch failed", zap.Error(err))
		}
		return rec
	}

	rec.Details = details
	if rec.Complete() {
		outcome = "complete"
	} else {
		outcome = "incomplete"
	}
	logger.Info("entity processed",
		zap.String("outcome", outcome),
		zap.Bool("attachment", details.AttachmentPath != ""),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec
}

func (p *Processor) enrich(ctx context.Context, session route.Session, entity route.Entity, logger *zap.Logger) (route.Details, error) {
	entityPage, err := session.Navigate(ctx, route.NavigateRequest{URL: entity.URL})
	if err != nil {
		return route.Details{}, fmt.Errorf("open entity page: %w", err)
	}
	p.pause(ctx)

	link, err := extract.DetailLink(entityPage, p.layout)
	if err != nil {
		return route.Details{}, err
	}

	detail, err := session.Navigate(ctx, route.NavigateRequest{
		URL:          link,
		WaitSelector: p.layout.ReadySelector,
		WaitTimeout:  p.cfg.DetailTimeout,
	})
	if err != nil {
		return route.Details{}, fmt.Errorf("open detail page %s: %w", link, err)
	}

	details, err := extract.Extract(detail, p.layout)
	if err != nil {
		logger.Debug("some fields defaulted", zap.String("detail_url", link), zap.Error(err))
	}

	if p.downloader != nil {
		path, err := p.downloader.Download(ctx, session, detail)
		if err != nil {
			logger.Warn("attachment download failed", zap.String("detail_url", link), zap.Error(err))
		}
		details.AttachmentPath = path
	}
	return details, nil
}

// pause sleeps for a random duration in [JitterMin, JitterMax] or until ctx
// is done.
func (p *Processor) pause(ctx context.Context) {
	d := jitter(p.cfg.JitterMin, p.cfg.JitterMax)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo)))
	if err != nil {
		return lo + (hi-lo)/2
	}
	return lo + time.Duration(n.Int64())
}
