package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/munro-enricher/internal/extract"
	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultConfirmTimeout = 5 * time.Second

// BlobStore is where attachment files live.
type BlobStore interface {
	// Exists returns the location of name and whether it is already stored.
	Exists(ctx context.Context, name string) (string, bool, error)
	PutObject(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

// Getter fetches raw bytes. Non-2xx responses must be errors.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Config controls the downloader.
type Config struct {
	ConfirmTimeout time.Duration
	ContentType    string
}

// Downloader resolves the attachment of a detail page and stores it once.
// It is safe for concurrent use by all workers.
type Downloader struct {
	store  BlobStore
	getter Getter
	layout extract.Layout
	cfg    Config
	logger *zap.Logger
	group  singleflight.Group
}

// New constructs a Downloader.
func New(store BlobStore, getter Getter, layout extract.Layout, cfg Config, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/gpx+xml"
	}
	return &Downloader{
		store:  store,
		getter: getter,
		layout: layout,
		cfg:    cfg,
		logger: logger.Named("attachment"),
	}
}

// Download returns the stored location of the attachment linked from detail,
// or "" when the page offers none. session is used for the confirmation
// page and must belong to the calling worker.
func (d *Downloader) Download(ctx context.Context, session route.Session, detail route.PageView) (string, error) {
	action, ok := extract.AttachmentLink(detail, d.layout)
	if !ok {
		metrics.ObserveAttachment("none")
		return "", nil
	}

	confirm, err := session.Navigate(ctx, route.NavigateRequest{
		URL:          action,
		WaitSelector: d.layout.ConfirmSelector(),
		WaitTimeout:  d.cfg.ConfirmTimeout,
	})
	switch {
	case errors.Is(err, route.ErrNotReady):
		d.logger.Debug("confirmation link never appeared", zap.String("url", action), zap.Error(err))
		metrics.ObserveAttachment("none")
		return "", nil
	case err != nil:
		metrics.ObserveAttachment("failed")
		return "", fmt.Errorf("open confirmation page %s: %w", action, err)
	}
	direct, ok := extract.ConfirmationLink(confirm, d.layout)
	if !ok {
		d.logger.Debug("no confirmation link", zap.String("url", action))
		metrics.ObserveAttachment("none")
		return "", nil
	}

	name := FileName(direct, d.layout.AttachmentExt)
	v, err, shared := d.group.Do(name, func() (any, error) {
		return d.fetchOnce(ctx, name, direct)
	})
	if err != nil {
		metrics.ObserveAttachment("failed")
		return "", err
	}
	if shared {
		d.logger.Debug("attachment download shared", zap.String("name", name))
	}
	return v.(string), nil
}

func (d *Downloader) fetchOnce(ctx context.Context, name, rawURL string) (string, error) {
	location, exists, err := d.store.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check attachment %s: %w", name, err)
	}
	if exists {
		metrics.ObserveAttachment("existing")
		return location, nil
	}

	data, err := d.getter.Get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch attachment %s: %w", rawURL, err)
	}
	location, err = d.store.PutObject(ctx, name, d.cfg.ContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store attachment %s: %w", name, err)
	}
	metrics.ObserveAttachment("downloaded")
	d.logger.Info("attachment stored",
		zap.String("name", name),
		zap.String("location", location),
		zap.Int("bytes", len(data)),
	)
	return location, nil
}
