// Package discover builds the entity list from an A-Z index page.
package discover

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

// Config locates the index page and its entity links.
type Config struct {
	IndexURL     string
	LinkSelector string
	BaseURL      string
	WaitTimeout  time.Duration
}

// DefaultConfig targets the walkhighlands Munro index.
func DefaultConfig() Config {
	return Config{
		IndexURL:     "https://www.walkhighlands.co.uk/munros/munros-a-z",
		LinkSelector: "#arealist tbody a, #areamap tbody a",
		BaseURL:      "https://www.walkhighlands.co.uk/munros/",
		WaitTimeout:  15 * time.Second,
	}
}

// Discoverer fetches the index page through a session.
type Discoverer struct {
	factory route.SessionFactory
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Discoverer.
func New(factory route.SessionFactory, cfg Config, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{factory: factory, cfg: cfg, logger: logger.Named("discover")}
}

// Run loads the index page and returns its entities.
func (d *Discoverer) Run(ctx context.Context) ([]route.Entity, error) {
	session, err := d.factory.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Warn("session close failed", zap.Error(err))
		}
	}()

	index, err := session.Navigate(ctx, route.NavigateRequest{
		URL:          d.cfg.IndexURL,
		WaitSelector: d.cfg.LinkSelector,
		WaitTimeout:  d.cfg.WaitTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", d.cfg.IndexURL, err)
	}
	entities := Entities(index, d.cfg)
	d.logger.Info("index parsed", zap.String("url", d.cfg.IndexURL), zap.Int("entities", len(entities)))
	return entities, nil
}

// Entities collects named links from index, canonicalizes each to BaseURL
// plus the link's last path segment, and drops duplicate URLs.
func Entities(index route.PageView, cfg Config) []route.Entity {
	seen := make(map[string]struct{})
	var out []route.Entity
	for _, a := range index.Find(cfg.LinkSelector) {
		name := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			continue
		}
		full := canonical(cfg.BaseURL, href)
		if full == "" {
			continue
		}
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}
		out = append(out, route.Entity{Name: name, URL: full})
	}
	return out
}

func canonical(base, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	slug := path.Base(u.Path)
	if slug == "." || slug == "/" || slug == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + slug
}
