// Package collyfetcher fetches pages and files over plain HTTP using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/page"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Waiter throttles requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher issues single GET requests through a cloned Colly collector. It
// serves both as a static SessionFactory and as the attachment byte getter.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type response struct {
	url    string
	status int
	body   []byte
}

// New builds a Fetcher.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		logger:        logger.Named("colly"),
		baseCollector: c,
	}
}

// Get downloads rawURL and returns the body. Non-2xx responses are errors.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// NewSession returns a stateless session over the shared collector.
func (f *Fetcher) NewSession(_ context.Context) (route.Session, error) {
	return &Session{fetcher: f}, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return response{}, err
		}
	}

	collector := f.baseCollector.Clone()
	done := make(chan struct {
		resp response
		err  error
	}, 1)
	go func() {
		var (
			resp     response
			fetchErr error
		)
		collector.OnResponse(func(r *colly.Response) {
			resp = response{
				url:    r.Request.URL.String(),
				status: r.StatusCode,
				body:   append([]byte(nil), r.Body...),
			}
		})
		collector.OnError(func(r *colly.Response, err error) {
			if r != nil && r.StatusCode != 0 {
				fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
				return
			}
			fetchErr = err
		})
		err := collector.Visit(rawURL)
		if err == nil {
			err = fetchErr
		}
		if err == nil && (resp.status < 200 || resp.status > 299) {
			err = fmt.Errorf("unexpected status %d", resp.status)
		}
		done <- struct {
			resp response
			err  error
		}{resp, err}
	}()

	select {
	case <-ctx.Done():
		return response{}, fmt.Errorf("colly fetch %s canceled: %w", rawURL, ctx.Err())
	case out := <-done:
		if out.err != nil {
			metrics.ObservePage(rawURL, "error")
			f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(out.err))
			return response{}, fmt.Errorf("colly fetch %s: %w", rawURL, out.err)
		}
		metrics.ObservePage(rawURL, "ok")
		return out.resp, nil
	}
}

// Session implements route.Session without a browser. Readiness means the
// wait selector is present in the fetched HTML.
type Session struct {
	fetcher *Fetcher
}

// Navigate fetches req.URL and parses it.
func (s *Session) Navigate(ctx context.Context, req route.NavigateRequest) (route.PageView, error) {
	resp, err := s.fetcher.fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	doc, err := page.Parse(resp.url, resp.body)
	if err != nil {
		return nil, err
	}
	if req.WaitSelector != "" && len(doc.Find(req.WaitSelector)) == 0 {
		return nil, fmt.Errorf("%q missing on %s: %w", req.WaitSelector, req.URL, route.ErrNotReady)
	}
	return doc, nil
}

// Close is a no-op; the collector is shared.
func (s *Session) Close() error {
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
