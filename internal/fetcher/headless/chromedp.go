// Package headless opens browser-backed sessions via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/metrics"
	"github.com/JakeFAU/munro-enricher/internal/page"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const defaultNavigationTimeout = 45 * time.Second

// Config controls the browser sessions.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser bool
	ExecPath    string
}

// Waiter throttles navigations per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Factory shares one Chrome allocator across sessions. Each session runs its
// own browser.
type Factory struct {
	cfg         Config
	limiter     Waiter
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewFactory prepares the Chrome allocator. No browser starts until the
// first NewSession call.
func NewFactory(cfg Config, limiter Waiter, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ShowBrowser {
		opts = append(opts, chromedp.Flag("headless", false))
	} else {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Factory{
		cfg:         cfg,
		limiter:     limiter,
		logger:      logger.Named("headless"),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// NewSession starts a browser and returns a session bound to it.
func (f *Factory) NewSession(ctx context.Context) (route.Session, error) {
	browserCtx, browserCancel := chromedp.NewContext(f.allocator)
	stop := forwardCancel(ctx, browserCancel)
	err := chromedp.Run(browserCtx, f.setupAction())
	stop()
	if err != nil {
		browserCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	f.logger.Debug("browser session started")
	return &Session{
		browser: browserCtx,
		cancel:  browserCancel,
		cfg:     f.cfg,
		limiter: f.limiter,
		logger:  f.logger,
	}, nil
}

// Close shuts the allocator down, killing any browser still running.
func (f *Factory) Close() {
	f.allocCancel()
}

func (f *Factory) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Session drives a single browser tab. It is not safe for concurrent use.
type Session struct {
	browser context.Context
	cancel  context.CancelFunc
	cfg     Config
	limiter Waiter
	logger  *zap.Logger
}

// Navigate loads req.URL, waits for req.WaitSelector when set, and returns a
// snapshot of the rendered DOM.
func (s *Session) Navigate(ctx context.Context, req route.NavigateRequest) (route.PageView, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, req.URL); err != nil {
			return nil, err
		}
	}

	taskCtx, cancelTask := context.WithTimeout(s.browser, s.cfg.NavigationTimeout+req.WaitTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	navCtx, cancelNav := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(req.URL))
	cancelNav()
	if err != nil {
		metrics.ObservePage(req.URL, "error")
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	if req.WaitSelector != "" {
		if err := s.waitReady(taskCtx, req); err != nil {
			metrics.ObservePage(req.URL, "not_ready")
			return nil, err
		}
	}

	var html, finalURL string
	if err := chromedp.Run(taskCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		metrics.ObservePage(req.URL, "error")
		return nil, fmt.Errorf("snapshot %s: %w", req.URL, err)
	}
	if finalURL == "" {
		finalURL = req.URL
	}
	metrics.ObservePage(req.URL, "ok")
	return page.Parse(finalURL, []byte(html))
}

func (s *Session) waitReady(ctx context.Context, req route.NavigateRequest) error {
	timeout := req.WaitTimeout
	if timeout <= 0 {
		timeout = s.cfg.NavigationTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := chromedp.Run(waitCtx, chromedp.WaitReady(req.WaitSelector, chromedp.ByQuery))
	return classifyWait(req, err, waitCtx.Err())
}

// classifyWait maps an expired readiness wait onto route.ErrNotReady.
func classifyWait(req route.NavigateRequest, runErr, waitErr error) error {
	if runErr == nil {
		return nil
	}
	if errors.Is(waitErr, context.DeadlineExceeded) || errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("wait for %q on %s after %s: %w", req.WaitSelector, req.URL, req.WaitTimeout, route.ErrNotReady)
	}
	return fmt.Errorf("wait for %q on %s: %w", req.WaitSelector, req.URL, runErr)
}

// Close terminates the session's browser.
func (s *Session) Close() error {
	s.cancel()
	s.logger.Debug("browser session closed")
	return nil
}

// forwardCancel cancels the chromedp context when parent finishes. The
// returned func stops forwarding.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
