// internal/browser/manager.go

// Package browser owns the headless Chromium lifecycle: one allocator per
// process, one live session at a time, and the CDP plumbing that turns page
// activity into diagnostic logs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/config"
)

// ErrSessionActive is returned by Acquire while another session is open.
var ErrSessionActive = errors.New("a verification session is already active")

const shutdownGrace = 10 * time.Second

// Manager owns the exec allocator and enforces the one-live-session rule.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	// sem carries the one-live-session rule. Weighted(1) so a failed
	// TryAcquire can be reported instead of silently queueing a second tab.
	sem *semaphore.Weighted

	mu     sync.Mutex
	active *Session
	closed bool
}

var _ schemas.SessionProvider = (*Manager)(nil)

// NewManager prepares the Chromium allocator. The browser process itself is
// launched lazily by the first session.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("browser manager requires a configuration")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execAllocatorOptions(&cfg.Browser)...)

	return &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		sem:         semaphore.NewWeighted(1),
	}, nil
}

// Acquire opens the single allowed session. Navigation is left to the
// caller. A second call before Close fails with ErrSessionActive.
func (m *Manager) Acquire(ctx context.Context, target string) (schemas.BrowserSession, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is shut down")
	}
	m.mu.Unlock()

	if !m.sem.TryAcquire(1) {
		return nil, ErrSessionActive
	}

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	}
	if m.cfg.Browser.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(m.logger.Sugar().Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx, ctxOpts...)

	s := newSession(tabCtx, tabCancel, target, m.cfg, m.logger, func() {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		m.sem.Release(1)
	})

	if err := s.start(ctx); err != nil {
		// Close releases the semaphore through the onClose hook.
		_ = s.Close()
		return nil, fmt.Errorf("browser session could not be started: %w", err)
	}

	m.mu.Lock()
	m.active = s
	m.mu.Unlock()

	m.logger.Debug("Browser session acquired.",
		zap.String("session_id", s.ID()),
		zap.String("target", target),
	)
	return s, nil
}

// Shutdown closes any live session and tears the browser process down.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	active := m.active
	m.mu.Unlock()

	if active != nil {
		// chromedp.Cancel closes the browser gracefully but blocks until
		// the process exits, so bound it.
		graceCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(active.ctx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			}
		case <-graceCtx.Done():
			m.logger.Warn("Browser shutdown timed out; terminating.", zap.Duration("grace", shutdownGrace))
		}

		if err := active.Close(); err != nil {
			m.logger.Warn("Error closing session during shutdown.", zap.Error(err))
		}
	}

	m.allocCancel()
	m.logger.Debug("Browser manager shut down.")
	return nil
}

// execAllocatorOptions translates the browser configuration into chromedp
// allocator options.
func execAllocatorOptions(cfg *config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// Extra flags from configuration, either bare or key=value.
	for _, arg := range cfg.Args {
		key, value := parseFlag(arg)
		opts = append(opts, chromedp.Flag(key, value))
	}
	return opts
}

// parseFlag splits a command line style browser argument into the key and
// value chromedp.Flag expects. Bare flags become boolean switches.
func parseFlag(arg string) (string, interface{}) {
	key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
	if found {
		return key, value
	}
	return key, true
}
