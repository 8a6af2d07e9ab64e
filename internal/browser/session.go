// internal/browser/session.go

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/config"
)

// Session is one live browser tab plus its diagnostic collector. All methods
// are driven from a single goroutine; the session is not safe for concurrent
// page operations.
type Session struct {
	id     string
	target string

	ctx    context.Context
	cancel context.CancelFunc

	cfg       *config.Config
	logger    *zap.Logger
	collector *Collector
	onClose   func()

	mu     sync.Mutex
	closed bool
}

var _ schemas.BrowserSession = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, target string, cfg *config.Config, logger *zap.Logger, onClose func()) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		target:    target,
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		logger:    logger.Named("session").With(zap.String("session_id", id)),
		collector: newCollector(ctx, logger),
		onClose:   onClose,
	}
}

// start launches the tab and attaches the collector. Capture must be live
// before the first navigation or early console output is lost.
func (s *Session) start(ctx context.Context) error {
	launchCtx, cancel := context.WithTimeout(ctx, s.cfg.Browser.NavigationTimeout)
	defer cancel()
	return s.collector.Start(launchCtx)
}

// ID returns the session identifier used in logs and run records.
func (s *Session) ID() string { return s.id }

// Navigate loads the target document and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.Browser.NavigationTimeout
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(navCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("navigation to %s timed out after %v: %w", url, timeout, context.DeadlineExceeded)
	case navCtx.Err() != nil:
		return fmt.Errorf("navigation to %s interrupted: %w", url, navCtx.Err())
	default:
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
}

// Click scrolls the element into view, waits for it to be visible and
// dispatches a click.
func (s *Session) Click(ctx context.Context, selector string) error {
	timeout := s.cfg.Browser.OperationTimeout
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Clicking.", zap.String("selector", selector))
	err := s.run(opCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(opCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("no visible element matched %q within %v: %w", selector, timeout, schemas.ErrNoElement)
	case opCtx.Err() != nil:
		return fmt.Errorf("click on %q interrupted: %w", selector, opCtx.Err())
	default:
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
}

// SelectOption picks an option of a select element by value and returns the
// value the element reports afterwards. Input and change events are
// dispatched so page listeners fire as they would for a user.
func (s *Session) SelectOption(ctx context.Context, selector, value string) (string, error) {
	timeout := s.cfg.Browser.OperationTimeout
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Selecting option.", zap.String("selector", selector), zap.String("value", value))
	err := s.run(opCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
	)
	if err != nil {
		switch {
		case errors.Is(opCtx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("no visible element matched %q within %v: %w", selector, timeout, schemas.ErrNoElement)
		case opCtx.Err() != nil:
			return "", fmt.Errorf("select on %q interrupted: %w", selector, opCtx.Err())
		default:
			return "", fmt.Errorf("select on %q failed: %w", selector, err)
		}
	}

	var res selectResult
	if err := s.run(opCtx, chromedp.Evaluate(selectScript(selector, value), &res, evalParams)); err != nil {
		return "", fmt.Errorf("select on %q failed: %w", selector, err)
	}
	if !res.OK {
		return res.Value, fmt.Errorf("select on %q: %s: %w", selector, res.Reason, schemas.ErrNoElement)
	}
	return res.Value, nil
}

// Value returns the current value property of the matched element.
func (s *Session) Value(ctx context.Context, selector string) (string, error) {
	p, err := s.probe(ctx, selector)
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

// TextContent returns the trimmed text content of the matched element.
func (s *Session) TextContent(ctx context.Context, selector string) (string, error) {
	p, err := s.probe(ctx, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(p.Text), nil
}

// WaitHeadingVisible polls until a heading with the given accessible name is
// rendered and visible.
func (s *Session) WaitHeadingVisible(ctx context.Context, name string, timeout time.Duration) error {
	s.logger.Debug("Waiting for heading.", zap.String("name", name), zap.Duration("timeout", timeout))
	err := s.pollUntil(ctx, timeout, func(pollCtx context.Context) (bool, error) {
		var visible bool
		if err := s.run(pollCtx, chromedp.Evaluate(headingScript(name), &visible, evalParams)); err != nil {
			return false, err
		}
		return visible, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("heading %q did not become visible within %v: %w", name, timeout, schemas.ErrNoElement)
	default:
		return fmt.Errorf("waiting for heading %q failed: %w", name, err)
	}
}

// WaitTextChange polls the matched element until its trimmed text differs
// from the given value, returning the text that was observed last.
func (s *Session) WaitTextChange(ctx context.Context, selector, from string, timeout time.Duration) (string, error) {
	s.logger.Debug("Waiting for text change.",
		zap.String("selector", selector),
		zap.String("from", from),
		zap.Duration("timeout", timeout),
	)

	var (
		found    bool
		lastText string
	)
	err := s.pollUntil(ctx, timeout, func(pollCtx context.Context) (bool, error) {
		var p probeResult
		if err := s.run(pollCtx, chromedp.Evaluate(probeScript(selector), &p, evalParams)); err != nil {
			return false, err
		}
		if !p.Found {
			return false, nil
		}
		found = true
		lastText = strings.TrimSpace(p.Text)
		return lastText != from, nil
	})
	switch {
	case err == nil:
		return lastText, nil
	case errors.Is(err, context.DeadlineExceeded) && !found:
		return "", fmt.Errorf("no element matched %q within %v: %w", selector, timeout, schemas.ErrNoElement)
	case errors.Is(err, context.DeadlineExceeded):
		return lastText, fmt.Errorf("text of %q stayed %q for %v: %w", selector, from, timeout, schemas.ErrConditionNotMet)
	default:
		return lastText, fmt.Errorf("waiting on %q failed: %w", selector, err)
	}
}

// Sleep keeps the session alive for the given duration, e.g. to let a page
// animation advance before a capture.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if err := s.run(ctx, chromedp.Sleep(d)); err != nil {
		return fmt.Errorf("pause of %v interrupted: %w", d, err)
	}
	return nil
}

// Screenshot captures the full page. Quality 100 produces PNG output,
// anything lower switches chromedp to JPEG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Browser.OperationTimeout)
	defer cancel()

	var buf []byte
	if err := s.run(opCtx, chromedp.FullScreenshot(&buf, s.cfg.Artifacts.ScreenshotQuality)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// ConsoleLogs returns the console messages captured so far, in arrival order.
func (s *Session) ConsoleLogs() []schemas.ConsoleLog {
	return s.collector.ConsoleLogs()
}

// PageErrors returns the uncaught page exceptions captured so far.
func (s *Session) PageErrors() []schemas.PageError {
	return s.collector.PageErrors()
}

// Close releases the tab and the session slot. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.collector.Stop()
	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
	s.logger.Debug("Browser session closed.")
	return nil
}

// probe inspects the first element matched by selector.
func (s *Session) probe(ctx context.Context, selector string) (*probeResult, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Browser.OperationTimeout)
	defer cancel()

	var p probeResult
	if err := s.run(opCtx, chromedp.Evaluate(probeScript(selector), &p, evalParams)); err != nil {
		return nil, fmt.Errorf("inspecting %q failed: %w", selector, err)
	}
	if !p.Found {
		return nil, fmt.Errorf("no element matched %q: %w", selector, schemas.ErrNoElement)
	}
	return &p, nil
}

// pollUntil runs check once per poll interval until it reports true, the
// timeout elapses, or ctx ends. On timeout it returns the context error, so
// callers can distinguish an elapsed wait from a broken check.
func (s *Session) pollUntil(ctx context.Context, timeout time.Duration, check func(context.Context) (bool, error)) error {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(s.cfg.Harness.PollInterval), 1)
	for {
		if err := limiter.Wait(pollCtx); err != nil {
			// Wait refuses a token it cannot grant before the deadline,
			// which would cut the wait short. Hold until the deadline
			// itself so the full timeout is honored.
			<-pollCtx.Done()
			return pollCtx.Err()
		}
		ok, err := check(pollCtx)
		if err != nil {
			if ctxErr := pollCtx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if ok {
			return nil
		}
	}
}

// run executes chromedp actions against the tab, additionally bounded by the
// caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
