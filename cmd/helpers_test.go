// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/observability"
	"github.com/fenlock-io/pagecheck/internal/store"
)

// resetGlobals gives the test a pristine global viper and logger. The command
// tree configures both through package globals, so every invocation has to
// start from scratch.
func resetGlobals(t *testing.T) {
	t.Helper()
	viper.Reset()
	observability.ResetForTest()
	t.Cleanup(func() {
		viper.Reset()
		observability.ResetForTest()
	})
}

// executeCommand runs the command tree with injected providers and returns
// what it printed to stdout.
func executeCommand(t *testing.T, browsers browserProvider, stores storeProvider, args ...string) (string, error) {
	t.Helper()
	return executeCommandContext(t, context.Background(), browsers, stores, args...)
}

func executeCommandContext(t *testing.T, ctx context.Context, browsers browserProvider, stores storeProvider, args ...string) (string, error) {
	t.Helper()
	resetGlobals(t)
	// Keep command logs out of the test output unless a test opts back in.
	if os.Getenv("PAGECHECK_LOGGER_LEVEL") == "" {
		t.Setenv("PAGECHECK_LOGGER_LEVEL", "error")
	}

	root := newRootCommand(browsers, stores)
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// createTempConfig writes a config file and returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// simulatorPage provides every element the builtin scenarios touch.
const simulatorPage = `<!DOCTYPE html>
<html>
<head><title>Line Bridge Simulator</title></head>
<body>
  <h1>Line Bridge Simulator</h1>
  <button id="start-button">Start</button>
  <button id="pause-button">Pause</button>
  <span id="line-count">0</span>
  <select id="boundary-condition">
    <option value="left-to-right">Left to right</option>
    <option value="top-to-bottom">Top to bottom</option>
  </select>
</body>
</html>
`

func writeSimulatorPage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(simulatorPage), 0o644))
	return path
}

// stubSession is a scripted BrowserSession. Methods honor ctx first, like the
// real session, and record the operations the run performed.
type stubSession struct {
	calls  []string
	closed int

	navigateErr error
	clickErr    error
	selectValue string
	selectErr   error
	value       string
	valueErr    error
	headingErr  error
	waitText    string
	waitTextErr error
	shot        []byte
	shotErr     error

	console  []schemas.ConsoleLog
	pageErrs []schemas.PageError
}

// passingSession scripts a session that satisfies the builtin scenarios and
// emits one console line.
func passingSession() *stubSession {
	return &stubSession{
		selectValue: "top-to-bottom",
		value:       "top-to-bottom",
		waitText:    "42",
		shot:        []byte("png-bytes"),
		console: []schemas.ConsoleLog{
			{Seq: 1, Level: "log", Text: "sim ready"},
		},
	}
}

func (s *stubSession) record(ctx context.Context, call string) error {
	s.calls = append(s.calls, call)
	return ctx.Err()
}

func (s *stubSession) ID() string { return "stub-session" }

func (s *stubSession) Navigate(ctx context.Context, url string) error {
	if err := s.record(ctx, "navigate "+url); err != nil {
		return err
	}
	return s.navigateErr
}

func (s *stubSession) Click(ctx context.Context, selector string) error {
	if err := s.record(ctx, "click "+selector); err != nil {
		return err
	}
	return s.clickErr
}

func (s *stubSession) SelectOption(ctx context.Context, selector, value string) (string, error) {
	if err := s.record(ctx, fmt.Sprintf("select %s=%s", selector, value)); err != nil {
		return "", err
	}
	return s.selectValue, s.selectErr
}

func (s *stubSession) Value(ctx context.Context, selector string) (string, error) {
	if err := s.record(ctx, "value "+selector); err != nil {
		return "", err
	}
	return s.value, s.valueErr
}

func (s *stubSession) TextContent(ctx context.Context, selector string) (string, error) {
	if err := s.record(ctx, "text "+selector); err != nil {
		return "", err
	}
	return s.value, s.valueErr
}

func (s *stubSession) WaitHeadingVisible(ctx context.Context, name string, timeout time.Duration) error {
	if err := s.record(ctx, "heading "+name); err != nil {
		return err
	}
	return s.headingErr
}

func (s *stubSession) WaitTextChange(ctx context.Context, selector, from string, timeout time.Duration) (string, error) {
	if err := s.record(ctx, "waitText "+selector); err != nil {
		return "", err
	}
	return s.waitText, s.waitTextErr
}

// Sleep records the pause without actually waiting.
func (s *stubSession) Sleep(ctx context.Context, d time.Duration) error {
	return s.record(ctx, fmt.Sprintf("sleep %v", d))
}

func (s *stubSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.record(ctx, "screenshot"); err != nil {
		return nil, err
	}
	return s.shot, s.shotErr
}

func (s *stubSession) ConsoleLogs() []schemas.ConsoleLog { return s.console }
func (s *stubSession) PageErrors() []schemas.PageError   { return s.pageErrs }

func (s *stubSession) Close() error {
	s.closed++
	return nil
}

// stubProvider hands out one scripted session.
type stubProvider struct {
	session    *stubSession
	acquireErr error
	acquired   int
	shutdowns  int
}

func (p *stubProvider) Acquire(ctx context.Context, target string) (schemas.BrowserSession, error) {
	p.acquired++
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.session, nil
}

func (p *stubProvider) Shutdown(ctx context.Context) error {
	p.shutdowns++
	return nil
}

// stubBrowsers satisfies browserProvider without launching Chrome.
type stubBrowsers struct {
	provider  *stubProvider
	createErr error
}

func (b *stubBrowsers) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.SessionProvider, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	if b.provider == nil {
		b.provider = &stubProvider{session: passingSession()}
	}
	return b.provider, nil
}

// stubRunStore captures saves and serves canned history without PostgreSQL.
type stubRunStore struct {
	savedResult *schemas.RunResult
	savedText   string
	saveErr     error

	summaries []store.RunSummary
	recentErr error
	lastLimit int

	reports map[string]string
}

func (s *stubRunStore) SaveRun(ctx context.Context, result *schemas.RunResult, reportText string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.savedResult = result
	s.savedText = reportText
	return nil
}

func (s *stubRunStore) RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	s.lastLimit = limit
	return s.summaries, s.recentErr
}

func (s *stubRunStore) ReportText(ctx context.Context, runID string) (string, error) {
	text, ok := s.reports[runID]
	if !ok {
		return "", store.ErrRunNotFound
	}
	return text, nil
}

// stubStores hands out a stubRunStore and counts cleanups.
type stubStores struct {
	store     *stubRunStore
	createErr error
	cleanups  int
}

func (s *stubStores) Create(ctx context.Context, cfg *config.Config) (runStore, func(), error) {
	if s.createErr != nil {
		return nil, nil, s.createErr
	}
	if s.store == nil {
		s.store = &stubRunStore{}
	}
	return s.store, func() { s.cleanups++ }, nil
}
