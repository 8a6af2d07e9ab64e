package schemas

import (
	"context"
	"time"
)

// SessionProvider hands out live browser sessions. Implementations enforce
// the single live session rule: a second Acquire while a session is open
// fails instead of spawning another tab.
type SessionProvider interface {
	Acquire(ctx context.Context, target string) (BrowserSession, error)
	Shutdown(ctx context.Context) error
}

// BrowserSession is one live tab plus its diagnostic collectors. All methods
// honor the passed context and the session lifetime, whichever ends first.
// Close is idempotent; the log accessors remain valid after Close.
type BrowserSession interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) (string, error)
	Value(ctx context.Context, selector string) (string, error)
	TextContent(ctx context.Context, selector string) (string, error)
	WaitHeadingVisible(ctx context.Context, name string, timeout time.Duration) error
	WaitTextChange(ctx context.Context, selector, from string, timeout time.Duration) (string, error)
	Sleep(ctx context.Context, d time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	ConsoleLogs() []ConsoleLog
	PageErrors() []PageError
	Close() error
}
