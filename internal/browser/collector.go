// internal/browser/collector.go

package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collector captures console output and uncaught exceptions from a tab via
// CDP events. Events arrive on chromedp's dispatch goroutine, so all state
// is guarded.
type Collector struct {
	tabCtx context.Context
	logger *zap.Logger

	mu         sync.Mutex
	started    bool
	stopListen context.CancelFunc
	console    []schemas.ConsoleLog
	pageErrors []schemas.PageError
}

func newCollector(tabCtx context.Context, logger *zap.Logger) *Collector {
	return &Collector{
		tabCtx: tabCtx,
		logger: logger.Named("collector"),
	}
}

// Start attaches the event listener and enables the runtime and log domains.
// The first chromedp action here is what actually launches the tab.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	listenCtx, cancel := context.WithCancel(c.tabCtx)
	c.stopListen = cancel
	c.mu.Unlock()

	chromedp.ListenTarget(listenCtx, c.dispatch)

	runCtx, runCancel := combineContext(c.tabCtx, ctx)
	defer runCancel()
	if err := chromedp.Run(runCtx, runtime.Enable(), log.Enable()); err != nil {
		return fmt.Errorf("enabling console capture: %w", err)
	}
	return nil
}

// Stop detaches the event listener. Captured entries stay readable.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
}

// ConsoleLogs returns a copy of the captured console messages.
func (c *Collector) ConsoleLogs() []schemas.ConsoleLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.ConsoleLog, len(c.console))
	copy(out, c.console)
	return out
}

// PageErrors returns a copy of the captured page exceptions.
func (c *Collector) PageErrors() []schemas.PageError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.PageError, len(c.pageErrors))
	copy(out, c.pageErrors)
	return out
}

func (c *Collector) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		c.addConsoleCall(e)
	case *log.EventEntryAdded:
		c.addLogEntry(e)
	case *runtime.EventExceptionThrown:
		c.addException(e)
	}
}

func (c *Collector) addConsoleCall(e *runtime.EventConsoleAPICalled) {
	if e == nil {
		return
	}
	entry := schemas.ConsoleLog{
		Level:  string(e.Type),
		Text:   consoleText(e.Args),
		Source: "console-api",
	}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.Seq = len(c.console) + 1
	c.console = append(c.console, entry)
}

func (c *Collector) addLogEntry(e *log.EventEntryAdded) {
	if e == nil || e.Entry == nil {
		return
	}
	entry := schemas.ConsoleLog{
		Level:  string(e.Entry.Level),
		Text:   e.Entry.Text,
		Source: string(e.Entry.Source),
	}
	if e.Entry.Timestamp != nil {
		entry.Timestamp = e.Entry.Timestamp.Time()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.Seq = len(c.console) + 1
	c.console = append(c.console, entry)
}

func (c *Collector) addException(e *runtime.EventExceptionThrown) {
	if e == nil || e.ExceptionDetails == nil {
		return
	}
	d := e.ExceptionDetails
	text := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		text = d.Exception.Description
	}
	entry := schemas.PageError{Text: text}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.Seq = len(c.pageErrors) + 1
	c.pageErrors = append(c.pageErrors, entry)
}

// consoleText renders console call arguments the way devtools would: plain
// values as-is, remote objects by their description.
func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		switch {
		case arg.Value != nil:
			var v interface{}
			if err := json.Unmarshal(arg.Value, &v); err == nil {
				parts = append(parts, fmt.Sprintf("%v", v))
			} else {
				parts = append(parts, string(arg.Value))
			}
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, fmt.Sprintf("[%s]", arg.Type))
		}
	}
	return strings.Join(parts, " ")
}
