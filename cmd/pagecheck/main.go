// File: cmd/pagecheck/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/fenlock-io/pagecheck/cmd"
	"github.com/fenlock-io/pagecheck/internal/observability"
)

// Allows mocking os.Exit and the command runner in tests.
var (
	osExit  = os.Exit
	execute = cmd.Execute
)

func main() {
	defer handlePanic()

	// Ctrl-C and SIGTERM cancel the context so the browser and report
	// teardown still run before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osExit(run(ctx))
}

// run executes the CLI and maps its error to the process exit code.
// Verification failures surface through the report and exit zero; a
// non-nil error here means usage mistakes, a broken environment or an
// interrupt.
func run(ctx context.Context) int {
	err := execute(ctx)
	observability.Sync()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		// 128+SIGINT, the conventional code for an interrupted run.
		return 130
	default:
		return 1
	}
}

// handlePanic flushes the logs and reports the crash before exiting.
func handlePanic() {
	if r := recover(); r != nil {
		observability.Sync()
		fmt.Fprintf(os.Stderr, "panic: %v\n\n%s", r, debug.Stack())
		osExit(1)
	}
}
