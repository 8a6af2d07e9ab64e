// internal/browser/context.go

package browser

import "context"

// combineContext derives a context from primary that is additionally
// canceled when secondary ends. chromedp actions must run on the tab's own
// context chain, so caller deadlines are folded in this way instead of being
// passed through directly.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
