package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// AwaitNavigation waits for the page body to be ready after a click, bounded
// by timeout. A timeout is tolerated rather than fatal: some portal
// transitions are partial postbacks that never fire a full navigation, so
// "maybe already applied" is the correct reading.
func AwaitNavigation(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "navigation wait timed out, continuing", "timeout", timeout)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("waiting for navigation: %w", err)
}

// Settle sleeps for d, honoring context cancellation. The portal needs short
// settle pauses after clicks and after resource-policy swaps, since neither
// applies retroactively to in-flight work.
func Settle(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FillField sets the value of an input matched by a CSS selector, waiting for
// it to become visible first.
func FillField(ctx context.Context, selector, value string) error {
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("filling field %s: %w", selector, err)
	}
	return nil
}
