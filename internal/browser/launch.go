package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/policy"
)

// LaunchFunc creates a browser+page pair for a new session. Injected so the
// pool can be exercised in tests without a Chrome binary.
type LaunchFunc func(ctx context.Context, cfg app.BrowserConfig) (Page, *policy.Controller, error)

// chromePage is the chromedp-backed Page implementation.
type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func (p *chromePage) Ctx() context.Context { return p.ctx }

// Alive evaluates a trivial script as a cheap liveness probe.
func (p *chromePage) Alive(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(p.ctx, 2*time.Second)
	defer cancel()

	var n int
	if err := chromedp.Run(probeCtx, chromedp.Evaluate(`1+1`, &n)); err != nil {
		slog.DebugContext(ctx, "liveness probe failed", "error", err)
		return false
	}
	return n == 2
}

func (p *chromePage) Close() {
	p.cancel()
	p.allocCancel()
}

// allocatorOpts builds launch flags for a constrained server environment:
// sandbox off where the host demands it, shared-memory workarounds for
// containers, GPU off, reduced viewport.
func allocatorOpts(cfg app.BrowserConfig) []chromedp.ExecAllocatorOption {
	var headlessVal string
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-setuid-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// logConsole surfaces page console output at debug level. The portal spams
// autocomplete warnings on every login form render; those are dropped.
func logConsole(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*runtime.EventConsoleAPICalled)
		if !ok {
			return
		}
		var parts []string
		for _, arg := range e.Args {
			if arg.Value != nil {
				parts = append(parts, string(arg.Value))
			}
		}
		msg := strings.Join(parts, " ")
		if strings.Contains(msg, "autocomplete") {
			return
		}
		slog.Debug("page console", "type", string(e.Type), "message", msg)
	})
}

// launchChrome starts a headless Chrome, bounds its startup, and installs the
// resource policy before the first navigation. The page starts under the Fast
// preset; the coordinator switches to Faithful before the final render.
func launchChrome(ctx context.Context, cfg app.BrowserConfig, portalHost string) (Page, *policy.Controller, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOpts(cfg)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	page := &chromePage{ctx: taskCtx, cancel: taskCancel, allocCancel: allocCancel}
	logConsole(taskCtx)

	// Bound browser startup. Run in a goroutine rather than a child timeout
	// context: canceling a child of the chromedp task context breaks the
	// target in chromedp v0.14.
	startDone := make(chan error, 1)
	go func() {
		var n int
		startDone <- chromedp.Run(taskCtx, chromedp.Evaluate(`1+1`, &n))
	}()

	select {
	case err := <-startDone:
		if err != nil {
			page.Close()
			return nil, nil, fmt.Errorf("starting browser: %w", err)
		}
	case <-time.After(cfg.StartupTimeout):
		page.Close()
		return nil, nil, fmt.Errorf("browser startup timed out after %s", cfg.StartupTimeout)
	case <-ctx.Done():
		page.Close()
		return nil, nil, ctx.Err()
	}

	ctrl, err := policy.Install(taskCtx, portalHost, policy.Fast)
	if err != nil {
		page.Close()
		return nil, nil, fmt.Errorf("installing resource policy: %w", err)
	}

	return page, ctrl, nil
}

// ChromeLauncher returns the production LaunchFunc for the given portal URL.
func ChromeLauncher(loginURL string) (LaunchFunc, error) {
	u, err := url.Parse(loginURL)
	if err != nil {
		return nil, fmt.Errorf("parsing portal URL %q: %w", loginURL, err)
	}
	host := u.Host

	return func(ctx context.Context, cfg app.BrowserConfig) (Page, *policy.Controller, error) {
		return launchChrome(ctx, cfg, host)
	}, nil
}
