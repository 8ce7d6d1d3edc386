// Package policy controls which sub-resources the automated browser may
// fetch. Login and menu traversal do not need pixels, so most resources are
// blocked for speed; the final results page is rendered faithfully because a
// screenshot of it is part of the deliverable.
package policy

import (
	"context"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Preset selects a resource-loading trade-off.
type Preset int32

const (
	// Fast blocks everything cosmetic: images, stylesheets, fonts, media,
	// websockets, and any cross-origin script.
	Fast Preset = iota
	// Faithful allows images and stylesheets so the page screenshots
	// accurately, while still blocking fonts, media, websockets, and
	// cross-origin scripts.
	Faithful
)

func (p Preset) String() string {
	if p == Faithful {
		return "faithful"
	}
	return "fast"
}

// settleDelay gives the renderer a moment after a preset swap; interception
// changes never apply to requests already in flight.
const settleDelay = 300 * time.Millisecond

// Blocks reports whether a preset denies a request of the given resource type.
// pageHost anchors the cross-origin script check.
func Blocks(p Preset, resourceType network.ResourceType, requestURL, pageHost string) bool {
	switch resourceType {
	case network.ResourceTypeFont, network.ResourceTypeMedia, network.ResourceTypeWebSocket:
		return true
	case network.ResourceTypeImage, network.ResourceTypeStylesheet:
		return p == Fast
	case network.ResourceTypeScript:
		u, err := url.Parse(requestURL)
		if err != nil {
			return true
		}
		return u.Host != pageHost
	default:
		return false
	}
}

// Controller owns the interception rule installed on a page. A single fetch
// listener lives for the whole session and consults the current preset
// atomically, so swapping presets never leaves a stale rule behind.
type Controller struct {
	preset   atomic.Int32
	pageHost string
}

// Install enables the fetch domain on the session context and registers the
// interception listener. It must be called once per session, before the first
// navigation.
func Install(ctx context.Context, pageHost string, initial Preset) (*Controller, error) {
	c := &Controller{pageHost: pageHost}
	c.preset.Store(int32(initial))

	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go c.resolve(ctx, e)
	})

	if err := chromedp.Run(ctx, fetch.Enable()); err != nil {
		return nil, err
	}
	return c, nil
}

// resolve continues or fails one paused request. Failures here are logged and
// swallowed: a request stuck in limbo is aborted by the browser's own
// timeouts, and interception must never take the session down.
func (c *Controller) resolve(ctx context.Context, e *fetch.EventRequestPaused) {
	cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cdpCtx := chromedp.FromContext(cmdCtx)
	executor := cdp.WithExecutor(cmdCtx, cdpCtx.Target)

	if Blocks(c.Current(), e.ResourceType, e.Request.URL, c.pageHost) {
		if err := fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(executor); err != nil {
			slog.DebugContext(ctx, "failed to block request", "url", e.Request.URL, "error", err)
		}
		return
	}
	if err := fetch.ContinueRequest(e.RequestID).Do(executor); err != nil {
		slog.DebugContext(ctx, "failed to continue request", "url", e.Request.URL, "error", err)
	}
}

// Current returns the active preset.
func (c *Controller) Current() Preset {
	return Preset(c.preset.Load())
}

// Set swaps the active preset and waits a short settle delay before the
// caller resumes navigation.
func (c *Controller) Set(ctx context.Context, p Preset) error {
	old := Preset(c.preset.Swap(int32(p)))
	if old == p {
		return nil
	}
	slog.DebugContext(ctx, "resource policy swapped", "from", old.String(), "to", p.String())

	select {
	case <-time.After(settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
