// Package browser owns the headless-browser processes behind the fetch
// pipeline. Every other component borrows a page context from a pooled
// Session; only this package creates or destroys the underlying Chrome
// instances.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/Prem-080/cgpa-fetcher/internal/policy"
	"github.com/Prem-080/cgpa-fetcher/internal/portal"
)

// State tracks how far through the portal flow a session's page has advanced.
// It is advanced deterministically by each completed step instead of being
// re-derived from live page inspection on every request.
type State int

const (
	// LoggedOut means the page has not passed the portal login yet.
	LoggedOut State = iota
	// OnMarksPage means login and marks navigation are done; the semester
	// buttons are on screen.
	OnMarksPage
	// ResultsRendered means a semester's results are currently displayed.
	ResultsRendered
)

func (s State) String() string {
	switch s {
	case OnMarksPage:
		return "on-marks-page"
	case ResultsRendered:
		return "results-rendered"
	default:
		return "logged-out"
	}
}

// Page is the borrowed browser-page handle the pipeline drives. The chromedp
// implementation lives in launch.go; tests substitute fakes.
type Page interface {
	// Ctx returns the page's task context for chromedp actions.
	Ctx() context.Context
	// Alive probes the page with a trivial script evaluation.
	Alive(ctx context.Context) bool
	// Close tears down the page and its browser process. Close failures are
	// logged and swallowed; reclamation is best-effort.
	Close()
}

// CachedResult holds the last metrics a session produced, served again when
// navigation is skipped. Screenshots are deliberately excluded: visual
// evidence is always captured fresh.
type CachedResult struct {
	CGPA        string
	SGPA        *float64
	StudentName string
	Term        portal.Term
}

// Session is one pooled automation context bound to a student roll number.
type Session struct {
	roll   string
	page   Page
	policy *policy.Controller

	// mu serializes whole request flows: chromedp actions on one page must
	// never interleave between two in-flight requests.
	mu sync.Mutex

	stateMu    sync.Mutex
	state      State
	lastActive time.Time
	cached     *CachedResult
}

// Roll returns the normalized student identifier the session is keyed by.
func (s *Session) Roll() string { return s.roll }

// Ctx returns the page context for chromedp actions.
func (s *Session) Ctx() context.Context { return s.page.Ctx() }

// Policy returns the session's resource policy controller. Nil for sessions
// created by a fake launcher in tests.
func (s *Session) Policy() *policy.Controller { return s.policy }

// Lock serializes use of the session's page for one end-to-end request flow.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session for the next request.
func (s *Session) Unlock() { s.mu.Unlock() }

// State returns the session's navigation state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// SetState advances the navigation state after a completed step.
func (s *Session) SetState(state State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

// Touch refreshes the session's activity timestamp.
func (s *Session) Touch() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastActive = time.Now()
}

// IdleSince returns the last activity timestamp.
func (s *Session) IdleSince() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastActive
}

// Cached returns the session's last-known metrics, or nil.
func (s *Session) Cached() *CachedResult {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.cached
}

// SetCached stores freshly computed metrics for reuse.
func (s *Session) SetCached(r *CachedResult) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.cached = r
}

// closeWhenIdle closes the page under the flow lock, blocking until any
// in-flight request releases the session. Closing without the lock would pull
// live handles out from under a request still driving the page.
func (s *Session) closeWhenIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page.Close()
}

// closeWhenFree closes immediately when the session is idle, and defers to a
// background goroutine when a flow holds the lock. The deferred path matters:
// a failing request evicts its own session while still holding the lock, so a
// synchronous close there would deadlock.
func (s *Session) closeWhenFree() {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		s.page.Close()
		return
	}
	go s.closeWhenIdle()
}
