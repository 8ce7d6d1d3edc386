package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
)

// Pool caches live sessions per roll number so repeat requests skip the
// expensive browser launch and login. It is bounded two ways: a hard capacity
// with oldest-first eviction, and an idle sweep that reclaims sessions
// untouched past the TTL.
type Pool struct {
	browserCfg app.BrowserConfig
	poolCfg    app.PoolConfig
	launch     LaunchFunc

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // insertion order, oldest first

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  bool
}

// NewPool creates a session pool using the given launcher.
func NewPool(browserCfg app.BrowserConfig, poolCfg app.PoolConfig, launch LaunchFunc) *Pool {
	return &Pool{
		browserCfg: browserCfg,
		poolCfg:    poolCfg,
		launch:     launch,
		sessions:   make(map[string]*Session),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the background idle sweep.
func (p *Pool) Start() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.poolCfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Sweep()
			case <-p.stop:
				return
			}
		}
	}()
}

// BrowserConfig returns the launch settings sessions are created with.
func (p *Pool) BrowserConfig() app.BrowserConfig {
	return p.browserCfg
}

// NormalizeRoll upper-cases a roll number; the pool key is case-insensitive.
func NormalizeRoll(roll string) string {
	return strings.ToUpper(strings.TrimSpace(roll))
}

// Acquire returns a live session for the roll, reusing a pooled one when its
// page still responds to a probe. Stale sessions are torn down and replaced.
// The second return reports whether an existing session was reused.
func (p *Pool) Acquire(ctx context.Context, roll string) (*Session, bool, error) {
	roll = NormalizeRoll(roll)

	p.mu.Lock()
	existing := p.sessions[roll]
	p.mu.Unlock()

	if existing != nil {
		// A session another request is actively driving is alive by
		// definition; probing it mid-navigation would race that flow and can
		// fail spuriously.
		if !existing.mu.TryLock() {
			existing.Touch()
			return existing, true, nil
		}
		alive := existing.page.Alive(ctx)
		existing.mu.Unlock()
		if alive {
			existing.Touch()
			return existing, true, nil
		}
		slog.InfoContext(ctx, "pooled session unresponsive, replacing", "roll", roll)
		p.Evict(roll)
	}

	page, ctrl, err := p.launch(ctx, p.browserCfg)
	if err != nil {
		return nil, false, fmt.Errorf("launching session for %s: %w", roll, err)
	}

	session := &Session{
		roll:       roll,
		page:       page,
		policy:     ctrl,
		state:      LoggedOut,
		lastActive: time.Now(),
	}

	p.mu.Lock()
	// Another request may have raced a session in for the same roll while we
	// were launching; keep the pooled one and discard ours.
	if raced := p.sessions[roll]; raced != nil {
		p.mu.Unlock()
		page.Close()
		return raced, true, nil
	}
	for len(p.sessions) >= p.poolCfg.Capacity {
		p.evictOldestLocked(ctx)
	}
	p.sessions[roll] = session
	p.order = append(p.order, roll)
	p.mu.Unlock()

	slog.InfoContext(ctx, "session created", "roll", roll, "pooled", p.Len())
	return session, false, nil
}

// evictOldestLocked removes the oldest session by insertion order. Callers
// hold p.mu.
func (p *Pool) evictOldestLocked(ctx context.Context) {
	for len(p.order) > 0 {
		oldest := p.order[0]
		p.order = p.order[1:]
		if s, ok := p.sessions[oldest]; ok {
			delete(p.sessions, oldest)
			slog.InfoContext(ctx, "capacity eviction", "roll", oldest)
			go s.closeWhenIdle()
			return
		}
	}
}

// Evict removes and closes a session, if pooled. Used on unrecoverable step
// errors so a possibly-corrupt session is never reused.
func (p *Pool) Evict(roll string) {
	roll = NormalizeRoll(roll)

	p.mu.Lock()
	session, ok := p.sessions[roll]
	if ok {
		delete(p.sessions, roll)
		p.removeFromOrderLocked(roll)
	}
	p.mu.Unlock()

	if ok {
		session.closeWhenFree()
	}
}

func (p *Pool) removeFromOrderLocked(roll string) {
	for i, r := range p.order {
		if r == roll {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

// Sweep removes sessions idle past the TTL. Close failures are swallowed by
// the Page implementation; the goal here is resource reclamation.
func (p *Pool) Sweep() {
	cutoff := time.Now().Add(-p.poolCfg.IdleTTL)

	p.mu.Lock()
	var expired []*Session
	for roll, s := range p.sessions {
		if s.IdleSince().Before(cutoff) {
			delete(p.sessions, roll)
			p.removeFromOrderLocked(roll)
			expired = append(expired, s)
		}
	}
	p.mu.Unlock()

	for _, s := range expired {
		slog.Info("idle session evicted", "roll", s.roll)
		s.closeWhenFree()
	}
}

// Len returns the number of pooled sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Close stops the sweep and drains every session.
func (p *Pool) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}

	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessions = make(map[string]*Session)
	p.order = nil
	p.mu.Unlock()

	for _, s := range sessions {
		s.closeWhenIdle()
	}
}
