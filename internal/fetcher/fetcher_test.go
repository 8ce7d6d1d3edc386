package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/browser"
	"github.com/Prem-080/cgpa-fetcher/internal/policy"
	"github.com/Prem-080/cgpa-fetcher/internal/portal"
)

func appPortalConfig() app.PortalConfig {
	return app.PortalConfig{LoginURL: portal.DefaultLoginURL}
}

// stubPage has no live browser behind it; chromedp actions against its
// context fail, which exercises the coordinator's error paths.
type stubPage struct{}

func (stubPage) Ctx() context.Context           { return context.Background() }
func (stubPage) Alive(ctx context.Context) bool { return true }
func (stubPage) Close()                         {}

func stubLaunch(ctx context.Context, cfg app.BrowserConfig) (browser.Page, *policy.Controller, error) {
	return stubPage{}, nil, nil
}

func newTestPool(t *testing.T) *browser.Pool {
	t.Helper()
	pool := browser.NewPool(app.BrowserConfig{}, app.PoolConfig{
		Capacity:      4,
		IdleTTL:       time.Minute,
		SweepInterval: time.Hour,
	}, stubLaunch)
	t.Cleanup(pool.Close)
	return pool
}

func TestFetchServesCachedResultWithFreshScreenshotAttempt(t *testing.T) {
	pool := newTestPool(t)
	c := New(pool, appPortalConfig())

	session, _, err := pool.Acquire(t.Context(), "21ABCD01EF")
	require.NoError(t, err)

	sgpa := 6.89
	session.SetState(browser.ResultsRendered)
	session.SetCached(&browser.CachedResult{
		CGPA:        "7.46",
		SGPA:        &sgpa,
		StudentName: "STUDENT NAME",
		Term:        portal.TermII_I,
	})

	result, err := c.Fetch(t.Context(), "21abcd01ef", "II_I")
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, "7.46", result.CGPA)
	require.NotNil(t, result.SGPA)
	assert.Equal(t, 6.89, *result.SGPA)
	assert.Equal(t, "STUDENT NAME", result.StudentName)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))

	// The stub page cannot produce a capture, but the cached numbers must
	// never be blocked by that: screenshots are best-effort evidence.
	assert.Empty(t, result.Screenshots)

	// The session survives a successful cached fetch.
	assert.Equal(t, 1, pool.Len())
}

func TestFetchDifferentTermBypassesCache(t *testing.T) {
	pool := newTestPool(t)
	c := New(pool, appPortalConfig())

	session, _, err := pool.Acquire(t.Context(), "21ABCD01EF")
	require.NoError(t, err)

	sgpa := 8.0
	session.SetState(browser.ResultsRendered)
	session.SetCached(&browser.CachedResult{CGPA: "8.1", SGPA: &sgpa, Term: portal.TermII_I})

	// A different term cannot be served from cache; the stub page makes the
	// required navigation fail, which must destroy the session.
	_, err = c.Fetch(t.Context(), "21ABCD01EF", "II_II")
	require.Error(t, err)
	assert.True(t, tearsDownSession(KindOf(err)))
	assert.Zero(t, pool.Len())
}

func TestFetchNavigationFailureDestroysSession(t *testing.T) {
	pool := newTestPool(t)
	c := New(pool, appPortalConfig())

	// Fresh session: login against the stub page fails immediately.
	_, err := c.Fetch(t.Context(), "21ABCD01EF", "II_I")
	require.Error(t, err)

	kind := KindOf(err)
	assert.NotEqual(t, KindValidation, kind)
	assert.True(t, tearsDownSession(kind))
	assert.Zero(t, pool.Len(), "failed session must not stay pooled")
}

func TestFetchKeepsSessionWhenResultsUnpublished(t *testing.T) {
	pool := newTestPool(t)
	c := New(pool, appPortalConfig())
	c.flow = func(ctx context.Context, session *browser.Session, term portal.Term, reused bool) (*Result, error) {
		return nil, newError(KindDataUnavailable, nil,
			"results for %s are not available yet", term.Label())
	}

	_, err := c.Fetch(t.Context(), "21ABCD01EF", "III_I")
	require.Error(t, err)
	assert.Equal(t, KindDataUnavailable, KindOf(err))

	// Unpublished results leave a perfectly good session pooled for reuse.
	assert.Equal(t, 1, pool.Len())
}

func TestFetchValidationBeforeAutomation(t *testing.T) {
	pool := newTestPool(t)
	c := New(pool, appPortalConfig())

	_, err := c.Fetch(t.Context(), "   ", "II_I")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = c.Fetch(t.Context(), "21ABCD01EF", "II_III")
	assert.Equal(t, KindValidation, KindOf(err))

	// No session was ever created for invalid input.
	assert.Zero(t, pool.Len())
}
