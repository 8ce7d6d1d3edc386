// Package fetcher coordinates one grade-fetch request end to end: session
// acquisition, portal navigation, extraction, screenshot, and teardown on
// failure. It is the only place that sequences the other components.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/errgroup"

	"github.com/Prem-080/cgpa-fetcher/internal/action"
	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/browser"
	"github.com/Prem-080/cgpa-fetcher/internal/extract"
	"github.com/Prem-080/cgpa-fetcher/internal/grades"
	"github.com/Prem-080/cgpa-fetcher/internal/policy"
	"github.com/Prem-080/cgpa-fetcher/internal/portal"
)

// cgpaWaitTimeout bounds the wait for the CGPA label after semester selection.
const cgpaWaitTimeout = 10 * time.Second

// imageLoadBound bounds the pre-screenshot wait for pending images.
const imageLoadBound = time.Second

// clickSettle is the pause after clicks that trigger partial postbacks.
const clickSettle = 2 * time.Second

// defaultNavTimeout applies when the browser config does not set one.
const defaultNavTimeout = 10 * time.Second

// Screenshot is one named visual capture, base64-encoded PNG.
type Screenshot struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Result is the outward-facing value of one fetch.
type Result struct {
	CGPA             string       `json:"cgpa"`
	SGPA             *float64     `json:"sgpa"`
	StudentName      string       `json:"studentName"`
	Screenshots      []Screenshot `json:"screenshots"`
	ProcessingTimeMs int64        `json:"processingTimeMs"`
	Cached           bool         `json:"cached"`
}

// Coordinator drives the per-request state machine over pooled sessions.
type Coordinator struct {
	pool       *browser.Pool
	loginURL   string
	navTimeout time.Duration
	retry      action.Retry

	// flow is the per-request pipeline, a field so the teardown policy in
	// Fetch can be exercised without a live page.
	flow func(ctx context.Context, session *browser.Session, term portal.Term, reused bool) (*Result, error)
}

// New creates a Coordinator over the given pool.
func New(pool *browser.Pool, portalCfg app.PortalConfig) *Coordinator {
	c := &Coordinator{
		pool:       pool,
		loginURL:   portalCfg.LoginURL,
		navTimeout: defaultNavTimeout,
		retry:      action.DefaultRetry,
	}
	if t := pool.BrowserConfig().NavTimeout; t > 0 {
		c.navTimeout = t
	}
	c.flow = c.run
	return c
}

// Fetch runs one request through the pipeline. Failures come back as *Error;
// any unrecoverable step error destroys the session so it is never reused in
// a corrupt state.
func (c *Coordinator) Fetch(ctx context.Context, rawRoll, rawTerm string) (*Result, error) {
	start := time.Now()

	roll := browser.NormalizeRoll(rawRoll)
	if roll == "" {
		return nil, newError(KindValidation, nil, "roll number required")
	}
	term, err := portal.ParseTerm(rawTerm)
	if err != nil {
		return nil, newError(KindValidation, err, "invalid semester selection")
	}

	session, reused, err := c.pool.Acquire(ctx, roll)
	if err != nil {
		return nil, newError(KindInternal, err, "could not start a browser session")
	}

	// Serialize the whole flow: two requests for one roll must never
	// interleave chromedp actions on the same page.
	session.Lock()
	defer session.Unlock()

	result, err := c.flow(ctx, session, term, reused)
	if err != nil {
		if tearsDownSession(KindOf(err)) {
			slog.WarnContext(ctx, "fetch failed, destroying session",
				"roll", roll, "kind", string(KindOf(err)), "error", err)
			c.pool.Evict(roll)
		} else {
			session.Touch()
		}
		return nil, err
	}

	session.Touch()
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// run executes the navigation/extraction steps for one request. The session
// lock is held throughout.
func (c *Coordinator) run(ctx context.Context, session *browser.Session, term portal.Term, reused bool) (*Result, error) {
	pageCtx := session.Ctx()

	// Best-effort name extraction races the marks navigation; it is
	// read-only and never blocks the primary result.
	var name string
	var nameGroup errgroup.Group

	if session.State() == browser.LoggedOut {
		if err := c.login(ctx, pageCtx, session.Roll()); err != nil {
			return nil, err
		}

		nameGroup.Go(func() error {
			name = extract.StudentName(pageCtx)
			return nil
		})

		if err := c.openMarksPage(ctx, pageCtx); err != nil {
			return nil, err
		}
		session.SetState(browser.OnMarksPage)
	} else {
		slog.DebugContext(ctx, "session already authenticated, skipping login",
			"roll", session.Roll(), "state", session.State().String())
	}

	// Cached fast path: same term already rendered on this page. Numbers are
	// served from the session cache; the screenshot is still captured fresh
	// so the caller never sees stale visual evidence.
	if cached := session.Cached(); reused &&
		session.State() == browser.ResultsRendered && cached != nil && cached.Term == term {
		_ = nameGroup.Wait()
		shot := c.capture(ctx, pageCtx, session.Roll(), term)
		return &Result{
			CGPA:        cached.CGPA,
			SGPA:        cached.SGPA,
			StudentName: cached.StudentName,
			Screenshots: shot,
			Cached:      true,
		}, nil
	}

	// Faithful rendering from here on: the next page is the one that gets
	// screenshotted.
	if ctrl := session.Policy(); ctrl != nil {
		if err := ctrl.Set(pageCtx, policy.Faithful); err != nil {
			return nil, newError(KindInternal, err, "could not adjust resource policy")
		}
	}

	if err := c.selectSemester(ctx, pageCtx, term); err != nil {
		return nil, err
	}

	cgpa, err := extract.CGPA(pageCtx, cgpaWaitTimeout)
	if err != nil {
		return nil, newError(KindExtraction, err, "could not retrieve CGPA")
	}
	if cgpa == "" || cgpa == extract.NotFound {
		return nil, newError(KindExtraction, nil,
			"CGPA not present on results page; the site structure may have changed")
	}
	session.SetState(browser.ResultsRendered)

	sgpa := c.computeSGPA(ctx, pageCtx)

	_ = nameGroup.Wait()
	if name == "" {
		if cached := session.Cached(); cached != nil {
			name = cached.StudentName
		}
	}
	if name == "" {
		name = extract.StudentName(pageCtx)
	}

	shot := c.capture(ctx, pageCtx, session.Roll(), term)

	session.SetCached(&browser.CachedResult{
		CGPA:        cgpa,
		SGPA:        sgpa,
		StudentName: name,
		Term:        term,
	})

	return &Result{
		CGPA:        cgpa,
		SGPA:        sgpa,
		StudentName: name,
		Screenshots: shot,
		Cached:      false,
	}, nil
}

// login walks the portal's entry flow: login page, "Logins" menu, "Student
// Login", credentials (the roll doubles as the password by portal
// convention), submit.
func (c *Coordinator) login(ctx, pageCtx context.Context, roll string) error {
	slog.InfoContext(ctx, "navigating to login page", "url", c.loginURL)
	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(c.loginURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return newError(KindNavigation, err, "could not load the portal login page")
	}

	if err := action.ClickLinkByText(pageCtx, portal.LoginsLinkText, c.retry); err != nil {
		return newError(KindNavigation, err,
			"could not find the Logins button; the site structure may have changed")
	}
	if err := action.Settle(pageCtx, clickSettle); err != nil {
		return newError(KindInternal, err, "interrupted during navigation")
	}

	if err := action.ClickLinkByText(pageCtx, portal.StudentLoginLinkText, c.retry); err != nil {
		return newError(KindNavigation, err, "could not find the Student Login button")
	}
	if err := action.AwaitNavigation(pageCtx, c.navTimeout); err != nil {
		return newError(KindNavigation, err, "login form did not load")
	}

	if err := action.FillField(pageCtx, portal.UserFieldSelector, roll); err != nil {
		return newError(KindAuthentication, err, "could not enter the roll number")
	}
	if err := action.FillField(pageCtx, portal.PwdFieldSelector, roll); err != nil {
		return newError(KindAuthentication, err, "could not enter credentials")
	}
	if err := chromedp.Run(pageCtx, chromedp.Click(portal.LoginButtonSelector, chromedp.ByQuery)); err != nil {
		return newError(KindAuthentication, err, "could not submit the login form")
	}
	if err := action.AwaitNavigation(pageCtx, c.navTimeout); err != nil {
		return newError(KindAuthentication, err, "login did not complete")
	}
	if err := action.Settle(pageCtx, clickSettle); err != nil {
		return newError(KindInternal, err, "interrupted during login")
	}

	slog.InfoContext(ctx, "login submitted", "roll", roll)
	return nil
}

// openMarksPage clicks through to the semester-wise marks listing. Failure to
// find the marks links right after login is read as bad credentials: the
// portal serves the same login page back instead of the student corner.
func (c *Coordinator) openMarksPage(ctx, pageCtx context.Context) error {
	if err := action.ClickLinkByText(pageCtx, portal.MarksLinkText, c.retry); err != nil {
		return newError(KindAuthentication, err,
			"could not open the marks section; check the roll number")
	}
	if err := action.Settle(pageCtx, clickSettle); err != nil {
		return newError(KindInternal, err, "interrupted opening marks section")
	}

	if err := action.ClickLinkByText(pageCtx, portal.SemwiseLinkText, c.retry); err != nil {
		return newError(KindNavigation, err, "could not open the semester-wise marks page")
	}
	if err := action.Settle(pageCtx, clickSettle); err != nil {
		return newError(KindInternal, err, "interrupted opening marks page")
	}

	slog.InfoContext(ctx, "marks page reached")
	return nil
}

// selectSemester verifies the requested term's button exists before clicking
// it, then confirms the portal's banner acknowledges the right term. A
// missing button is the expected "results not published yet" case and leaves
// the session intact.
func (c *Coordinator) selectSemester(ctx, pageCtx context.Context, term portal.Term) error {
	label := term.Label()

	present, err := action.HasSubmitWithValue(pageCtx, label)
	if err != nil {
		return newError(KindNavigation, err, "could not inspect the semester buttons")
	}
	if !present {
		return newError(KindDataUnavailable, nil,
			"results for %s are not available yet", label)
	}

	if err := action.ClickSubmitByValue(pageCtx, label, c.retry); err != nil {
		return newError(KindNavigation, err, "could not select %s", label)
	}
	if err := action.Settle(pageCtx, clickSettle); err != nil {
		return newError(KindInternal, err, "interrupted selecting semester")
	}

	confirmed, err := extract.ConfirmsTerm(pageCtx, label)
	if err != nil {
		return newError(KindNavigation, err, "could not confirm the selected semester")
	}
	if !confirmed {
		return newError(KindNavigation, nil, "unable to load results for %s", label)
	}

	slog.InfoContext(ctx, "semester selected", "term", string(term))
	return nil
}

// computeSGPA derives the semester average from the marks table. Best-effort:
// any failure yields nil rather than blocking the primary result.
func (c *Coordinator) computeSGPA(ctx, pageCtx context.Context) *float64 {
	rows, err := extract.TableCells(pageCtx)
	if err != nil {
		slog.DebugContext(ctx, "marks table extraction failed", "error", err)
		return nil
	}
	records := grades.Parse(rows)
	value, ok := grades.SGPA(records)
	if !ok {
		slog.DebugContext(ctx, "no valid grade rows for SGPA", "rows", len(rows))
		return nil
	}
	slog.InfoContext(ctx, "SGPA computed", "sgpa", value, "subjects", len(records))
	return &value
}

// capture takes a fresh full-page screenshot, waiting briefly for pending
// images first. Capture failures are logged and swallowed; the screenshot is
// evidence, not the deliverable.
func (c *Coordinator) capture(ctx, pageCtx context.Context, roll string, term portal.Term) []Screenshot {
	extract.AwaitImages(pageCtx, imageLoadBound)

	buf, err := extract.Screenshot(pageCtx)
	if err != nil {
		slog.WarnContext(ctx, "screenshot capture failed", "error", err)
		return nil
	}
	return []Screenshot{{
		Name: fmt.Sprintf("%s_%s_cgpa", roll, term),
		Data: base64.StdEncoding.EncodeToString(buf),
	}}
}
