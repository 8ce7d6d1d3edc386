// Package extract pulls semantic values out of the rendered portal DOM. The
// portal offers no data API and no stable table schema, so extraction leans
// on tolerant, multi-strategy lookups evaluated in the page itself.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Prem-080/cgpa-fetcher/internal/portal"
)

// NotFound is the sentinel the portal itself renders for a missing CGPA, and
// what CGPA returns when the label element is absent.
const NotFound = "-"

// labelTextJS reads the trimmed inner text of an element by id, or '-' when
// the element is absent.
const labelTextJS = `
(function(id) {
    const el = document.getElementById(id);
    return el ? el.innerText.trim() : '-';
})(%q)
`

// tableCellsJS locates the semester marks table and returns its rows as
// arrays of trimmed cell texts. Lookup tries the known grid id patterns
// first, then any table at all, then falls back to scanning every table for
// grade/credit/subject keywords. Returns null when nothing matches.
const tableCellsJS = `
(function() {
    let table = document.querySelector('table[id*="grdSemwise"]') ||
        document.querySelector('table[id*="GridView"]') ||
        document.querySelector('table[id*="grd"]') ||
        document.querySelector('table');

    if (!table) {
        for (const t of document.querySelectorAll('table')) {
            const text = t.textContent.toLowerCase();
            if (text.includes('grade') || text.includes('credit') || text.includes('subject')) {
                table = t;
                break;
            }
        }
    }
    if (!table) return null;

    return Array.from(table.querySelectorAll('tr')).map(row =>
        Array.from(row.querySelectorAll('th, td')).map(cell => cell.textContent.trim()));
})()
`

// bannerJS reports whether the page body mentions the given text.
const bannerJS = `document.body.innerText.includes(%q)`

// pendingImagesJS reports whether any image on the page is still loading.
const pendingImagesJS = `
Array.from(document.images).some(img => !img.complete)
`

// CGPA waits for the CGPA label and returns its trimmed text. An absent
// element yields the NotFound sentinel, not an error; only a broken page
// context errors out.
func CGPA(ctx context.Context, waitTimeout time.Duration) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible("#"+portal.FinalCGPAID, chromedp.ByQuery))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return NotFound, ctx.Err()
		}
		return NotFound, fmt.Errorf("waiting for CGPA label: %w", err)
	}

	var text string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(labelTextJS, portal.FinalCGPAID), &text)); err != nil {
		return NotFound, fmt.Errorf("reading CGPA label: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// StudentName reads the logged-in student's name. Best-effort: any failure
// yields an empty string, since the name never blocks the primary result.
func StudentName(ctx context.Context) string {
	var name string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(labelTextJS, portal.StudentNameID), &name)); err != nil {
		slog.DebugContext(ctx, "student name extraction failed", "error", err)
		return ""
	}
	name = strings.TrimSpace(name)
	if name == NotFound {
		return ""
	}
	return name
}

// TableCells returns the marks table as a raw cell-text grid, or nil when no
// candidate table exists on the page.
func TableCells(ctx context.Context) ([][]string, error) {
	var rows [][]string
	if err := chromedp.Run(ctx, chromedp.Evaluate(tableCellsJS, &rows)); err != nil {
		return nil, fmt.Errorf("reading marks table: %w", err)
	}
	return rows, nil
}

// ConfirmsTerm reports whether the page shows the "You are Seeing" banner for
// the given term label, confirming the right semester's results are rendered.
func ConfirmsTerm(ctx context.Context, label string) (bool, error) {
	var ok bool
	script := fmt.Sprintf(bannerJS, portal.SeeingBannerPrefix+label)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return false, fmt.Errorf("checking term banner: %w", err)
	}
	return ok, nil
}

// AwaitImages polls until every image on the page has finished loading or the
// bound elapses, whichever comes first. Used right before the screenshot;
// visual completeness is best-effort, never a correctness gate.
func AwaitImages(ctx context.Context, bound time.Duration) {
	deadline := time.Now().Add(bound)
	for time.Now().Before(deadline) {
		var pending bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(pendingImagesJS, &pending)); err != nil || !pending {
			return
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
}

// Screenshot captures the full page as PNG bytes.
func Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}
