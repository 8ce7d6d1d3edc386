package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp"
)

// clickLinkJS finds the first visible anchor whose text contains the target
// substring (case-sensitive, non-empty) and clicks it. Visibility requires a
// laid-out element, not mere DOM presence, since the portal renders some menus
// before they become interactable. Returns "clicked" or "not-found".
const clickLinkJS = `
(function(target) {
    const links = Array.from(document.querySelectorAll('a'));
    for (const link of links) {
        const text = (link.textContent || '').trim();
        if (!text || !text.includes(target)) continue;
        const rect = link.getBoundingClientRect();
        if (link.offsetParent === null || rect.width === 0 || rect.height === 0) continue;
        link.click();
        return 'clicked';
    }
    return 'not-found';
})(%q)
`

// clickSubmitJS clicks the first visible input[type=submit] whose value
// contains the target substring. Returns "clicked" or "not-found".
const clickSubmitJS = `
(function(target) {
    const inputs = Array.from(document.querySelectorAll('input[type="submit"]'));
    for (const input of inputs) {
        if (!input.value || !input.value.includes(target)) continue;
        const rect = input.getBoundingClientRect();
        if (input.offsetParent === null || rect.width === 0 || rect.height === 0) continue;
        input.click();
        return 'clicked';
    }
    return 'not-found';
})(%q)
`

// hasSubmitJS reports whether any submit input's value contains the target
// substring, without clicking it.
const hasSubmitJS = `
(function(target) {
    const inputs = Array.from(document.querySelectorAll('input[type="submit"]'));
    return inputs.some(input => input.value && input.value.includes(target));
})(%q)
`

// clickByJS evaluates a find-and-click script, translating "not-found" into a
// retryable error. The existence check and the click land in the same
// evaluation, so the only race left is between attempts, which the retry
// policy absorbs.
func clickByJS(ctx context.Context, script, target string) error {
	var status string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(script, target), &status)); err != nil {
		return fmt.Errorf("evaluating click for %q: %w", target, err)
	}
	if status != "clicked" {
		return Retryable(fmt.Errorf("no visible element matching %q", target))
	}
	return nil
}

// ClickLinkByText clicks the first visible anchor containing text, retrying
// per the policy while the element is absent or not yet visible.
func ClickLinkByText(ctx context.Context, text string, retry Retry) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty link text")
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return clickByJS(ctx, clickLinkJS, text)
	})
	if err != nil {
		return fmt.Errorf("clicking link %q: %w", text, err)
	}
	slog.DebugContext(ctx, "clicked link", "text", text)
	return nil
}

// ClickSubmitByValue clicks the first visible submit input whose value
// contains text, with the same retry semantics as ClickLinkByText.
func ClickSubmitByValue(ctx context.Context, text string, retry Retry) error {
	err := retry.Do(ctx, func(ctx context.Context) error {
		return clickByJS(ctx, clickSubmitJS, text)
	})
	if err != nil {
		return fmt.Errorf("clicking submit %q: %w", text, err)
	}
	slog.DebugContext(ctx, "clicked submit", "value", text)
	return nil
}

// HasSubmitWithValue reports whether a submit control matching text exists on
// the page, without clicking it. Used to distinguish "results not published"
// from a click failure before committing to a click.
func HasSubmitWithValue(ctx context.Context, text string) (bool, error) {
	var present bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(hasSubmitJS, text), &present)); err != nil {
		return false, fmt.Errorf("probing submit %q: %w", text, err)
	}
	return present, nil
}
