package screener

import (
	"context"
	"errors"
	"fmt"
)

type Locator struct {
	Name  string
	XPath string
}

// RunScanLocators are tried in order until one yields a visible element.
var RunScanLocators = []Locator{
	{Name: "button-text", XPath: `//button[contains(text(), 'Run Scan')]`},
	{Name: "input-value", XPath: `//input[@value='Run Scan']`},
	{Name: "primary-button", XPath: `//button[contains(@class, 'btn-primary')]`},
	{Name: "button-descendant-text", XPath: `//button[contains(., 'Run Scan')]`},
}

// FallbackResult describes what the UI fallback managed to do.
type FallbackResult struct {
	// Locator is the name of the strategy that found the control, empty if
	// none did.
	Locator   string
	Activated bool
	Forced    bool
}

// ActivateRunControl finds the first visible "run scan" control and clicks
// it, falling back to a script click when the mouse click fails. Not
// finding a control is not an error.
func ActivateRunControl(ctx context.Context, session Session, locators []Locator) (FallbackResult, error) {
	var el Element
	var found Locator
	for _, loc := range locators {
		candidate, err := session.Locate(ctx, loc.XPath)
		if errors.Is(err, ErrElementNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return FallbackResult{}, ctx.Err()
			}
			continue
		}
		el = candidate
		found = loc
		break
	}
	if el == nil {
		return FallbackResult{}, nil
	}

	result := FallbackResult{Locator: found.Name}

	// scroll failures are tolerated, the forced click does not need the
	// element to be in view
	_ = el.ScrollIntoView(ctx)

	clickErr := el.Click(ctx)
	if clickErr == nil {
		result.Activated = true
		return result, nil
	}
	forceErr := el.ForceClick(ctx)
	if forceErr == nil {
		result.Activated = true
		result.Forced = true
		return result, nil
	}
	return result, fmt.Errorf("activate %s: %w", found.Name, errors.Join(clickErr, forceErr))
}
