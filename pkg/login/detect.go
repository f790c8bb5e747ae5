package login

import (
	"context"
	"strings"

	"igharvest/pkg/browser"
)

const homeURL = "https://www.instagram.com/"

// failureMarkers are URL substrings that signal a login that did not
// land. Ordered roughly by how often they appear.
var failureMarkers = []string{
	"login",
	"auth_platform",
	"challenge",
	"checkpoint",
	"suspended",
	"confirm",
	"two_factor",
}

// hardMarkers are the subset of failure markers that condemn the
// account rather than the attempt. Confirmation and auth-platform code
// entry pages flag the account too; resubmitting the same form cannot
// clear them. two_factor stays soft so a stored TOTP secret gets its
// chance.
var hardMarkers = []string{
	"challenge",
	"checkpoint",
	"suspended",
	"confirm",
	"auth_platform",
}

// landmarkSelectors identify logged-in chrome that survives markup
// churn better than any specific element id.
var landmarkSelectors = []string{
	`svg[aria-label='Home']`,
	`a[href='/direct/inbox/']`,
	`a[href*='/accounts/edit']`,
	`svg[aria-label='New post']`,
}

// Outcome classifies what a login attempt produced.
type Outcome int

const (
	// OutcomeUnknown means no decisive signal yet.
	OutcomeUnknown Outcome = iota
	// OutcomeLoggedIn means the session is usable.
	OutcomeLoggedIn
	// OutcomeSoftFail means the attempt failed in a way worth one more try.
	OutcomeSoftFail
	// OutcomeHardFail means the account is burned for this run.
	OutcomeHardFail
)

// DetectState classifies the current page. URL evidence is checked
// before DOM evidence because redirects settle before the chrome
// renders.
func DetectState(ctx context.Context, surface browser.Surface) Outcome {
	url, err := surface.CurrentURL(ctx)
	if err != nil {
		return OutcomeUnknown
	}

	if url == homeURL {
		return OutcomeLoggedIn
	}

	for _, sel := range landmarkSelectors {
		if surface.Exists(ctx, sel) {
			return OutcomeLoggedIn
		}
	}

	if !strings.Contains(url, "instagram.com") {
		return OutcomeUnknown
	}

	for _, marker := range hardMarkers {
		if strings.Contains(url, marker) {
			return OutcomeHardFail
		}
	}
	for _, marker := range failureMarkers {
		if strings.Contains(url, marker) {
			return OutcomeSoftFail
		}
	}

	// On instagram.com with no failure marker and no landmark yet;
	// treat as logged in, the landmark chrome lags the redirect.
	return OutcomeLoggedIn
}
