// Package browser abstracts the rendered browsing surface. Higher layers
// depend only on this capability set, never on a concrete automation
// engine, so extraction logic is testable against fakes.
package browser

import (
	"context"
	"time"

	"igharvest/pkg/session"
)

// Selectors are CSS by default. A selector beginning with "//" is
// treated as an XPath expression, which the markup occasionally forces
// (text-content matching for dialog buttons).

// Surface is the capability set the session and extraction layers drive.
// All operations block until the underlying surface responds; the
// context bounds each one.
type Surface interface {
	// Navigate loads the URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the location after any redirects.
	CurrentURL(ctx context.Context) (string, error)

	// PageSource returns the rendered document markup.
	PageSource(ctx context.Context) (string, error)

	// Exists reports whether at least one node matches right now,
	// without waiting.
	Exists(ctx context.Context, selector string) bool

	// Texts returns the text content of every matching node, in
	// document order.
	Texts(ctx context.Context, selector string) ([]string, error)

	// Attributes returns the named attribute of every matching node
	// that has it, in document order.
	Attributes(ctx context.Context, selector, name string) ([]string, error)

	// Click clicks the first matching node.
	Click(ctx context.Context, selector string) error

	// SendKeys clears the first matching node and types into it.
	SendKeys(ctx context.Context, selector, text string) error

	// Execute runs a script on the page, discarding the result.
	Execute(ctx context.Context, script string) error

	// ScrollToBottom scrolls the window to the bottom of the document.
	ScrollToBottom(ctx context.Context) error

	// PageHeight returns the current document scroll height.
	PageHeight(ctx context.Context) (int64, error)

	// WaitVisible polls until a matching node is visible or the timeout
	// elapses. Returns false on timeout; timeouts here are routine, not
	// errors.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool

	// WaitUntil polls the predicate until it holds or the timeout
	// elapses.
	WaitUntil(ctx context.Context, pred func(context.Context) bool, timeout time.Duration) bool

	// Cookies returns the session token set currently held by the
	// surface.
	Cookies(ctx context.Context) ([]session.Cookie, error)

	// SetCookies injects a previously saved token set.
	SetCookies(ctx context.Context, cookies []session.Cookie) error

	// ClearCookies drops all session tokens.
	ClearCookies(ctx context.Context) error

	// Close releases the surface.
	Close() error
}
