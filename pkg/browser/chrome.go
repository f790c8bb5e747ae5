package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"igharvest/pkg/config"
	"igharvest/pkg/logger"
	"igharvest/pkg/session"
)

// ChromeSurface implements Surface on a headless Chrome driven through
// the DevTools protocol. Exactly one instance drives one browser; it is
// never shared across flows.
type ChromeSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logger.Logger
}

// NewChromeSurface launches a browser configured from cfg.
func NewChromeSurface(parent context.Context, cfg *config.BrowserConfig) (*ChromeSurface, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		ctxCancel()
		allocCancel()
	}

	// Launch the browser eagerly so configuration errors surface here
	// rather than on the first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeSurface{
		ctx:    ctx,
		cancel: cancel,
		log:    logger.GetLogger(),
	}, nil
}

// run executes actions within the surface's browser, bounded by the
// caller's context deadline if one is set.
func (s *ChromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// queryOpt picks the match mode for a selector: XPath when it starts
// with "//", CSS otherwise.
func queryOpt(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

// Navigate loads the URL and waits for the document to be ready.
func (s *ChromeSurface) Navigate(ctx context.Context, url string) error {
	s.log.DebugWithFields("navigating", map[string]interface{}{"url": url})
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the location after any redirects.
func (s *ChromeSurface) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// PageSource returns the rendered document markup.
func (s *ChromeSurface) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture page source: %w", err)
	}
	return html, nil
}

// Exists reports whether at least one node matches right now.
func (s *ChromeSurface) Exists(ctx context.Context, selector string) bool {
	nodes, err := s.nodes(ctx, selector)
	return err == nil && len(nodes) > 0
}

func (s *ChromeSurface) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	shortCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var nodes []*cdp.Node
	err := s.run(shortCtx, chromedp.Nodes(selector, &nodes, queryOpt(selector), chromedp.AtLeast(0)))
	return nodes, err
}

// Texts returns the text content of every matching node.
func (s *ChromeSurface) Texts(ctx context.Context, selector string) ([]string, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(n => n.textContent)`, selector)
	var texts []string
	if err := s.run(ctx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, fmt.Errorf("text query %q failed: %w", selector, err)
	}
	return texts, nil
}

// Attributes returns the named attribute of every matching node that
// has it.
func (s *ChromeSurface) Attributes(ctx context.Context, selector, name string) ([]string, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(n => n.getAttribute(%q)).filter(v => v !== null)`,
		selector, name)
	var values []string
	if err := s.run(ctx, chromedp.Evaluate(script, &values)); err != nil {
		return nil, fmt.Errorf("attribute query %q failed: %w", selector, err)
	}
	return values, nil
}

// Click clicks the first matching node.
func (s *ChromeSurface) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, queryOpt(selector), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// SendKeys clears the first matching node and types into it.
func (s *ChromeSurface) SendKeys(ctx context.Context, selector, text string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, queryOpt(selector)),
		chromedp.Clear(selector, queryOpt(selector)),
		chromedp.SendKeys(selector, text, queryOpt(selector)),
	)
	if err != nil {
		return fmt.Errorf("typing into %q failed: %w", selector, err)
	}
	return nil
}

// Execute runs a script on the page, discarding the result.
func (s *ChromeSurface) Execute(ctx context.Context, script string) error {
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// ScrollToBottom scrolls the window to the bottom of the document.
func (s *ChromeSurface) ScrollToBottom(ctx context.Context) error {
	return s.Execute(ctx, `window.scrollTo(0, document.body.scrollHeight);`)
}

// PageHeight returns the current document scroll height.
func (s *ChromeSurface) PageHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := s.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, fmt.Errorf("failed to read page height: %w", err)
	}
	return height, nil
}

// WaitVisible polls until a matching node is visible or the timeout
// elapses.
func (s *ChromeSurface) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitVisible(selector, queryOpt(selector)))
	return err == nil
}

// WaitUntil polls the predicate until it holds or the timeout elapses.
func (s *ChromeSurface) WaitUntil(ctx context.Context, pred func(context.Context) bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if pred(ctx) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Cookies returns the session token set currently held by the browser.
func (s *ChromeSurface) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var cookies []session.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, session.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return cookies, nil
}

// SetCookies injects a previously saved token set.
func (s *ChromeSurface) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param = param.WithExpires(&expires)
			}
			if err := param.Do(ctx); err != nil {
				s.log.WarnWithFields("failed to set cookie", map[string]interface{}{
					"cookie": c.Name,
					"error":  err.Error(),
				})
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to inject cookies: %w", err)
	}
	return nil
}

// ClearCookies drops all session tokens.
func (s *ChromeSurface) ClearCookies(ctx context.Context) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.ClearBrowserCookies().Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

// Close releases the browser.
func (s *ChromeSurface) Close() error {
	s.cancel()
	return nil
}
