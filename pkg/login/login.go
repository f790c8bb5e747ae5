// Package login drives the credential flow: session restore, form
// submission, outcome classification, and rotation to the next
// identity when an account is burned.
package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"igharvest/pkg/auth"
	"igharvest/pkg/browser"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/logger"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/session"
)

const loginURL = "https://www.instagram.com/accounts/login/"

// Form selectors, most specific first. The trailing XPath entries catch
// localized markup where attribute hooks are missing.
var (
	usernameSelectors = []string{
		`input[name='username']`,
		`input[aria-label='Phone number, username, or email']`,
		`//input[@autocomplete='username']`,
	}
	passwordSelectors = []string{
		`input[name='password']`,
		`input[type='password']`,
		`//input[@autocomplete='current-password']`,
	}
	submitSelectors = []string{
		`button[type='submit']`,
		`//button[.//div[text()='Log in']]`,
		`//div[@role='button' and text()='Log in']`,
	}
	otpSelectors = []string{
		`input[name='verificationCode']`,
		`input[aria-label='Security code']`,
	}
	dismissSelectors = []string{
		`//button[text()='Not Now']`,
		`//button[text()='Not now']`,
		`//div[@role='button' and text()='Not now']`,
	}
)

// Manager owns the authenticated state of one browsing surface.
type Manager struct {
	rotator  *auth.Rotator
	sessions session.Store
	limiter  ratelimit.Limiter
	cfg      *config.ExtractionConfig
	log      logger.Logger

	identity string
}

// NewManager wires a login manager over the given collaborators.
func NewManager(rotator *auth.Rotator, sessions session.Store, limiter ratelimit.Limiter, cfg *config.ExtractionConfig) *Manager {
	return &Manager{
		rotator:  rotator,
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
		log:      logger.GetLogger(),
	}
}

// Identity returns the username currently authenticated, empty before
// the first successful login.
func (m *Manager) Identity() string { return m.identity }

// EnsureLoggedIn makes the surface authenticated, rotating through
// identities until one works. Returns ErrAccountsExhausted once every
// identity has been burned.
func (m *Manager) EnsureLoggedIn(ctx context.Context, surface browser.Surface) error {
	for {
		cred, err := m.rotator.Current()
		if err != nil {
			return err
		}

		ok, err := m.attemptIdentity(ctx, surface, cred)
		if err != nil {
			return err
		}
		if ok {
			m.identity = cred.Username
			return nil
		}

		m.log.WarnWithFields("identity burned, rotating", map[string]interface{}{
			"username":  cred.Sanitize().Username,
			"remaining": m.rotator.Remaining(),
		})
		if _, more := m.rotator.Advance(); !more {
			return errors.ErrAccountsExhausted
		}
	}
}

// attemptIdentity tries one identity: saved session first, then up to
// MaxLoginRetries+1 fresh logins. Returns (false, nil) when the
// identity is burned and rotation should continue.
func (m *Manager) attemptIdentity(ctx context.Context, surface browser.Surface, cred auth.Credential) (bool, error) {
	if m.restoreSession(ctx, surface, cred.Username) {
		return true, nil
	}

	for attempt := 0; attempt <= m.cfg.MaxLoginRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		m.limiter.Wait(ratelimit.ClassLogin)

		outcome, err := m.submit(ctx, surface, cred)
		if err != nil {
			return false, err
		}

		switch outcome {
		case OutcomeLoggedIn:
			m.dismissPopups(ctx, surface)
			m.persistSession(ctx, surface, cred.Username)
			m.log.InfoWithFields("login succeeded", map[string]interface{}{
				"username": cred.Sanitize().Username,
				"attempt":  attempt + 1,
			})
			return true, nil
		case OutcomeHardFail:
			return false, nil
		default:
			m.log.WarnWithFields("login attempt failed", map[string]interface{}{
				"username": cred.Sanitize().Username,
				"attempt":  attempt + 1,
			})
		}
	}
	return false, nil
}

// restoreSession injects saved cookies and validates them against the
// live site. A stale session is cleared so the next run skips it.
func (m *Manager) restoreSession(ctx context.Context, surface browser.Surface, username string) bool {
	record, err := m.sessions.Load(username)
	if err != nil {
		m.log.WithError(err).Warn("failed to load saved session")
		return false
	}
	if record == nil {
		return false
	}

	if err := surface.SetCookies(ctx, record.Cookies); err != nil {
		m.log.WithError(err).Warn("failed to inject saved session")
		return false
	}
	if err := surface.Navigate(ctx, homeURL); err != nil {
		return false
	}

	valid := surface.WaitUntil(ctx, func(ctx context.Context) bool {
		return DetectState(ctx, surface) == OutcomeLoggedIn
	}, m.cfg.LoginOutcomeWait)
	if !valid {
		m.log.InfoWithFields("saved session stale, clearing", map[string]interface{}{
			"username": username,
		})
		_ = m.sessions.Clear(username)
		_ = surface.ClearCookies(ctx)
		return false
	}

	m.log.InfoWithFields("session restored", map[string]interface{}{
		"username": username,
	})
	return true
}

// submit performs one full form submission and classifies the outcome.
func (m *Manager) submit(ctx context.Context, surface browser.Surface, cred auth.Credential) (Outcome, error) {
	if err := surface.Navigate(ctx, loginURL); err != nil {
		return OutcomeUnknown, errors.Wrap(errors.ErrorTypeNavigation, "failed to open login page", err)
	}

	// Already authenticated? The login URL redirects home.
	if DetectState(ctx, surface) == OutcomeLoggedIn {
		return OutcomeLoggedIn, nil
	}

	if err := m.fill(ctx, surface, usernameSelectors, cred.Username); err != nil {
		return OutcomeSoftFail, nil
	}
	if err := m.fill(ctx, surface, passwordSelectors, cred.Password); err != nil {
		return OutcomeSoftFail, nil
	}
	if err := m.click(ctx, surface, submitSelectors); err != nil {
		return OutcomeSoftFail, nil
	}

	outcome := m.awaitOutcome(ctx, surface)

	if outcome != OutcomeLoggedIn && cred.TOTPSecret != "" && m.otpPrompted(ctx, surface) {
		var err error
		outcome, err = m.submitOTP(ctx, surface, cred)
		if err != nil {
			return OutcomeUnknown, err
		}
	}
	return outcome, nil
}

// awaitOutcome polls the page until classification settles or the
// outcome window closes. An unresolved window counts as a soft fail.
func (m *Manager) awaitOutcome(ctx context.Context, surface browser.Surface) Outcome {
	var outcome Outcome
	decided := surface.WaitUntil(ctx, func(ctx context.Context) bool {
		outcome = DetectState(ctx, surface)
		return outcome == OutcomeLoggedIn || outcome == OutcomeHardFail
	}, m.cfg.LoginOutcomeWait)
	if !decided {
		return OutcomeSoftFail
	}
	return outcome
}

// otpPrompted reports whether the page is asking for a one-time code.
func (m *Manager) otpPrompted(ctx context.Context, surface browser.Surface) bool {
	url, err := surface.CurrentURL(ctx)
	if err == nil && strings.Contains(url, "two_factor") {
		return true
	}
	for _, sel := range otpSelectors {
		if surface.Exists(ctx, sel) {
			return true
		}
	}
	return false
}

// submitOTP generates the current TOTP code and submits it.
func (m *Manager) submitOTP(ctx context.Context, surface browser.Surface, cred auth.Credential) (Outcome, error) {
	code, err := totp.GenerateCode(cred.TOTPSecret, time.Now())
	if err != nil {
		return OutcomeUnknown, errors.Wrap(errors.ErrorTypeConfig,
			fmt.Sprintf("bad totp secret for %s", cred.Sanitize().Username), err)
	}

	if err := m.fill(ctx, surface, otpSelectors, code); err != nil {
		return OutcomeSoftFail, nil
	}
	if err := m.click(ctx, surface, submitSelectors); err != nil {
		return OutcomeSoftFail, nil
	}
	return m.awaitOutcome(ctx, surface), nil
}

// dismissPopups closes the save-login and notification prompts shown
// after a fresh login. Best effort; absence is the common case.
func (m *Manager) dismissPopups(ctx context.Context, surface browser.Surface) {
	for i := 0; i < 2; i++ {
		clicked := false
		for _, sel := range dismissSelectors {
			if !surface.Exists(ctx, sel) {
				continue
			}
			if err := surface.Click(ctx, sel); err == nil {
				clicked = true
				break
			}
		}
		if !clicked {
			return
		}
	}
}

// persistSession snapshots the surface cookies for the identity.
// Persistence failures are logged, never fatal; the login itself
// succeeded.
func (m *Manager) persistSession(ctx context.Context, surface browser.Surface, username string) {
	cookies, err := surface.Cookies(ctx)
	if err != nil {
		m.log.WithError(err).Warn("failed to read cookies for session save")
		return
	}
	err = m.sessions.Save(&session.Record{
		Identity: username,
		Cookies:  cookies,
		SavedAt:  time.Now().UTC(),
	})
	if err != nil {
		m.log.WithError(err).Warn("failed to persist session")
	}
}

// fill types text into the first selector that becomes visible.
func (m *Manager) fill(ctx context.Context, surface browser.Surface, selectors []string, text string) error {
	for _, sel := range selectors {
		if !surface.WaitVisible(ctx, sel, m.cfg.ElementWait) {
			continue
		}
		if err := surface.SendKeys(ctx, sel, text); err == nil {
			return nil
		}
	}
	return errors.New(errors.ErrorTypeTransientUI, "no form field matched")
}

// click clicks the first selector that becomes visible.
func (m *Manager) click(ctx context.Context, surface browser.Surface, selectors []string) error {
	for _, sel := range selectors {
		if !surface.WaitVisible(ctx, sel, m.cfg.ElementWait) {
			continue
		}
		if err := surface.Click(ctx, sel); err == nil {
			return nil
		}
	}
	return errors.New(errors.ErrorTypeTransientUI, "no clickable control matched")
}

