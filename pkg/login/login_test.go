package login

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/auth"
	"igharvest/pkg/config"
	"igharvest/pkg/errors"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/session"
)

// scriptedSurface simulates the site's redirect behavior. outcomes maps
// a username to the URL the site lands on after that user submits the
// form.
type scriptedSurface struct {
	outcomes map[string]string

	// bounceRestore makes home navigations land on the login page, the
	// way the site treats unauthenticated cookies.
	bounceRestore bool

	url        string
	typed      map[string]string
	setCookies [][]session.Cookie
	cleared    int
	submits    int
}

func newScriptedSurface(outcomes map[string]string) *scriptedSurface {
	return &scriptedSurface{
		outcomes: outcomes,
		typed:    map[string]string{},
	}
}

func (s *scriptedSurface) Navigate(_ context.Context, url string) error {
	if s.bounceRestore && url == "https://www.instagram.com/" {
		s.url = "https://www.instagram.com/accounts/login/"
		return nil
	}
	s.url = url
	return nil
}
func (s *scriptedSurface) CurrentURL(context.Context) (string, error) { return s.url, nil }
func (s *scriptedSurface) PageSource(context.Context) (string, error) { return "", nil }
func (s *scriptedSurface) Exists(_ context.Context, sel string) bool {
	// Landmarks exist only once logged in; popups never show.
	return s.url == "https://www.instagram.com/" && strings.Contains(sel, "aria-label='Home'")
}
func (s *scriptedSurface) Texts(context.Context, string) ([]string, error) { return nil, nil }
func (s *scriptedSurface) Attributes(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (s *scriptedSurface) Click(_ context.Context, sel string) error {
	if strings.Contains(sel, "submit") || strings.Contains(sel, "Log in") {
		s.submits++
		user := s.typed["username"]
		if landing, ok := s.outcomes[user]; ok {
			s.url = landing
		} else {
			s.url = "https://www.instagram.com/accounts/login/"
		}
	}
	return nil
}
func (s *scriptedSurface) SendKeys(_ context.Context, sel, text string) error {
	switch {
	case strings.Contains(sel, "username"):
		s.typed["username"] = text
	case strings.Contains(sel, "password"):
		s.typed["password"] = text
	}
	return nil
}
func (s *scriptedSurface) Execute(context.Context, string) error    { return nil }
func (s *scriptedSurface) ScrollToBottom(context.Context) error     { return nil }
func (s *scriptedSurface) PageHeight(context.Context) (int64, error) { return 0, nil }
func (s *scriptedSurface) WaitVisible(context.Context, string, time.Duration) bool { return true }
func (s *scriptedSurface) WaitUntil(ctx context.Context, pred func(context.Context) bool, _ time.Duration) bool {
	return pred(ctx)
}
func (s *scriptedSurface) Cookies(context.Context) ([]session.Cookie, error) {
	return []session.Cookie{{Name: "sessionid", Value: "tok", Domain: ".instagram.com"}}, nil
}
func (s *scriptedSurface) SetCookies(_ context.Context, c []session.Cookie) error {
	s.setCookies = append(s.setCookies, c)
	return nil
}
func (s *scriptedSurface) ClearCookies(context.Context) error {
	s.cleared++
	return nil
}
func (s *scriptedSurface) Close() error { return nil }

func testManager(t *testing.T, creds string) (*Manager, *auth.Rotator) {
	t.Helper()
	parsed, err := auth.ParseCredentials(creds)
	require.NoError(t, err)
	rotator, err := auth.NewRotator(parsed)
	require.NoError(t, err)

	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cfg := config.DefaultConfig().Extraction
	cfg.ElementWait = 10 * time.Millisecond
	cfg.LoginOutcomeWait = 10 * time.Millisecond

	return NewManager(rotator, store, ratelimit.NewIntervalLimiter(0, 0), &cfg), rotator
}

func TestDetectState(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Outcome
	}{
		{"exact home", "https://www.instagram.com/", OutcomeLoggedIn},
		{"login page", "https://www.instagram.com/accounts/login/", OutcomeSoftFail},
		{"checkpoint", "https://www.instagram.com/challenge/?next=x", OutcomeHardFail},
		{"suspended", "https://www.instagram.com/accounts/suspended/", OutcomeHardFail},
		{"two factor", "https://www.instagram.com/accounts/login/two_factor", OutcomeSoftFail},
		{"confirm", "https://www.instagram.com/accounts/confirm/", OutcomeHardFail},
		{"auth platform code entry", "https://www.instagram.com/auth_platform/codeentry/", OutcomeHardFail},
		{"profile page", "https://www.instagram.com/someone/", OutcomeLoggedIn},
		{"off domain", "https://example.com/x", OutcomeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newScriptedSurface(nil)
			surface.url = tt.url
			assert.Equal(t, tt.want, DetectState(context.Background(), surface))
		})
	}
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	mgr, _ := testManager(t, "alice:pw1")
	surface := newScriptedSurface(map[string]string{
		"alice": "https://www.instagram.com/",
	})

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.NoError(t, err)
	assert.Equal(t, "alice", mgr.Identity())

	record, err := mgr.sessions.Load("alice")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "alice", record.Identity)
	assert.NotEmpty(t, record.Cookies)
}

func TestRotatesPastBurnedAccount(t *testing.T) {
	mgr, rotator := testManager(t, "alice:pw1;bob:pw2")
	surface := newScriptedSurface(map[string]string{
		"alice": "https://www.instagram.com/challenge/",
		"bob":   "https://www.instagram.com/",
	})

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.NoError(t, err)
	assert.Equal(t, "bob", mgr.Identity())
	assert.Equal(t, 0, rotator.Remaining())
}

func TestConfirmPageBurnsAccountImmediately(t *testing.T) {
	mgr, _ := testManager(t, "alice:pw1;bob:pw2")
	surface := newScriptedSurface(map[string]string{
		"alice": "https://www.instagram.com/accounts/confirm/",
		"bob":   "https://www.instagram.com/",
	})

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.NoError(t, err)
	assert.Equal(t, "bob", mgr.Identity())
	// One submit per account: a flagged identity is never resubmitted.
	assert.Equal(t, 2, surface.submits)
}

func TestExhaustsAllAccounts(t *testing.T) {
	mgr, rotator := testManager(t, "alice:pw1;bob:pw2")
	surface := newScriptedSurface(map[string]string{
		"alice": "https://www.instagram.com/challenge/",
		"bob":   "https://www.instagram.com/accounts/suspended/",
	})

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeExhausted, errors.TypeOf(err))
	assert.True(t, rotator.Exhausted())
}

func TestSoftFailRetriesAreBounded(t *testing.T) {
	mgr, _ := testManager(t, "alice:badpw")
	// No outcome mapping: every submit lands back on the login page.
	surface := newScriptedSurface(nil)

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeExhausted, errors.TypeOf(err))
}

func TestRestoresSavedSession(t *testing.T) {
	mgr, _ := testManager(t, "alice:pw1")
	require.NoError(t, mgr.sessions.Save(&session.Record{
		Identity: "alice",
		Cookies:  []session.Cookie{{Name: "sessionid", Value: "saved"}},
		SavedAt:  time.Now(),
	}))

	// No form outcomes are scripted, so only session restore can
	// produce a logged-in state.
	surface := newScriptedSurface(nil)
	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.NoError(t, err)
	assert.Equal(t, "alice", mgr.Identity())
	assert.Len(t, surface.setCookies, 1)
	assert.Empty(t, surface.typed)
}

func TestStaleSessionIsCleared(t *testing.T) {
	mgr, _ := testManager(t, "alice:pw1")
	require.NoError(t, mgr.sessions.Save(&session.Record{
		Identity: "alice",
		Cookies:  []session.Cookie{{Name: "sessionid", Value: "stale"}},
		SavedAt:  time.Now(),
	}))

	surface := newScriptedSurface(map[string]string{
		"alice": "https://www.instagram.com/",
	})
	// Injected cookies do not authenticate: home navigation bounces to
	// the login page.
	surface.bounceRestore = true

	err := mgr.EnsureLoggedIn(context.Background(), surface)
	require.NoError(t, err)

	record, err := mgr.sessions.Load("alice")
	require.NoError(t, err)
	require.NotNil(t, record, "fresh login must re-save the session")
	assert.Equal(t, "tok", record.Cookies[0].Value)
	assert.GreaterOrEqual(t, surface.cleared, 1)
}
