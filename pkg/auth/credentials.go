package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Credential is one identity used to authenticate a browsing session.
// Immutable once loaded. TOTPSecret is optional; when present the login
// flow can answer a verification-code step instead of hard-failing.
type Credential struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	TOTPSecret   string    `json:"totp_secret,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Errors
var (
	ErrNoCredentials       = errors.New("no credentials configured")
	ErrInvalidCredential   = errors.New("invalid credential entry")
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// ParseCredentials parses a delimited credentials string into an ordered
// list. Entries are separated by ";" or ","; each entry is
// username:password or username:password:totp_secret.
func ParseCredentials(s string) ([]Credential, error) {
	entries := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})

	var creds []Credential
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: %q (want username:password)", ErrInvalidCredential, maskEntry(entry))
		}

		cred := Credential{
			Username: strings.TrimSpace(parts[0]),
			Password: strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			cred.TOTPSecret = strings.TrimSpace(parts[2])
		}
		if cred.Username == "" || cred.Password == "" {
			return nil, fmt.Errorf("%w: empty username or password", ErrInvalidCredential)
		}

		creds = append(creds, cred)
	}

	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return creds, nil
}

// Sanitize returns a copy of the credential with secrets masked, safe for
// logging.
func (c Credential) Sanitize() Credential {
	return Credential{
		Username:     c.Username,
		Password:     maskString(c.Password),
		TOTPSecret:   maskString(c.TOTPSecret),
		LastModified: c.LastModified,
	}
}

// maskEntry hides everything after the first colon of a raw entry.
func maskEntry(entry string) string {
	if i := strings.Index(entry, ":"); i >= 0 {
		return entry[:i] + ":****"
	}
	return entry
}

// maskString masks all but the first and last character of a secret.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:1] + "****" + s[len(s)-1:]
}
