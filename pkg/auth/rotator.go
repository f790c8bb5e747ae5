package auth

import (
	errs "igharvest/pkg/errors"
)

// Rotator owns the ordered credential list plus a cursor. Advancing is
// strictly forward; there is no wraparound. A cursor equal to the list
// length means every identity has been tried and abandoned.
type Rotator struct {
	credentials []Credential
	cursor      int
}

// NewRotator creates a rotation manager over the given identities.
func NewRotator(credentials []Credential) (*Rotator, error) {
	if len(credentials) == 0 {
		return nil, ErrNoCredentials
	}
	return &Rotator{credentials: credentials}, nil
}

// Current returns the active identity, or the exhaustion signal once the
// cursor has passed the end. Exhaustion is terminal, not retryable.
func (r *Rotator) Current() (Credential, error) {
	if r.cursor >= len(r.credentials) {
		return Credential{}, errs.ErrAccountsExhausted
	}
	return r.credentials[r.cursor], nil
}

// Advance moves to the next identity. The second return value is false
// once no identities remain; callers must stop retrying. Repeated calls
// in the exhausted state stay exhausted.
func (r *Rotator) Advance() (Credential, bool) {
	if r.cursor >= len(r.credentials) {
		return Credential{}, false
	}
	r.cursor++
	if r.cursor >= len(r.credentials) {
		return Credential{}, false
	}
	return r.credentials[r.cursor], true
}

// Remaining returns how many untried identities are left after the
// current one.
func (r *Rotator) Remaining() int {
	remaining := len(r.credentials) - r.cursor - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Count returns the total number of configured identities.
func (r *Rotator) Count() int {
	return len(r.credentials)
}

// Exhausted reports whether every identity has been tried.
func (r *Rotator) Exhausted() bool {
	return r.cursor >= len(r.credentials)
}

// Reset rewinds the cursor to the first identity. This is the only way
// the cursor moves backward.
func (r *Rotator) Reset() {
	r.cursor = 0
}
