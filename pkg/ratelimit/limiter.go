package ratelimit

import (
	"sync"
	"time"
)

// Class identifies a gated operation class. Each class has its own
// minimum inter-operation delay and its own last-operation timestamp.
type Class int

const (
	// ClassRequest covers generic page visits and queries.
	ClassRequest Class = iota
	// ClassLogin covers login attempts, which the target throttles much
	// more aggressively than ordinary requests.
	ClassLogin
)

func (c Class) String() string {
	switch c {
	case ClassRequest:
		return "request"
	case ClassLogin:
		return "login"
	default:
		return "unknown"
	}
}

// Limiter defines the time-gating interface.
type Limiter interface {
	// Wait blocks until at least the configured delay has elapsed since
	// the last operation of the class, then stamps the class.
	Wait(class Class)
	// Reset clears all last-operation timestamps.
	Reset()
}

// IntervalLimiter enforces a minimum delay between consecutive
// operations of the same class. Pure time-gating: no queueing, no
// fairness beyond FIFO-of-one, since callers are sequential.
type IntervalLimiter struct {
	delays map[Class]time.Duration
	last   map[Class]time.Time
	mu     sync.Mutex

	// Injected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewIntervalLimiter creates a limiter with the given per-class delays.
// A class with delay 0 never waits.
func NewIntervalLimiter(requestDelay, loginDelay time.Duration) *IntervalLimiter {
	return &IntervalLimiter{
		delays: map[Class]time.Duration{
			ClassRequest: requestDelay,
			ClassLogin:   loginDelay,
		},
		last:  make(map[Class]time.Time),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Wait blocks the calling flow until the class delay has elapsed, then
// records the operation time.
func (l *IntervalLimiter) Wait(class Class) {
	l.mu.Lock()
	delay := l.delays[class]
	last, seen := l.last[class]
	l.mu.Unlock()

	if delay > 0 && seen {
		if remaining := delay - l.now().Sub(last); remaining > 0 {
			l.sleep(remaining)
		}
	}

	l.mu.Lock()
	l.last[class] = l.now()
	l.mu.Unlock()
}

// Reset clears all recorded operation times.
func (l *IntervalLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = make(map[Class]time.Time)
}
