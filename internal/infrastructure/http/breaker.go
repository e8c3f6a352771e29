package http

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrBreakerOpen is returned without contacting the upstream while the
// breaker is open.
var ErrBreakerOpen = errors.New("upstream circuit breaker is open")

// BreakerState is the position of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Doer sends a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Breaker fails fast after consecutive upstream failures. Transport errors
// and 5xx responses count as failures; after Cooldown one probe request is
// let through and its outcome decides whether the breaker closes again.
type Breaker struct {
	next        Doer
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker wraps next. Non-positive arguments fall back to five failures
// and a 30s cooldown.
func NewBreaker(next Doer, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{next: next, maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// Do implements Doer.
func (b *Breaker) Do(req *http.Request) (*http.Response, error) {
	if !b.allow() {
		return nil, ErrBreakerOpen
	}
	resp, err := b.next.Do(req)
	b.record(err == nil && resp.StatusCode < http.StatusInternalServerError)
	return resp, err
}

// State returns the current position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if ok {
		b.state = BreakerClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}
