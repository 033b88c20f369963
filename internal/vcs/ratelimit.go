// internal/vcs/ratelimit.go
package vcs

import (
	"context"
	"sync"
	"time"
)

// Platform rate limits are scoped per access token, so the tracker keeps one
// bucket per token. One worker burning through its token's budget must not
// delay workers using other tokens.
const defaultBudget = 5000

type tokenState struct {
	remaining int
	reset     time.Time
	lastCall  time.Time
}

// RateTracker tracks per-token rate-limit budgets across all in-flight
// workers. Adapters call Wait before each request and Update with whatever
// the platform reported in its response headers.
type RateTracker struct {
	mu       sync.Mutex
	minDelay time.Duration
	tokens   map[string]*tokenState
}

func NewRateTracker(minDelay time.Duration) *RateTracker {
	return &RateTracker{
		minDelay: minDelay,
		tokens:   make(map[string]*tokenState),
	}
}

func (t *RateTracker) state(token string) *tokenState {
	st, ok := t.tokens[token]
	if !ok {
		st = &tokenState{remaining: defaultBudget}
		t.tokens[token] = st
	}
	return st
}

// Wait blocks until the token may issue another request: it enforces the
// minimum inter-request delay and, when the platform reported an exhausted
// budget, sleeps until the reported reset time.
func (t *RateTracker) Wait(ctx context.Context, token string) error {
	for {
		t.mu.Lock()
		st := t.state(token)
		now := time.Now()

		var wait time.Duration
		if st.remaining <= 0 && now.Before(st.reset) {
			wait = st.reset.Sub(now)
		} else if d := t.minDelay - now.Sub(st.lastCall); d > 0 {
			wait = d
		}

		if wait <= 0 {
			if st.remaining <= 0 {
				// Past the reset point; the platform has refilled.
				st.remaining = defaultBudget
			}
			st.lastCall = now
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Update records the remaining budget and reset time the platform reported
// for this token.
func (t *RateTracker) Update(token string, remaining int, reset time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(token)
	st.remaining = remaining
	st.reset = reset
}
