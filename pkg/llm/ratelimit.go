package llm

import (
	"context"
	"sync"
	"time"
)

const (
	// rateWindow is the sliding admission window.
	rateWindow = 60 * time.Second
	// minRateWait bounds how briefly a blocked caller waits before
	// re-checking the window.
	minRateWait = 50 * time.Millisecond
)

// tokenGrant records one admitted request's declared token cost.
type tokenGrant struct {
	at   time.Time
	cost int
}

// RateLimiter enforces requests-per-minute and tokens-per-minute budgets
// over a sliding 60-second window. A zero budget is unbounded. The limiter
// is shared by every worker of a run; blocked callers wait on a condition
// variable and are woken when the earliest window entry expires.
type RateLimiter struct {
	rpm int
	tpm int

	mu       sync.Mutex
	cond     *sync.Cond
	requests []time.Time
	tokens   []tokenGrant
	tokenSum int

	now func() time.Time
}

// NewRateLimiter creates a limiter with the given budgets. rpm and tpm of 0
// disable the respective budget.
func NewRateLimiter(rpm, tpm int) *RateLimiter {
	l := &RateLimiter{rpm: rpm, tpm: tpm, now: time.Now}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Unbounded reports whether neither budget is set.
func (l *RateLimiter) Unbounded() bool {
	return l.rpm <= 0 && l.tpm <= 0
}

// Acquire blocks until the declared cost fits both budgets, then charges
// the window. It returns the context error when ctx is cancelled while
// waiting.
func (l *RateLimiter) Acquire(ctx context.Context, cost int) error {
	if l.Unbounded() {
		return ctx.Err()
	}

	// Wake waiters on cancellation so they can observe ctx.Err.
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := l.now()
		l.prune(now)
		if l.admits(cost) {
			l.requests = append(l.requests, now)
			l.tokens = append(l.tokens, tokenGrant{at: now, cost: cost})
			l.tokenSum += cost
			return nil
		}

		wait := l.nextExpiry(now)
		if wait < minRateWait {
			wait = minRateWait
		}
		timer := time.AfterFunc(wait, func() {
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		})
		l.cond.Wait()
		timer.Stop()
	}
}

// admits checks both budgets against the current window. Callers hold mu.
func (l *RateLimiter) admits(cost int) bool {
	if l.rpm > 0 && len(l.requests) >= l.rpm {
		return false
	}
	if l.tpm > 0 && l.tokenSum+cost > l.tpm {
		return false
	}
	return true
}

// prune drops window entries older than the sliding window. Callers hold mu.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	l.requests = l.requests[i:]

	j := 0
	for j < len(l.tokens) && !l.tokens[j].at.After(cutoff) {
		l.tokenSum -= l.tokens[j].cost
		j++
	}
	l.tokens = l.tokens[j:]
}

// nextExpiry returns how long until the earliest window entry leaves the
// window. Callers hold mu and guarantee at least one entry exists when a
// budget blocks.
func (l *RateLimiter) nextExpiry(now time.Time) time.Duration {
	var earliest time.Time
	if len(l.requests) > 0 {
		earliest = l.requests[0]
	}
	if len(l.tokens) > 0 && (earliest.IsZero() || l.tokens[0].at.Before(earliest)) {
		earliest = l.tokens[0].at
	}
	if earliest.IsZero() {
		return minRateWait
	}
	return earliest.Add(rateWindow).Sub(now)
}

// windowState reports the current window occupancy, for tests.
func (l *RateLimiter) windowState() (requests, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.requests), l.tokenSum
}
