package channels

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds retries of idempotent partner calls. MaxAttempts counts the first call; values below
// 2 mean a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy is three attempts, 200ms doubling up to 5s.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, MinDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}

// NoRetry makes one attempt.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// RetryPolicyFor maps the config's MaxRetries onto a policy: 0 keeps the default, negative disables retries.
func RetryPolicyFor(maxRetries int) RetryPolicy {
	switch {
	case maxRetries < 0:
		return NoRetry
	case maxRetries == 0:
		return DefaultRetryPolicy
	}
	p := DefaultRetryPolicy
	p.MaxAttempts = maxRetries + 1
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts run out, or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil || !IsRetryable(err) || attempt == attempts-1 {
			return err
		}
		t := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}

// delay grows geometrically from MinDelay with ±20% jitter, capped at MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.MinDelay
	if base <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(base)
	for i := 0; i < attempt; i++ {
		d *= mult
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	jitter := rand.Float64()*0.4 - 0.2
	return max(time.Duration(d+d*jitter), base)
}
