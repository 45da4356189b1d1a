package remote

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds the retries of a remote call: at most MaxAttempts tries
// with exponential backoff starting at BaseDelay and capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OnRetry, when set, is called before sleeping after a transient failure.
	OnRetry func(attempt int, err error)
}

func (p Policy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay < base {
		maxDelay = base
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxDelay, b)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Do runs fn until it succeeds, fails with a non-transient error, the
// attempts are exhausted or ctx is done. It returns the number of attempts
// made and the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return err
		}
		if p.OnRetry != nil && attempt < p.MaxAttempts {
			p.OnRetry(attempt, err)
		}
		return retry.RetryableError(err)
	})
	return attempt, err
}
