package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned by RestartPolicy.Do once MaxRetries
// consecutive attempts have failed.
var ErrRetriesExhausted = errors.New("recognition retries exhausted")

// RestartPolicy retries a failing recognition operation with exponential
// backoff. It belongs to the source; the session never retries.
type RestartPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Delay returns the wait before the given retry (1-based): Backoff doubled
// per attempt and capped at MaxBackoff.
func (p RestartPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Do runs fn until it succeeds, ctx is done, or MaxRetries retries have
// failed. A negative MaxRetries retries forever.
func (p RestartPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p.MaxRetries >= 0 && attempt >= p.MaxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}

		delay := p.Delay(attempt + 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
