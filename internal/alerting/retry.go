// internal/alerting/retry.go - Generic retry with exponential backoff
package alerting

import (
    "context"
    "time"
)

// RetryPolicy describes how many times an operation is attempted and how
// the delay between attempts grows.
type RetryPolicy struct {
    MaxAttempts int
    BaseDelay   time.Duration
    Multiplier  float64
    MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the dispatcher defaults: three attempts with
// the delay doubling from two seconds.
func DefaultRetryPolicy() RetryPolicy {
    return RetryPolicy{
        MaxAttempts: 3,
        BaseDelay:   2 * time.Second,
        Multiplier:  2,
        MaxDelay:    30 * time.Second,
    }
}

// Do runs op until it succeeds, attempts are exhausted, or the context is
// cancelled. It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
    attempts := 0
    delay := p.BaseDelay

    var lastErr error
    for attempts < p.MaxAttempts {
        attempts++

        if err := ctx.Err(); err != nil {
            if lastErr != nil {
                return attempts - 1, lastErr
            }
            return attempts - 1, err
        }

        lastErr = op(ctx)
        if lastErr == nil {
            return attempts, nil
        }

        if attempts == p.MaxAttempts {
            break
        }

        if !sleepCtx(ctx, delay) {
            return attempts, lastErr
        }

        delay = time.Duration(float64(delay) * p.Multiplier)
        if p.MaxDelay > 0 && delay > p.MaxDelay {
            delay = p.MaxDelay
        }
    }

    return attempts, lastErr
}

// sleepCtx waits for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
    if d <= 0 {
        return ctx.Err() == nil
    }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
