// Package retry runs an operation a fixed number of times with a static
// delay between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy is a fixed-count, fixed-delay retry policy.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do calls fn until it succeeds or the policy is exhausted. Failures are
// logged with the attempt number; the last error is returned wrapped with
// label. A cancelled context aborts the wait between attempts.
func Do(ctx context.Context, p Policy, label string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		slog.Warn("attempt failed",
			"target", label,
			"attempt", attempt,
			"of", attempts,
			"error", lastErr,
		)

		if attempt < attempts {
			if err := Sleep(ctx, p.Delay); err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
		}
	}
	return fmt.Errorf("%s: %d attempts failed: %w", label, attempts, lastErr)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
