package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy is an explicit retry policy wrapping a whole-call invocation.
// There is deliberately no chunk-level resume: a failed call is re-run from
// the top, up to MaxAttempts times.
type Policy struct {
	MaxAttempts int                    // attempts before giving up; <=0 means DefaultMaxAttempts
	Backoff     time.Duration          // delay between attempts; zero retries immediately
	Classify    func(error) ErrorClass // nil treats every error as retryable
}

// DefaultMaxAttempts mirrors the fixed retry count the batch has always used.
const DefaultMaxAttempts = 2

// Do runs fn up to the policy's attempt limit. Fatal errors short-circuit.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		class := ErrorClassRetryable
		if p.Classify != nil {
			class = p.Classify(lastErr)
		}
		slog.Warn("attempt failed",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("class", class.String()),
			slog.Any("err", lastErr))
		if class == ErrorClassFatal {
			return lastErr
		}
		if attempt < attempts && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return fmt.Errorf("%s: max retries reached: %w", op, lastErr)
}
