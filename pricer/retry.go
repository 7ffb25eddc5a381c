package pricer

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
)

// searchFunc runs one search attempt against one source.
type searchFunc func(ctx context.Context) extract.Outcome

// withRetry runs fn up to attempts times with exponential backoff and
// jitter between attempts. A Found outcome returns immediately; anything
// else, including an empty answer, is retried until the attempts run out.
// On exhaustion a failure outcome from any attempt wins over an empty
// answer, so the task records why the source misbehaved.
func withRetry(ctx context.Context, attempts int, baseBackoff time.Duration, logger *slog.Logger, fn searchFunc) extract.Outcome {
	if attempts < 1 {
		attempts = 1
	}

	var last, lastFailure extract.Outcome
	failed := false
	for attempt := 0; attempt < attempts; attempt++ {
		last = fn(ctx)
		if last.Status == extract.Found {
			return last
		}
		if last.Status == extract.Failed || last.Status == extract.TimedOut {
			lastFailure = last
			failed = true
		}

		if ctx.Err() != nil {
			break
		}

		if attempt < attempts-1 {
			wait := baseBackoff * (1 << uint(attempt))
			wait += time.Duration(rand.Int63n(int64(baseBackoff)))
			if logger != nil {
				logger.WarnContext(ctx, "retrying search",
					"attempt", attempt+1,
					"max_attempts", attempts,
					"backoff_ms", wait.Milliseconds(),
					"status", last.Status,
					"error", last.Err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
	}

	if last.Status == extract.NotFound && failed {
		return lastFailure
	}
	return last
}
