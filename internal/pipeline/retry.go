package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/stephennewman/contextmemo/internal/models"
)

// withRetries runs op up to maxRetries+1 times with linear backoff between
// attempts. Retries are step-local and invisible to the tenant; only the
// final error surfaces.
func withRetries(ctx context.Context, logger arbor.ILogger, tenantID string, step models.TaskType, maxRetries int, backoff time.Duration, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff * time.Duration(attempt)
			logger.Warn().
				Err(lastErr).
				Str("tenant_id", tenantID).
				Str("step", string(step)).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Step failed, retrying")

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("step %s cancelled during backoff: %w", step, ctx.Err())
			}
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("step %s exhausted %d retries: %w", step, maxRetries, lastErr)
}
