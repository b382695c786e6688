/*-------------------------------------------------------------------------
 *
 * retry.go
 *    Retry with exponential backoff
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/reliability/retry.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/casetrace/CaseTrace/internal/metrics"
)

/* RetryConfig controls backoff behavior */
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

/* DefaultRetryConfig returns the standard retry policy */
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
	}
}

/* RetryWithBackoff retries fn with exponential backoff. Unrecoverable
 * errors abort immediately. */
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRecoverable(err) {
			return err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * cfg.BaseDelay
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		metrics.InfoWithContext(ctx, "Retrying after error", map[string]interface{}{
			"attempt":     attempt + 1,
			"max_retries": cfg.MaxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err.Error(),
		})
	}

	return fmt.Errorf("max retries exceeded: last_error=%w", lastErr)
}
