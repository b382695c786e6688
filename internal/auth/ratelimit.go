/*-------------------------------------------------------------------------
 *
 * ratelimit.go
 *    Per-key rate limiting for CaseTrace API
 *
 * Fixed one-minute windows per API key. Counters reset when the window
 * expires; no sliding behavior.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/auth/ratelimit.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"sync"
	"time"

	"github.com/casetrace/CaseTrace/internal/metrics"
)

type RateLimiter struct {
	limits map[string]*rateLimit
	mu     sync.Mutex
}

type rateLimit struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rateLimit),
	}
}

func (r *RateLimiter) CheckLimit(keyID string, limitPerMin int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rl, exists := r.limits[keyID]

	if !exists || now.After(rl.resetTime) {
		r.limits[keyID] = &rateLimit{
			count:     1,
			resetTime: now.Add(1 * time.Minute),
		}
		metrics.RecordRateLimitAllowed(keyID)
		return true
	}

	if rl.count >= limitPerMin {
		metrics.RecordRateLimitRejected(keyID)
		return false
	}

	rl.count++
	metrics.RecordRateLimitAllowed(keyID)
	return true
}
