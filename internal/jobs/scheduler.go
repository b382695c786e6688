/*-------------------------------------------------------------------------
 *
 * scheduler.go
 *    Periodic maintenance for the CaseTrace job queue
 *
 * Sweeps stale running jobs back to pending so a crashed worker's
 * claims are not lost.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/jobs/scheduler.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"
	"time"

	"github.com/casetrace/CaseTrace/internal/metrics"
)

const (
	sweepInterval = 1 * time.Minute

	/* An investigation workflow can legitimately wait on a human
	 * confirmation for up to 30 minutes; the stale cutoff sits above
	 * that. */
	maxJobRuntimeSeconds = 45 * 60
)

type Scheduler struct {
	queue  *Queue
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(queue *Queue) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		queue:  queue,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.queue.ExpireStale(s.ctx, maxJobRuntimeSeconds)
			if err != nil {
				metrics.ErrorWithContext(s.ctx, "Stale job sweep failed", err, nil)
				continue
			}
			if expired > 0 {
				metrics.WarnWithContext(s.ctx, "Re-queued stale jobs", map[string]interface{}{
					"count": expired,
				})
			}
		}
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
}
