/*-------------------------------------------------------------------------
 *
 * queue.go
 *    Background job queue for CaseTrace
 *
 * Thin wrapper over the jobs table. Claiming uses FOR UPDATE SKIP
 * LOCKED so concurrent workers never double-claim.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/jobs/queue.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

type Queue struct {
	queries *db.Queries
}

func NewQueue(queries *db.Queries) *Queue {
	return &Queue{queries: queries}
}

/* Enqueue adds a job to the queue */
func (q *Queue) Enqueue(ctx context.Context, jobType string, caseID *uuid.UUID, payload db.JSONBMap) (*db.Job, error) {
	job := &db.Job{
		CaseID:  caseID,
		Type:    jobType,
		Payload: payload,
	}
	if err := q.queries.EnqueueJob(ctx, job); err != nil {
		return nil, err
	}
	metrics.RecordJobQueued()
	return job, nil
}

/* Claim takes the next pending job, or nil when the queue is empty */
func (q *Queue) Claim(ctx context.Context) (*db.Job, error) {
	return q.queries.ClaimJob(ctx)
}

/* Complete marks a job done */
func (q *Queue) Complete(ctx context.Context, id int64, result db.JSONBMap) error {
	return q.queries.CompleteJob(ctx, id, result)
}

/* Fail records a job failure; the job re-queues until retries run out */
func (q *Queue) Fail(ctx context.Context, id int64, errMsg string) error {
	return q.queries.FailJob(ctx, id, errMsg)
}

/* ExpireStale re-queues jobs whose worker died mid-run */
func (q *Queue) ExpireStale(ctx context.Context, maxRuntimeSeconds int) (int64, error) {
	return q.queries.ExpireStaleJobs(ctx, maxRuntimeSeconds)
}
