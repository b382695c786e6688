/*-------------------------------------------------------------------------
 *
 * job_queries.go
 *    Background job queue queries for CaseTrace
 *
 * Jobs are claimed with FOR UPDATE SKIP LOCKED so multiple workers can
 * poll the same table without double-claiming.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/job_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	enqueueJobQuery = `
		INSERT INTO casetrace.jobs (case_id, workflow_id, type, status, priority, payload, max_retries)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING id, created_at, updated_at`

	claimJobQuery = `
		UPDATE casetrace.jobs
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM casetrace.jobs
			WHERE status = 'pending'
			ORDER BY priority ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	completeJobQuery = `
		UPDATE casetrace.jobs
		SET status = 'completed', result = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	failJobQuery = `
		UPDATE casetrace.jobs
		SET status = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'pending' END,
		    retry_count = retry_count + 1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $1`

	expireStaleJobsQuery = `
		UPDATE casetrace.jobs
		SET status = 'failed', error_message = 'job expired: exceeded maximum runtime', updated_at = NOW()
		WHERE status = 'running' AND started_at < NOW() - ($1 * INTERVAL '1 second')`
)

func (q *Queries) EnqueueJob(ctx context.Context, j *Job) error {
	if j.MaxRetries == 0 {
		j.MaxRetries = 3
	}
	j.Status = "pending"
	err := q.DB.QueryRowContext(ctx, enqueueJobQuery,
		j.CaseID, j.WorkflowID, j.Type, j.Priority, j.Payload, j.MaxRetries).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: type='%s', error=%w", j.Type, err)
	}
	return nil
}

/* ClaimJob atomically claims the next pending job. Returns nil when the
 * queue is empty. */
func (q *Queries) ClaimJob(ctx context.Context) (*Job, error) {
	var j Job
	err := q.DB.GetContext(ctx, &j, claimJobQuery)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: error=%w", err)
	}
	return &j, nil
}

func (q *Queries) CompleteJob(ctx context.Context, id int64, result JSONBMap) error {
	if _, err := q.DB.ExecContext(ctx, completeJobQuery, id, result); err != nil {
		return fmt.Errorf("failed to complete job: job_id=%d, error=%w", id, err)
	}
	return nil
}

/* FailJob records a failure, re-queueing the job while retries remain. */
func (q *Queries) FailJob(ctx context.Context, id int64, errMsg string) error {
	if _, err := q.DB.ExecContext(ctx, failJobQuery, id, errMsg); err != nil {
		return fmt.Errorf("failed to fail job: job_id=%d, error=%w", id, err)
	}
	return nil
}

/* ExpireStaleJobs fails running jobs older than maxRuntimeSeconds. */
func (q *Queries) ExpireStaleJobs(ctx context.Context, maxRuntimeSeconds int) (int64, error) {
	result, err := q.DB.ExecContext(ctx, expireStaleJobsQuery, maxRuntimeSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale jobs: error=%w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read expire result: error=%w", err)
	}
	return rows, nil
}
