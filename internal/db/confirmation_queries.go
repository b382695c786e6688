/*-------------------------------------------------------------------------
 *
 * confirmation_queries.go
 *    Confirmation request queries for CaseTrace
 *
 * Resolution uses a status guard so that only the first decision for a
 * request wins. Later decisions see zero rows affected.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/confirmation_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	createConfirmationQuery = `
		INSERT INTO casetrace.confirmation_requests
		(id, case_id, workflow_id, action_description, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING created_at`

	resolveConfirmationQuery = `
		UPDATE casetrace.confirmation_requests
		SET status = $2, reason = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	listPendingConfirmationsQuery = `
		SELECT * FROM casetrace.confirmation_requests
		WHERE case_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`

	rejectPendingByCaseQuery = `
		UPDATE casetrace.confirmation_requests
		SET status = 'rejected', reason = $2, resolved_at = NOW()
		WHERE case_id = $1 AND status = 'pending'`
)

func (q *Queries) CreateConfirmation(ctx context.Context, r *ConfirmationRequest) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Status = ConfirmationPending
	err := q.DB.QueryRowContext(ctx, createConfirmationQuery,
		r.ID, r.CaseID, r.WorkflowID, r.ActionDescription).
		Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create confirmation request: case_id='%s', error=%w",
			r.CaseID.String(), err)
	}
	return nil
}

/* ResolveConfirmation applies a decision. Returns false when the
 * request was already decided or does not exist. */
func (q *Queries) ResolveConfirmation(ctx context.Context, id uuid.UUID, status, reason string) (bool, error) {
	result, err := q.DB.ExecContext(ctx, resolveConfirmationQuery, id, status, reason)
	if err != nil {
		return false, fmt.Errorf("failed to resolve confirmation: request_id='%s', status='%s', error=%w",
			id.String(), status, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read resolve result: request_id='%s', error=%w", id.String(), err)
	}
	return rows > 0, nil
}

func (q *Queries) ListPendingConfirmations(ctx context.Context, caseID uuid.UUID) ([]ConfirmationRequest, error) {
	var rs []ConfirmationRequest
	if err := q.DB.SelectContext(ctx, &rs, listPendingConfirmationsQuery, caseID); err != nil {
		return nil, fmt.Errorf("failed to list pending confirmations: case_id='%s', error=%w",
			caseID.String(), err)
	}
	return rs, nil
}

/* RejectPendingByCase rejects every pending request for a case. Used
 * when a workflow is cancelled or fails terminally. */
func (q *Queries) RejectPendingByCase(ctx context.Context, caseID uuid.UUID, reason string) (int64, error) {
	result, err := q.DB.ExecContext(ctx, rejectPendingByCaseQuery, caseID, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to reject pending confirmations: case_id='%s', error=%w",
			caseID.String(), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reject result: case_id='%s', error=%w", caseID.String(), err)
	}
	return rows, nil
}
