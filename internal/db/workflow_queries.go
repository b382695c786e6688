/*-------------------------------------------------------------------------
 *
 * workflow_queries.go
 *    Workflow queries for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/workflow_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const (
	createWorkflowQuery = `
		INSERT INTO casetrace.workflows (id, case_id, stage)
		VALUES ($1, $2, $3)
		RETURNING started_at`

	getWorkflowByIDQuery = `SELECT * FROM casetrace.workflows WHERE id = $1`

	listWorkflowsByCaseQuery = `
		SELECT * FROM casetrace.workflows WHERE case_id = $1 ORDER BY started_at DESC`

	updateWorkflowStageQuery = `
		UPDATE casetrace.workflows SET stage = $2 WHERE id = $1`

	completeWorkflowQuery = `
		UPDATE casetrace.workflows SET stage = 'DONE', completed_at = NOW() WHERE id = $1`

	failWorkflowQuery = `
		UPDATE casetrace.workflows
		SET stage = 'FAILED', error_kind = $2, error_summary = $3, completed_at = NOW()
		WHERE id = $1`

	addWorkflowUsageQuery = `
		UPDATE casetrace.workflows
		SET input_tokens = input_tokens + $2,
		    output_tokens = output_tokens + $3
		WHERE id = $1`
)

func (q *Queries) CreateWorkflow(ctx context.Context, w *Workflow) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Stage == "" {
		w.Stage = StageCreated
	}
	err := q.DB.QueryRowContext(ctx, createWorkflowQuery, w.ID, w.CaseID, w.Stage).
		Scan(&w.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create workflow: case_id='%s', error=%w", w.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	var w Workflow
	err := q.DB.GetContext(ctx, &w, getWorkflowByIDQuery, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow not found: workflow_id='%s'", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: workflow_id='%s', error=%w", id.String(), err)
	}
	return &w, nil
}

func (q *Queries) ListWorkflowsByCase(ctx context.Context, caseID uuid.UUID) ([]Workflow, error) {
	var ws []Workflow
	if err := q.DB.SelectContext(ctx, &ws, listWorkflowsByCaseQuery, caseID); err != nil {
		return nil, fmt.Errorf("failed to list workflows: case_id='%s', error=%w", caseID.String(), err)
	}
	return ws, nil
}

func (q *Queries) UpdateWorkflowStage(ctx context.Context, id uuid.UUID, stage string) error {
	if _, err := q.DB.ExecContext(ctx, updateWorkflowStageQuery, id, stage); err != nil {
		return fmt.Errorf("failed to update workflow stage: workflow_id='%s', stage='%s', error=%w",
			id.String(), stage, err)
	}
	return nil
}

func (q *Queries) CompleteWorkflow(ctx context.Context, id uuid.UUID) error {
	if _, err := q.DB.ExecContext(ctx, completeWorkflowQuery, id); err != nil {
		return fmt.Errorf("failed to complete workflow: workflow_id='%s', error=%w", id.String(), err)
	}
	return nil
}

/* FailWorkflow moves a workflow to FAILED with the error taxonomy kind
 * and a human-readable summary. Legal from any stage. */
func (q *Queries) FailWorkflow(ctx context.Context, id uuid.UUID, kind, summary string) error {
	if _, err := q.DB.ExecContext(ctx, failWorkflowQuery, id, kind, summary); err != nil {
		return fmt.Errorf("failed to fail workflow: workflow_id='%s', kind='%s', error=%w",
			id.String(), kind, err)
	}
	return nil
}

/* AddWorkflowUsage accumulates token usage reported by agent executions.
 * Counts are summed verbatim, no normalization. */
func (q *Queries) AddWorkflowUsage(ctx context.Context, id uuid.UUID, inputTokens, outputTokens int) error {
	if inputTokens == 0 && outputTokens == 0 {
		return nil
	}
	if _, err := q.DB.ExecContext(ctx, addWorkflowUsageQuery, id, inputTokens, outputTokens); err != nil {
		return fmt.Errorf("failed to add workflow usage: workflow_id='%s', error=%w", id.String(), err)
	}
	return nil
}
