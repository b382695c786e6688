/*-------------------------------------------------------------------------
 *
 * execution_queries.go
 *    Agent execution queries for CaseTrace
 *
 * An execution row is created in RUNNING state when an agent is
 * invoked and finalized exactly once to SUCCESS or FAILED.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/execution_queries.go
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
	createExecutionQuery = `
		INSERT INTO casetrace.agent_executions
		(id, workflow_id, case_id, role, parent_execution_id, status)
		VALUES ($1, $2, $3, $4, $5, 'RUNNING')
		RETURNING started_at`

	finalizeExecutionSuccessQuery = `
		UPDATE casetrace.agent_executions
		SET status = 'SUCCESS', raw_output = $2, parsed_output = $3,
		    input_tokens = $4, output_tokens = $5, thinking_traces = $6,
		    completed_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'`

	finalizeExecutionFailureQuery = `
		UPDATE casetrace.agent_executions
		SET status = 'FAILED', raw_output = $2, error_message = $3,
		    input_tokens = $4, output_tokens = $5, thinking_traces = $6,
		    completed_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'`

	getExecutionByIDQuery = `SELECT * FROM casetrace.agent_executions WHERE id = $1`

	listExecutionsByWorkflowQuery = `
		SELECT * FROM casetrace.agent_executions
		WHERE workflow_id = $1 ORDER BY started_at ASC`
)

func (q *Queries) CreateExecution(ctx context.Context, e *AgentExecution) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = ExecutionRunning
	err := q.DB.QueryRowContext(ctx, createExecutionQuery,
		e.ID, e.WorkflowID, e.CaseID, e.Role, e.ParentExecutionID).
		Scan(&e.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create execution: workflow_id='%s', role='%s', error=%w",
			e.WorkflowID.String(), e.Role, err)
	}
	return nil
}

/* FinalizeExecutionSuccess records the parsed output and usage. The
 * status guard makes finalization idempotent: a second finalize is a
 * no-op and returns false. */
func (q *Queries) FinalizeExecutionSuccess(ctx context.Context, id uuid.UUID,
	rawOutput string, parsed JSONBMap, inputTokens, outputTokens int, traces TraceList) (bool, error) {

	result, err := q.DB.ExecContext(ctx, finalizeExecutionSuccessQuery,
		id, rawOutput, parsed, inputTokens, outputTokens, traces)
	if err != nil {
		return false, fmt.Errorf("failed to finalize execution: execution_id='%s', error=%w", id.String(), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read finalize result: execution_id='%s', error=%w", id.String(), err)
	}
	return rows > 0, nil
}

func (q *Queries) FinalizeExecutionFailure(ctx context.Context, id uuid.UUID,
	rawOutput, errorMessage string, inputTokens, outputTokens int, traces TraceList) (bool, error) {

	result, err := q.DB.ExecContext(ctx, finalizeExecutionFailureQuery,
		id, rawOutput, errorMessage, inputTokens, outputTokens, traces)
	if err != nil {
		return false, fmt.Errorf("failed to finalize failed execution: execution_id='%s', error=%w", id.String(), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read finalize result: execution_id='%s', error=%w", id.String(), err)
	}
	return rows > 0, nil
}

func (q *Queries) GetExecutionByID(ctx context.Context, id uuid.UUID) (*AgentExecution, error) {
	var e AgentExecution
	err := q.DB.GetContext(ctx, &e, getExecutionByIDQuery, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution not found: execution_id='%s'", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: execution_id='%s', error=%w", id.String(), err)
	}
	return &e, nil
}

func (q *Queries) ListExecutionsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]AgentExecution, error) {
	var es []AgentExecution
	if err := q.DB.SelectContext(ctx, &es, listExecutionsByWorkflowQuery, workflowID); err != nil {
		return nil, fmt.Errorf("failed to list executions: workflow_id='%s', error=%w", workflowID.String(), err)
	}
	return es, nil
}
