/*-------------------------------------------------------------------------
 *
 * synthesis_queries.go
 *    Finding and synthesis artifact queries for CaseTrace
 *
 * Findings are written by domain agents during ANALYZING. Hypotheses,
 * contradictions, gaps, follow-up tasks and the verdict are written by
 * the synthesis agent during SYNTHESIZING.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/synthesis_queries.go
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
	createFindingQuery = `
		INSERT INTO casetrace.findings
		(id, execution_id, case_id, category, title, narrative, confidence,
		 citations, related_entities, citation_flagged, flag_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	listFindingsByCaseQuery = `
		SELECT * FROM casetrace.findings WHERE case_id = $1 ORDER BY created_at ASC`

	listFindingsByExecutionQuery = `
		SELECT * FROM casetrace.findings WHERE execution_id = $1 ORDER BY created_at ASC`

	createHypothesisQuery = `
		INSERT INTO casetrace.hypotheses
		(id, case_id, workflow_id, statement, confidence, supporting_findings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	createContradictionQuery = `
		INSERT INTO casetrace.contradictions
		(id, case_id, workflow_id, description, finding_refs)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	createGapQuery = `
		INSERT INTO casetrace.gaps
		(id, case_id, workflow_id, description, suggested_action)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	createTaskQuery = `
		INSERT INTO casetrace.investigation_tasks
		(id, case_id, workflow_id, description, priority, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		RETURNING created_at`

	createVerdictQuery = `
		INSERT INTO casetrace.case_verdicts
		(id, case_id, workflow_id, summary, assessment, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	getLatestVerdictQuery = `
		SELECT * FROM casetrace.case_verdicts
		WHERE case_id = $1 ORDER BY created_at DESC LIMIT 1`

	listTasksByCaseQuery = `
		SELECT * FROM casetrace.investigation_tasks
		WHERE case_id = $1 ORDER BY priority ASC, created_at ASC`

	listHypothesesByWorkflowQuery = `
		SELECT * FROM casetrace.hypotheses WHERE workflow_id = $1 ORDER BY confidence DESC`

	listContradictionsByWorkflowQuery = `
		SELECT * FROM casetrace.contradictions WHERE workflow_id = $1 ORDER BY created_at ASC`

	listGapsByWorkflowQuery = `
		SELECT * FROM casetrace.gaps WHERE workflow_id = $1 ORDER BY created_at ASC`
)

func (q *Queries) CreateFinding(ctx context.Context, f *Finding) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createFindingQuery,
		f.ID, f.ExecutionID, f.CaseID, f.Category, f.Title, f.Narrative, f.Confidence,
		f.Citations, f.RelatedEntities, f.CitationFlagged, f.FlagReason).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create finding: case_id='%s', title='%s', error=%w",
			f.CaseID.String(), f.Title, err)
	}
	return nil
}

func (q *Queries) ListFindingsByCase(ctx context.Context, caseID uuid.UUID) ([]Finding, error) {
	var fs []Finding
	if err := q.DB.SelectContext(ctx, &fs, listFindingsByCaseQuery, caseID); err != nil {
		return nil, fmt.Errorf("failed to list findings: case_id='%s', error=%w", caseID.String(), err)
	}
	return fs, nil
}

func (q *Queries) ListFindingsByExecution(ctx context.Context, executionID uuid.UUID) ([]Finding, error) {
	var fs []Finding
	if err := q.DB.SelectContext(ctx, &fs, listFindingsByExecutionQuery, executionID); err != nil {
		return nil, fmt.Errorf("failed to list findings: execution_id='%s', error=%w", executionID.String(), err)
	}
	return fs, nil
}

func (q *Queries) CreateHypothesis(ctx context.Context, h *Hypothesis) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createHypothesisQuery,
		h.ID, h.CaseID, h.WorkflowID, h.Statement, h.Confidence, h.SupportingFindings).
		Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create hypothesis: case_id='%s', error=%w", h.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) CreateContradiction(ctx context.Context, c *Contradiction) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createContradictionQuery,
		c.ID, c.CaseID, c.WorkflowID, c.Description, c.FindingRefs).
		Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contradiction: case_id='%s', error=%w", c.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) CreateGap(ctx context.Context, g *Gap) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createGapQuery,
		g.ID, g.CaseID, g.WorkflowID, g.Description, g.SuggestedAction).
		Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gap: case_id='%s', error=%w", g.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) CreateInvestigationTask(ctx context.Context, t *InvestigationTask) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Status = "open"
	err := q.DB.QueryRowContext(ctx, createTaskQuery,
		t.ID, t.CaseID, t.WorkflowID, t.Description, t.Priority).
		Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investigation task: case_id='%s', error=%w", t.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) CreateVerdict(ctx context.Context, v *CaseVerdict) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createVerdictQuery,
		v.ID, v.CaseID, v.WorkflowID, v.Summary, v.Assessment, v.Confidence).
		Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create verdict: case_id='%s', error=%w", v.CaseID.String(), err)
	}
	return nil
}

func (q *Queries) GetLatestVerdict(ctx context.Context, caseID uuid.UUID) (*CaseVerdict, error) {
	var v CaseVerdict
	err := q.DB.GetContext(ctx, &v, getLatestVerdictQuery, caseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verdict: case_id='%s', error=%w", caseID.String(), err)
	}
	return &v, nil
}

func (q *Queries) ListInvestigationTasks(ctx context.Context, caseID uuid.UUID) ([]InvestigationTask, error) {
	var ts []InvestigationTask
	if err := q.DB.SelectContext(ctx, &ts, listTasksByCaseQuery, caseID); err != nil {
		return nil, fmt.Errorf("failed to list investigation tasks: case_id='%s', error=%w", caseID.String(), err)
	}
	return ts, nil
}

func (q *Queries) ListHypothesesByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]Hypothesis, error) {
	var hs []Hypothesis
	if err := q.DB.SelectContext(ctx, &hs, listHypothesesByWorkflowQuery, workflowID); err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: workflow_id='%s', error=%w", workflowID.String(), err)
	}
	return hs, nil
}

func (q *Queries) ListContradictionsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]Contradiction, error) {
	var cs []Contradiction
	if err := q.DB.SelectContext(ctx, &cs, listContradictionsByWorkflowQuery, workflowID); err != nil {
		return nil, fmt.Errorf("failed to list contradictions: workflow_id='%s', error=%w", workflowID.String(), err)
	}
	return cs, nil
}

func (q *Queries) ListGapsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]Gap, error) {
	var gs []Gap
	if err := q.DB.SelectContext(ctx, &gs, listGapsByWorkflowQuery, workflowID); err != nil {
		return nil, fmt.Errorf("failed to list gaps: workflow_id='%s', error=%w", workflowID.String(), err)
	}
	return gs, nil
}
