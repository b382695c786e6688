/*-------------------------------------------------------------------------
 *
 * inspect_handlers.go
 *    Workflow introspection handlers for CaseTrace API
 *
 * Read-only views into a workflow's agent executions and its synthesis
 * artifacts, for operators auditing how a run reached its verdict.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/inspect_handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"net/http"

	"github.com/casetrace/CaseTrace/internal/db"
)

/* ListExecutions returns a workflow's agent executions, oldest first.
 * Parsed output is omitted here, GetExecution carries it. */
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	workflowID, apiErr := parseUUIDVar(r, "id", "execution", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if _, err := h.queries.GetWorkflowByID(r.Context(), workflowID); err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	executions, err := h.queries.ListExecutionsByWorkflow(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list executions", err), requestID))
		return
	}

	resp := ListExecutionsResponse{Executions: make([]ExecutionResponse, len(executions)), Count: len(executions)}
	for i := range executions {
		resp.Executions[i] = toExecutionResponse(&executions[i], false)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	executionID, apiErr := parseUUIDVar(r, "id", "execution", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	e, err := h.queries.GetExecutionByID(r.Context(), executionID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toExecutionResponse(e, true))
}

/* GetWorkflowReport aggregates a workflow's synthesis artifacts into a
 * single view: hypotheses, contradictions, gaps, the case's follow-up
 * tasks, and the verdict when this run produced one. */
func (h *Handlers) GetWorkflowReport(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	workflowID, apiErr := parseUUIDVar(r, "id", "workflow", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	wf, err := h.queries.GetWorkflowByID(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	hypotheses, err := h.queries.ListHypothesesByWorkflow(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load hypotheses", err), requestID))
		return
	}
	contradictions, err := h.queries.ListContradictionsByWorkflow(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load contradictions", err), requestID))
		return
	}
	gaps, err := h.queries.ListGapsByWorkflow(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load gaps", err), requestID))
		return
	}
	tasks, err := h.queries.ListInvestigationTasks(r.Context(), wf.CaseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load investigation tasks", err), requestID))
		return
	}

	resp := WorkflowReportResponse{
		WorkflowID:     wf.ID,
		CaseID:         wf.CaseID,
		Stage:          wf.Stage,
		Hypotheses:     make([]HypothesisResponse, len(hypotheses)),
		Contradictions: make([]ContradictionResponse, len(contradictions)),
		Gaps:           make([]GapResponse, len(gaps)),
		Tasks:          make([]TaskResponse, len(tasks)),
	}
	for i, hyp := range hypotheses {
		resp.Hypotheses[i] = HypothesisResponse{
			ID:                 hyp.ID,
			Statement:          hyp.Statement,
			Confidence:         hyp.Confidence,
			SupportingFindings: hyp.SupportingFindings,
			CreatedAt:          hyp.CreatedAt,
		}
	}
	for i, c := range contradictions {
		resp.Contradictions[i] = ContradictionResponse{
			ID:          c.ID,
			Description: c.Description,
			FindingRefs: c.FindingRefs,
			CreatedAt:   c.CreatedAt,
		}
	}
	for i, g := range gaps {
		resp.Gaps[i] = GapResponse{
			ID:              g.ID,
			Description:     g.Description,
			SuggestedAction: g.SuggestedAction,
			CreatedAt:       g.CreatedAt,
		}
	}
	for i, t := range tasks {
		resp.Tasks[i] = TaskResponse{
			ID:          t.ID,
			Description: t.Description,
			Priority:    t.Priority,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
		}
	}

	/* The latest verdict belongs to this report only when this run
	 * wrote it */
	if v, err := h.queries.GetLatestVerdict(r.Context(), wf.CaseID); err == nil && v != nil && v.WorkflowID == wf.ID {
		vr := toVerdictResponse(v)
		resp.Verdict = &vr
	}

	respondJSON(w, http.StatusOK, resp)
}

func toExecutionResponse(e *db.AgentExecution, includeOutput bool) ExecutionResponse {
	resp := ExecutionResponse{
		ID:                e.ID,
		WorkflowID:        e.WorkflowID,
		CaseID:            e.CaseID,
		Role:              e.Role,
		ParentExecutionID: e.ParentExecutionID,
		Status:            e.Status,
		ErrorMessage:      e.ErrorMessage,
		InputTokens:       e.InputTokens,
		OutputTokens:      e.OutputTokens,
		StartedAt:         e.StartedAt,
		CompletedAt:       e.CompletedAt,
	}
	if includeOutput {
		resp.ParsedOutput = e.ParsedOutput
	}
	return resp
}
