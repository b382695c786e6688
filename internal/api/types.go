/*-------------------------------------------------------------------------
 *
 * types.go
 *    Request and response types for CaseTrace API
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/types.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/casetrace/CaseTrace/internal/db"
)

/* Cases */

type CreateCaseRequest struct {
	Title string `json:"title"`
}

type CaseResponse struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	LatestWorkflowID *uuid.UUID `json:"latest_workflow_id,omitempty"`
	CreatedBy        *string    `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ListCasesResponse struct {
	Cases []CaseResponse `json:"cases"`
	Count int            `json:"count"`
}

/* Case files */

type CaseFileResponse struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      uuid.UUID  `json:"case_id"`
	FileName    string     `json:"file_name"`
	MIMEType    string     `json:"mime_type"`
	SizeBytes   int64      `json:"size_bytes"`
	ContentHash string     `json:"content_hash"`
	DuplicateOf *uuid.UUID `json:"duplicate_of,omitempty"`
	UploadedBy  *string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ListCaseFilesResponse struct {
	Files []CaseFileResponse `json:"files"`
	Count int                `json:"count"`
}

/* Workflows */

type StartWorkflowResponse struct {
	JobID  int64     `json:"job_id"`
	CaseID uuid.UUID `json:"case_id"`
	Status string    `json:"status"`
}

type WorkflowResponse struct {
	ID           uuid.UUID  `json:"id"`
	CaseID       uuid.UUID  `json:"case_id"`
	Stage        string     `json:"stage"`
	ErrorKind    *string    `json:"error_kind,omitempty"`
	ErrorSummary *string    `json:"error_summary,omitempty"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type ListWorkflowsResponse struct {
	Workflows []WorkflowResponse `json:"workflows"`
	Count     int                `json:"count"`
}

type CancelWorkflowRequest struct {
	Reason string `json:"reason"`
}

type CancelWorkflowResponse struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Cancelled  bool      `json:"cancelled"`
}

/* Executions */

type ExecutionResponse struct {
	ID                uuid.UUID  `json:"id"`
	WorkflowID        uuid.UUID  `json:"workflow_id"`
	CaseID            uuid.UUID  `json:"case_id"`
	Role              string     `json:"role"`
	ParentExecutionID *uuid.UUID `json:"parent_execution_id,omitempty"`
	Status            string     `json:"status"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	ParsedOutput      db.JSONBMap `json:"parsed_output,omitempty"`
	InputTokens       int        `json:"input_tokens"`
	OutputTokens      int        `json:"output_tokens"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type ListExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	Count      int                 `json:"count"`
}

/* Workflow reports */

type HypothesisResponse struct {
	ID                 uuid.UUID `json:"id"`
	Statement          string    `json:"statement"`
	Confidence         float64   `json:"confidence"`
	SupportingFindings []string  `json:"supporting_findings,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type ContradictionResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	FindingRefs []string  `json:"finding_refs,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type GapResponse struct {
	ID              uuid.UUID `json:"id"`
	Description     string    `json:"description"`
	SuggestedAction *string   `json:"suggested_action,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type WorkflowReportResponse struct {
	WorkflowID     uuid.UUID               `json:"workflow_id"`
	CaseID         uuid.UUID               `json:"case_id"`
	Stage          string                  `json:"stage"`
	Hypotheses     []HypothesisResponse    `json:"hypotheses"`
	Contradictions []ContradictionResponse `json:"contradictions"`
	Gaps           []GapResponse           `json:"gaps"`
	Tasks          []TaskResponse          `json:"tasks"`
	Verdict        *VerdictResponse        `json:"verdict,omitempty"`
}

/* Findings and verdicts */

type FindingResponse struct {
	ID              uuid.UUID   `json:"id"`
	ExecutionID     uuid.UUID   `json:"execution_id"`
	CaseID          uuid.UUID   `json:"case_id"`
	Category        string      `json:"category"`
	Title           string      `json:"title"`
	Narrative       string      `json:"narrative"`
	Confidence      float64     `json:"confidence"`
	Citations       db.CitationList `json:"citations"`
	RelatedEntities []string    `json:"related_entities,omitempty"`
	CitationFlagged bool        `json:"citation_flagged"`
	FlagReason      *string     `json:"flag_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type ListFindingsResponse struct {
	Findings []FindingResponse `json:"findings"`
	Count    int               `json:"count"`
}

type VerdictResponse struct {
	ID         uuid.UUID `json:"id"`
	CaseID     uuid.UUID `json:"case_id"`
	WorkflowID uuid.UUID `json:"workflow_id"`
	Summary    string    `json:"summary"`
	Assessment string    `json:"assessment"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

/* Confirmations */

type ResolveConfirmationRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

type ResolveConfirmationResponse struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Approved bool      `json:"approved"`
}

type ConfirmationResponse struct {
	ID                uuid.UUID `json:"id"`
	CaseID            uuid.UUID `json:"case_id"`
	WorkflowID        uuid.UUID `json:"workflow_id"`
	ActionDescription string    `json:"action_description"`
	CreatedAt         time.Time `json:"created_at"`
}

type PendingConfirmationsResponse struct {
	Confirmations []ConfirmationResponse `json:"confirmations"`
	Count         int                    `json:"count"`
}

/* API keys */

type CreateAPIKeyRequest struct {
	UserID          *string    `json:"user_id,omitempty"`
	RateLimitPerMin int        `json:"rate_limit_per_minute,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type CreateAPIKeyResponse struct {
	Key       string     `json:"key"`
	ID        uuid.UUID  `json:"id"`
	KeyPrefix string     `json:"key_prefix"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type APIKeyResponse struct {
	ID              uuid.UUID  `json:"id"`
	KeyPrefix       string     `json:"key_prefix"`
	UserID          *string    `json:"user_id,omitempty"`
	RateLimitPerMin int        `json:"rate_limit_per_minute"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}
