/*-------------------------------------------------------------------------
 *
 * models.go
 *    Database models for CaseTrace
 *
 * Defines data structures for cases, case files, workflows, agent
 * executions, findings, confirmation requests, synthesis outputs,
 * jobs, and API keys.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

/* Workflow stages */
const (
	StageCreated      = "CREATED"
	StageTriaging     = "TRIAGING"
	StageRouted       = "ROUTED"
	StageAnalyzing    = "ANALYZING"
	StageSynthesizing = "SYNTHESIZING"
	StageDone         = "DONE"
	StageFailed       = "FAILED"
)

/* Agent execution statuses */
const (
	ExecutionRunning = "RUNNING"
	ExecutionSuccess = "SUCCESS"
	ExecutionFailed  = "FAILED"
)

/* Confirmation request statuses */
const (
	ConfirmationPending  = "pending"
	ConfirmationApproved = "approved"
	ConfirmationRejected = "rejected"
)

/* Case statuses */
const (
	CaseOpen      = "open"
	CaseAnalyzing = "analyzing"
	CaseError     = "error"
	CaseClosed    = "closed"
)

type Case struct {
	ID               uuid.UUID  `db:"id"`
	Title            string     `db:"title"`
	Status           string     `db:"status"`
	LatestWorkflowID *uuid.UUID `db:"latest_workflow_id"`
	CreatedBy        *string    `db:"created_by"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

type CaseFile struct {
	ID          uuid.UUID  `db:"id"`
	CaseID      uuid.UUID  `db:"case_id"`
	FileName    string     `db:"file_name"`
	MIMEType    string     `db:"mime_type"`
	SizeBytes   int64      `db:"size_bytes"`
	StoragePath string     `db:"storage_path"`
	ContentHash string     `db:"content_hash"`
	DuplicateOf *uuid.UUID `db:"duplicate_of"`
	UploadedBy  *string    `db:"uploaded_by"`
	CreatedAt   time.Time  `db:"created_at"`
}

type Workflow struct {
	ID           uuid.UUID  `db:"id"`
	CaseID       uuid.UUID  `db:"case_id"`
	Stage        string     `db:"stage"`
	ErrorKind    *string    `db:"error_kind"`
	ErrorSummary *string    `db:"error_summary"`
	InputTokens  int        `db:"input_tokens"`
	OutputTokens int        `db:"output_tokens"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

type AgentExecution struct {
	ID                uuid.UUID  `db:"id"`
	CaseID            uuid.UUID  `db:"case_id"`
	WorkflowID        uuid.UUID  `db:"workflow_id"`
	Role              string     `db:"role"`
	ParentExecutionID *uuid.UUID `db:"parent_execution_id"`
	Status            string     `db:"status"`
	RawOutput         string     `db:"raw_output"`
	ParsedOutput      JSONBMap   `db:"parsed_output"`
	InputTokens       int        `db:"input_tokens"`
	OutputTokens      int        `db:"output_tokens"`
	ThinkingTraces    TraceList  `db:"thinking_traces"`
	ErrorMessage      *string    `db:"error_message"`
	StartedAt         time.Time  `db:"started_at"`
	CompletedAt       *time.Time `db:"completed_at"`
}

type Finding struct {
	ID              uuid.UUID      `db:"id"`
	ExecutionID     uuid.UUID      `db:"execution_id"`
	CaseID          uuid.UUID      `db:"case_id"`
	Category        string         `db:"category"`
	Title           string         `db:"title"`
	Narrative       string         `db:"narrative"`
	Confidence      float64        `db:"confidence"`
	Citations       CitationList   `db:"citations"`
	RelatedEntities pq.StringArray `db:"related_entities"`
	CitationFlagged bool           `db:"citation_flagged"`
	FlagReason      *string        `db:"flag_reason"`
	CreatedAt       time.Time      `db:"created_at"`
}

type ConfirmationRequest struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	CaseID            uuid.UUID  `db:"case_id" json:"case_id"`
	WorkflowID        uuid.UUID  `db:"workflow_id" json:"workflow_id"`
	ActionDescription string     `db:"action_description" json:"action_description"`
	Status            string     `db:"status" json:"status"`
	Reason            *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt        *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

type Hypothesis struct {
	ID                 uuid.UUID      `db:"id"`
	CaseID             uuid.UUID      `db:"case_id"`
	WorkflowID         uuid.UUID      `db:"workflow_id"`
	Statement          string         `db:"statement"`
	Confidence         float64        `db:"confidence"`
	SupportingFindings pq.StringArray `db:"supporting_findings"`
	CreatedAt          time.Time      `db:"created_at"`
}

type Contradiction struct {
	ID          uuid.UUID      `db:"id"`
	CaseID      uuid.UUID      `db:"case_id"`
	WorkflowID  uuid.UUID      `db:"workflow_id"`
	Description string         `db:"description"`
	FindingRefs pq.StringArray `db:"finding_refs"`
	CreatedAt   time.Time      `db:"created_at"`
}

type Gap struct {
	ID              uuid.UUID `db:"id"`
	CaseID          uuid.UUID `db:"case_id"`
	WorkflowID      uuid.UUID `db:"workflow_id"`
	Description     string    `db:"description"`
	SuggestedAction *string   `db:"suggested_action"`
	CreatedAt       time.Time `db:"created_at"`
}

type InvestigationTask struct {
	ID          uuid.UUID `db:"id"`
	CaseID      uuid.UUID `db:"case_id"`
	WorkflowID  uuid.UUID `db:"workflow_id"`
	Description string    `db:"description"`
	Priority    int       `db:"priority"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

type CaseVerdict struct {
	ID         uuid.UUID `db:"id"`
	CaseID     uuid.UUID `db:"case_id"`
	WorkflowID uuid.UUID `db:"workflow_id"`
	Summary    string    `db:"summary"`
	Assessment string    `db:"assessment"`
	Confidence float64   `db:"confidence"`
	CreatedAt  time.Time `db:"created_at"`
}

type Job struct {
	ID           int64      `db:"id"`
	CaseID       *uuid.UUID `db:"case_id"`
	WorkflowID   *uuid.UUID `db:"workflow_id"`
	Type         string     `db:"type"`
	Status       string     `db:"status"`
	Priority     int        `db:"priority"`
	Payload      JSONBMap   `db:"payload"`
	Result       JSONBMap   `db:"result"`
	ErrorMessage *string    `db:"error_message"`
	RetryCount   int        `db:"retry_count"`
	MaxRetries   int        `db:"max_retries"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	StartedAt    *time.Time `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

type APIKey struct {
	ID              uuid.UUID  `db:"id"`
	KeyHash         string     `db:"key_hash"`
	KeyPrefix       string     `db:"key_prefix"`
	UserID          *string    `db:"user_id"`
	RateLimitPerMin int        `db:"rate_limit_per_minute"`
	Metadata        JSONBMap   `db:"metadata"`
	CreatedAt       time.Time  `db:"created_at"`
	LastUsedAt      *time.Time `db:"last_used_at"`
	ExpiresAt       *time.Time `db:"expires_at"`
}
