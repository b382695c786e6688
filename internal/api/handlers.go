/*-------------------------------------------------------------------------
 *
 * handlers.go
 *    API handlers for CaseTrace
 *
 * Provides HTTP handlers for cases, evidence files, workflows,
 * findings, verdicts, and API keys.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/casetrace/CaseTrace/internal/auth"
	"github.com/casetrace/CaseTrace/internal/confirm"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/events"
	"github.com/casetrace/CaseTrace/internal/pipeline"
	"github.com/casetrace/CaseTrace/internal/storage"
	"github.com/casetrace/CaseTrace/internal/validation"
)

/* Largest accepted evidence upload */
const maxUploadSize = 32 << 20

type Handlers struct {
	queries      *db.Queries
	orchestrator *pipeline.Orchestrator
	broker       *confirm.Broker
	publisher    *events.Publisher
	backend      storage.Backend
	keyManager   *auth.APIKeyManager
}

func NewHandlers(queries *db.Queries, orchestrator *pipeline.Orchestrator, broker *confirm.Broker, publisher *events.Publisher, backend storage.Backend, keyManager *auth.APIKeyManager) *Handlers {
	return &Handlers{
		queries:      queries,
		orchestrator: orchestrator,
		broker:       broker,
		publisher:    publisher,
		backend:      backend,
		keyManager:   keyManager,
	}
}

/* Cases */

func (h *Handlers) CreateCase(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	endpoint := r.URL.Path
	method := r.Method

	const maxBodySize = 1024 * 1024
	bodyBytes, err := validation.ReadAndValidateBody(r, maxBodySize)
	if err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "request body validation failed", err, requestID, endpoint, method, "case", "", nil))
		return
	}

	var req CreateCaseRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "request body parsing error", err, requestID, endpoint, method, "case", "", nil))
		return
	}

	if err := ValidateCreateCaseRequest(&req); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "case validation failed", err, requestID, endpoint, method, "case", "", nil))
		return
	}

	c := &db.Case{Title: validation.SanitizeString(req.Title)}
	if caller := GetCallerFromContext(r.Context()); caller != "" {
		c.CreatedBy = &caller
	}

	if err := h.queries.CreateCase(r.Context(), c); err != nil {
		respondError(w, NewErrorWithContext(http.StatusInternalServerError, "case creation failed", err, requestID, endpoint, method, "case", "", map[string]interface{}{
			"title": req.Title,
		}))
		return
	}

	respondJSON(w, http.StatusCreated, toCaseResponse(c))
}

func (h *Handlers) GetCase(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "case", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	c, err := h.queries.GetCaseByID(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handlers) ListCases(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	limit, offset, err := parsePagination(r)
	if err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "invalid pagination parameters", err, requestID, r.URL.Path, r.Method, "case", "", nil))
		return
	}

	cases, err := h.queries.ListCases(r.Context(), limit, offset)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list cases", err), requestID))
		return
	}

	resp := ListCasesResponse{Cases: make([]CaseResponse, len(cases)), Count: len(cases)}
	for i := range cases {
		resp.Cases[i] = toCaseResponse(&cases[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DeleteCase(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "case", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	deleted, err := h.queries.DeleteCase(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to delete case", err), requestID))
		return
	}
	if !deleted {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	h.publisher.DropCase(caseID)
	w.WriteHeader(http.StatusNoContent)
}

/* Evidence files */

func (h *Handlers) UploadCaseFile(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	endpoint := r.URL.Path
	method := r.Method

	caseID, apiErr := parseUUIDVar(r, "id", "file", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	/* The case must exist before evidence attaches to it */
	if _, err := h.queries.GetCaseByID(r.Context(), caseID); err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "multipart form parsing failed", err, requestID, endpoint, method, "file", "", nil))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "file field is required", err, requestID, endpoint, method, "file", "", nil))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "failed to read uploaded file", err, requestID, endpoint, method, "file", "", nil))
		return
	}

	fileName := validation.SanitizeFilename(header.Filename)
	if fileName == "" {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "file name is empty after sanitization", nil, requestID, endpoint, method, "file", "", map[string]interface{}{
			"original_name": header.Filename,
		}))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])
	storagePath := fmt.Sprintf("cases/%s/%s", caseID, contentHash)

	if err := h.backend.Store(r.Context(), storagePath, content); err != nil {
		respondError(w, NewErrorWithContext(http.StatusInternalServerError, "failed to store evidence content", err, requestID, endpoint, method, "file", "", map[string]interface{}{
			"file_name": fileName,
			"size":      len(content),
		}))
		return
	}

	f := &db.CaseFile{
		CaseID:      caseID,
		FileName:    fileName,
		MIMEType:    mimeType,
		SizeBytes:   int64(len(content)),
		StoragePath: storagePath,
		ContentHash: contentHash,
	}
	if caller := GetCallerFromContext(r.Context()); caller != "" {
		f.UploadedBy = &caller
	}

	if err := h.queries.CreateCaseFile(r.Context(), f); err != nil {
		respondError(w, NewErrorWithContext(http.StatusInternalServerError, "failed to record evidence file", err, requestID, endpoint, method, "file", "", map[string]interface{}{
			"file_name": fileName,
		}))
		return
	}

	h.publisher.Publish(caseID, "file_uploaded", map[string]interface{}{
		"file_id":      f.ID.String(),
		"file_name":    f.FileName,
		"duplicate_of": f.DuplicateOf,
	})

	respondJSON(w, http.StatusCreated, toCaseFileResponse(f))
}

func (h *Handlers) ListCaseFiles(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "file", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	files, err := h.queries.ListCaseFiles(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list case files", err), requestID))
		return
	}

	resp := ListCaseFilesResponse{Files: make([]CaseFileResponse, len(files)), Count: len(files)}
	for i := range files {
		resp.Files[i] = toCaseFileResponse(&files[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DownloadCaseFile(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	fileID, apiErr := parseUUIDVar(r, "file_id", "file", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	f, err := h.queries.GetCaseFileByID(r.Context(), fileID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	content, err := h.backend.Retrieve(r.Context(), f.StoragePath)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load evidence content", err), requestID))
		return
	}

	w.Header().Set("Content-Type", f.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

/* Workflows */

func (h *Handlers) StartWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "workflow", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if _, err := h.queries.GetCaseByID(r.Context(), caseID); err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	job := &db.Job{
		CaseID:  &caseID,
		Type:    "workflow_run",
		Payload: db.JSONBMap{"user": GetCallerFromContext(r.Context())},
	}
	if err := h.queries.EnqueueJob(r.Context(), job); err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to queue workflow", err), requestID))
		return
	}

	respondJSON(w, http.StatusAccepted, StartWorkflowResponse{
		JobID:  job.ID,
		CaseID: caseID,
		Status: "queued",
	})
}

func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
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

	respondJSON(w, http.StatusOK, toWorkflowResponse(wf))
}

func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "workflow", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	workflows, err := h.queries.ListWorkflowsByCase(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list workflows", err), requestID))
		return
	}

	resp := ListWorkflowsResponse{Workflows: make([]WorkflowResponse, len(workflows)), Count: len(workflows)}
	for i := range workflows {
		resp.Workflows[i] = toWorkflowResponse(&workflows[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	endpoint := r.URL.Path
	method := r.Method

	workflowID, apiErr := parseUUIDVar(r, "id", "workflow", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	var req CancelWorkflowRequest
	if r.Body != nil {
		/* Reason is optional; an empty body cancels with none */
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "cancelled by operator"
	}

	wf, err := h.queries.GetWorkflowByID(r.Context(), workflowID)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	cancelled := h.orchestrator.Cancel(r.Context(), wf.CaseID, wf.ID, req.Reason)
	if !cancelled {
		respondError(w, NewErrorWithContext(http.StatusConflict, "workflow is not running", nil, requestID, endpoint, method, "workflow", workflowID.String(), nil))
		return
	}

	respondJSON(w, http.StatusOK, CancelWorkflowResponse{WorkflowID: workflowID, Cancelled: true})
}

/* Findings and verdicts */

func (h *Handlers) ListFindings(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "finding", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	findings, err := h.queries.ListFindingsByCase(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list findings", err), requestID))
		return
	}

	resp := ListFindingsResponse{Findings: make([]FindingResponse, len(findings)), Count: len(findings)}
	for i := range findings {
		resp.Findings[i] = toFindingResponse(&findings[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetVerdict(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "verdict", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	v, err := h.queries.GetLatestVerdict(r.Context(), caseID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to load verdict", err), requestID))
		return
	}
	if v == nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toVerdictResponse(v))
}

/* API keys */

func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	endpoint := r.URL.Path
	method := r.Method

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "request body parsing error", err, requestID, endpoint, method, "api_key", "", nil))
		return
	}

	if err := ValidateCreateAPIKeyRequest(&req); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "api key validation failed", err, requestID, endpoint, method, "api_key", "", nil))
		return
	}

	rateLimit := req.RateLimitPerMin
	if rateLimit == 0 {
		rateLimit = 60
	}

	key, apiKey, err := h.keyManager.GenerateAPIKey(r.Context(), req.UserID, rateLimit, req.ExpiresAt)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to create API key", err), requestID))
		return
	}

	respondJSON(w, http.StatusCreated, CreateAPIKeyResponse{
		Key:       key,
		ID:        apiKey.ID,
		KeyPrefix: apiKey.KeyPrefix,
		ExpiresAt: apiKey.ExpiresAt,
		CreatedAt: apiKey.CreatedAt,
	})
}

func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	keys, err := h.queries.ListAPIKeys(r.Context())
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list API keys", err), requestID))
		return
	}

	resp := make([]APIKeyResponse, len(keys))
	for i := range keys {
		resp[i] = toAPIKeyResponse(&keys[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	keyID, apiErr := parseUUIDVar(r, "id", "api_key", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if err := h.keyManager.DeleteAPIKey(r.Context(), keyID); err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to delete API key", err), requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/* Helper functions */

func parseUUIDVar(r *http.Request, name, resource, requestID string) (uuid.UUID, *APIError) {
	vars := mux.Vars(r)
	raw, ok := vars[name]
	if !ok || raw == "" {
		return uuid.Nil, NewErrorWithContext(http.StatusBadRequest, fmt.Sprintf("missing %s parameter", name), nil, requestID, r.URL.Path, r.Method, resource, "", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewErrorWithContext(http.StatusBadRequest, fmt.Sprintf("invalid %s format", name), err, requestID, r.URL.Path, r.Method, resource, raw, nil)
	}
	return id, nil
}

func toCaseResponse(c *db.Case) CaseResponse {
	return CaseResponse{
		ID:               c.ID,
		Title:            c.Title,
		Status:           c.Status,
		LatestWorkflowID: c.LatestWorkflowID,
		CreatedBy:        c.CreatedBy,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func toCaseFileResponse(f *db.CaseFile) CaseFileResponse {
	return CaseFileResponse{
		ID:          f.ID,
		CaseID:      f.CaseID,
		FileName:    f.FileName,
		MIMEType:    f.MIMEType,
		SizeBytes:   f.SizeBytes,
		ContentHash: f.ContentHash,
		DuplicateOf: f.DuplicateOf,
		UploadedBy:  f.UploadedBy,
		CreatedAt:   f.CreatedAt,
	}
}

func toWorkflowResponse(wf *db.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:           wf.ID,
		CaseID:       wf.CaseID,
		Stage:        wf.Stage,
		ErrorKind:    wf.ErrorKind,
		ErrorSummary: wf.ErrorSummary,
		InputTokens:  wf.InputTokens,
		OutputTokens: wf.OutputTokens,
		StartedAt:    wf.StartedAt,
		CompletedAt:  wf.CompletedAt,
	}
}

func toFindingResponse(f *db.Finding) FindingResponse {
	return FindingResponse{
		ID:              f.ID,
		ExecutionID:     f.ExecutionID,
		CaseID:          f.CaseID,
		Category:        f.Category,
		Title:           f.Title,
		Narrative:       f.Narrative,
		Confidence:      f.Confidence,
		Citations:       f.Citations,
		RelatedEntities: f.RelatedEntities,
		CitationFlagged: f.CitationFlagged,
		FlagReason:      f.FlagReason,
		CreatedAt:       f.CreatedAt,
	}
}

func toVerdictResponse(v *db.CaseVerdict) VerdictResponse {
	return VerdictResponse{
		ID:         v.ID,
		CaseID:     v.CaseID,
		WorkflowID: v.WorkflowID,
		Summary:    v.Summary,
		Assessment: v.Assessment,
		Confidence: v.Confidence,
		CreatedAt:  v.CreatedAt,
	}
}

func toAPIKeyResponse(k *db.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:              k.ID,
		KeyPrefix:       k.KeyPrefix,
		UserID:          k.UserID,
		RateLimitPerMin: k.RateLimitPerMin,
		CreatedAt:       k.CreatedAt,
		LastUsedAt:      k.LastUsedAt,
		ExpiresAt:       k.ExpiresAt,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err *APIError) {
	response := ErrorResponse{
		Error: err.Message,
		Code:  err.Code,
	}
	if err.Err != nil {
		response.Message = err.Err.Error()
	}
	if err.RequestID != "" {
		w.Header().Set("X-Request-ID", err.RequestID)
	}
	respondJSON(w, err.Code, response)
}
