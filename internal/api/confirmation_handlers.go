/*-------------------------------------------------------------------------
 *
 * confirmation_handlers.go
 *    API handlers for human confirmation of proposed actions
 *
 * A pending confirmation suspends its agent execution until someone
 * approves or rejects it here. Resolution is first-write-wins: once a
 * request leaves the pending set, later attempts get 404.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/confirmation_handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"net/http"
)

/* ListPendingConfirmations lists pending confirmation requests for a case */
func (h *Handlers) ListPendingConfirmations(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "case_id", "confirmation", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	pending := h.broker.ListPending(caseID)

	resp := PendingConfirmationsResponse{
		Confirmations: make([]ConfirmationResponse, len(pending)),
		Count:         len(pending),
	}
	for i, req := range pending {
		resp.Confirmations[i] = ConfirmationResponse{
			ID:                req.ID,
			CaseID:            req.CaseID,
			WorkflowID:        req.WorkflowID,
			ActionDescription: req.ActionDescription,
			CreatedAt:         req.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

/* ResolveConfirmation approves or rejects a pending confirmation */
func (h *Handlers) ResolveConfirmation(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	endpoint := r.URL.Path
	method := r.Method

	caseID, apiErr := parseUUIDVar(r, "case_id", "confirmation", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	confirmationID, apiErr := parseUUIDVar(r, "request_id", "confirmation", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	var req ResolveConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, NewErrorWithContext(http.StatusBadRequest, "request body parsing error", err, requestID, endpoint, method, "confirmation", confirmationID.String(), nil))
		return
	}

	/* The pending request must belong to the case in the URL */
	found := false
	for _, pending := range h.broker.ListPending(caseID) {
		if pending.ID == confirmationID {
			found = true
			break
		}
	}
	if !found {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	if !h.broker.Resolve(r.Context(), confirmationID, req.Approved, req.Reason) {
		/* Lost the race to another resolver or the timeout */
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, ResolveConfirmationResponse{
		ID:       confirmationID,
		Status:   "resolved",
		Approved: req.Approved,
	})
}
