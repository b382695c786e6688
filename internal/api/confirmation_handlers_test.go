/*-------------------------------------------------------------------------
 *
 * confirmation_handlers_test.go
 *    Tests for confirmation resolution handlers
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/confirmation_handlers_test.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/casetrace/CaseTrace/internal/confirm"
)

func newConfirmationTestServer(t *testing.T) (*Handlers, *confirm.Broker, *mux.Router) {
	t.Helper()

	broker := confirm.NewBroker(nil, nil, time.Minute)
	h := &Handlers{broker: broker}

	router := mux.NewRouter()
	router.HandleFunc("/api/cases/{case_id}/confirmations/pending", h.ListPendingConfirmations).Methods("GET")
	router.HandleFunc("/api/cases/{case_id}/confirmations/{request_id}", h.ResolveConfirmation).Methods("POST")
	return h, broker, router
}

func resolveBody(approved bool, reason string) *bytes.Buffer {
	b, _ := json.Marshal(ResolveConfirmationRequest{Approved: approved, Reason: reason})
	return bytes.NewBuffer(b)
}

func TestResolveConfirmationApproves(t *testing.T) {
	_, broker, router := newConfirmationTestServer(t)

	caseID := uuid.New()
	req, decisionCh, err := broker.Register(context.Background(), caseID, uuid.New(), "freeze account 4411")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	url := fmt.Sprintf("/api/cases/%s/confirmations/%s", caseID, req.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", url, resolveBody(true, "verified with client")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp ResolveConfirmationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != "resolved" || !resp.Approved || resp.ID != req.ID {
		t.Errorf("response = %+v, want resolved/approved for %s", resp, req.ID)
	}

	select {
	case d := <-decisionCh:
		if !d.Approved || d.Reason != "verified with client" {
			t.Errorf("decision = %+v, want approved with reason", d)
		}
	case <-time.After(time.Second):
		t.Fatal("no decision delivered to the waiting execution")
	}
}

func TestResolveConfirmationAlreadyResolvedIs404(t *testing.T) {
	_, broker, router := newConfirmationTestServer(t)

	caseID := uuid.New()
	req, _, err := broker.Register(context.Background(), caseID, uuid.New(), "contact counterparty")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	url := fmt.Sprintf("/api/cases/%s/confirmations/%s", caseID, req.ID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", url, resolveBody(false, "")))
	if rec.Code != http.StatusOK {
		t.Fatalf("first resolve status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", url, resolveBody(true, "")))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second resolve status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResolveConfirmationUnknownIDIs404(t *testing.T) {
	_, _, router := newConfirmationTestServer(t)

	url := fmt.Sprintf("/api/cases/%s/confirmations/%s", uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", url, resolveBody(true, "")))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResolveConfirmationWrongCaseIs404(t *testing.T) {
	_, broker, router := newConfirmationTestServer(t)

	req, _, err := broker.Register(context.Background(), uuid.New(), uuid.New(), "issue subpoena draft")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	/* Same request id, different case in the URL */
	url := fmt.Sprintf("/api/cases/%s/confirmations/%s", uuid.New(), req.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", url, resolveBody(true, "")))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListPendingConfirmations(t *testing.T) {
	_, broker, router := newConfirmationTestServer(t)

	caseID := uuid.New()
	if _, _, err := broker.Register(context.Background(), caseID, uuid.New(), "freeze account"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, _, err := broker.Register(context.Background(), uuid.New(), uuid.New(), "other case action"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", fmt.Sprintf("/api/cases/%s/confirmations/pending", caseID), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp PendingConfirmationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 1 || len(resp.Confirmations) != 1 {
		t.Fatalf("count = %d, want 1 pending for this case", resp.Count)
	}
	if resp.Confirmations[0].ActionDescription != "freeze account" {
		t.Errorf("action = %q, want %q", resp.Confirmations[0].ActionDescription, "freeze account")
	}
}
