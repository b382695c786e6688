/*-------------------------------------------------------------------------
 *
 * factory_test.go
 *    Tests for the agent handle factory
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"testing"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/reliability"
)

func TestFactoryCreateReturnsFreshHandles(t *testing.T) {
	f := NewFactory(nil)
	caseID := uuid.New()

	h1 := f.Create(RoleEvidence, caseID, "standard", "medium", nil)
	h2 := f.Create(RoleEvidence, caseID, "standard", "medium", nil)

	if h1 == h2 {
		t.Fatal("factory returned the same handle twice")
	}
	if h1.Name == h2.Name {
		t.Errorf("handles for same role/case share identity: %q", h1.Name)
	}
	if h1.Role != RoleEvidence || h1.CaseID != caseID {
		t.Errorf("handle fields not populated: role=%q case=%s", h1.Role, h1.CaseID)
	}
}

func TestHandleAttachOnce(t *testing.T) {
	f := NewFactory(nil)
	h := f.Create(RoleFinancial, uuid.New(), "standard", "low", nil)

	if err := h.Attach(); err != nil {
		t.Fatalf("first attach failed: %v", err)
	}

	err := h.Attach()
	if err == nil {
		t.Fatal("second attach succeeded, want AGENT_STATE_VIOLATION")
	}
	if reliability.KindOf(err) != reliability.KindAgentStateViolation {
		t.Errorf("error kind = %v, want AGENT_STATE_VIOLATION", reliability.KindOf(err))
	}
	if reliability.IsRecoverable(err) {
		t.Error("state violation reported as recoverable")
	}
}

func TestSanitizeIdentity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"550e8400-e29b-41d4-a716-446655440000", "550e8400e29b"},
		{"abc", "abc"},
		{"a b!c", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeIdentity(tt.in); got != tt.want {
			t.Errorf("sanitizeIdentity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
