/*-------------------------------------------------------------------------
 *
 * schema_test.go
 *    Tests for role output validation
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/casetrace/CaseTrace/internal/reliability"
)

func TestValidateDomainOutput(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{
			"valid output",
			`{"findings": [{"category": "timeline", "title": "t", "narrative": "n",
				"confidence": 0.8, "citations": [{"file_id": "f1", "locator": "page:3", "excerpt": "x"}]}],
				"summary": "s"}`,
			false,
		},
		{"empty findings array is valid", `{"findings": [], "summary": "nothing"}`, false},
		{"not json", `{"findings": [`, true},
		{"missing findings", `{"summary": "s"}`, true},
		{"finding missing title", `{"findings": [{"narrative": "n", "confidence": 0.5}]}`, true},
		{"finding missing narrative", `{"findings": [{"title": "t", "confidence": 0.5}]}`, true},
		{"confidence above one", `{"findings": [{"title": "t", "narrative": "n", "confidence": 1.5}]}`, true},
		{"confidence negative", `{"findings": [{"title": "t", "narrative": "n", "confidence": -0.1}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDomainOutput(tt.candidate)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDomainOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && reliability.KindOf(err) != reliability.KindSchemaValidationError {
				t.Errorf("error kind = %v, want SCHEMA_VALIDATION_ERROR", reliability.KindOf(err))
			}
		})
	}
}

func TestValidationErrorRetainsRawText(t *testing.T) {
	raw := `{"findings": [`
	_, err := ValidateDomainOutput(raw)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError in chain, got %T", err)
	}
	if verr.RawText != raw {
		t.Errorf("raw text = %q, want %q", verr.RawText, raw)
	}
}

func TestValidateTriageOutput(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{"valid routing", `{"routing": {"evidence": ["f1", "f2"], "financial": ["f3"]}}`, false},
		{"empty routing map is valid", `{"routing": {}}`, false},
		{"missing routing", `{"notes": "no idea"}`, true},
		{"null group", `{"routing": {"evidence": null}}`, true},
		{"empty role key", `{"routing": {"": ["f1"]}}`, true},
		{"not json", `routing: evidence`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTriageOutput(tt.candidate)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTriageOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSynthesisOutput(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{
			"valid output",
			`{"hypotheses": [], "contradictions": [], "gaps": [], "tasks": [],
				"verdict": {"summary": "s", "assessment": "inconclusive", "confidence": 0.4}}`,
			false,
		},
		{"missing verdict summary", `{"verdict": {"assessment": "a", "confidence": 0.4}}`, true},
		{"verdict confidence out of range", `{"verdict": {"summary": "s", "confidence": 2}}`, true},
		{"not json", `verdict: none`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSynthesisOutput(tt.candidate)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSynthesisOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckCitations(t *testing.T) {
	valid := OutputCitation{FileID: "f1", Locator: "page:12", Excerpt: "a verbatim span"}

	tests := []struct {
		name    string
		finding OutputFinding
		wantOK  bool
	}{
		{"valid page citation", OutputFinding{Citations: []OutputCitation{valid}}, true},
		{"valid timestamp citation", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "ts:03:45", Excerpt: "spoken words"}}}, true},
		{"valid region citation", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "region:top-left corner", Excerpt: "visible text"}}}, true},
		{"no citations", OutputFinding{}, false},
		{"missing file id", OutputFinding{Citations: []OutputCitation{
			{Locator: "page:1", Excerpt: "x"}}}, false},
		{"empty excerpt", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "page:1"}}}, false},
		{"excerpt too long", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "page:1", Excerpt: strings.Repeat("a", 501)}}}, false},
		{"ellipsis joined excerpt", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "page:1", Excerpt: "start ... end"}}}, false},
		{"unknown locator format", OutputFinding{Citations: []OutputCitation{
			{FileID: "f1", Locator: "line 40", Excerpt: "x"}}}, false},
		{"one bad citation fails the finding", OutputFinding{Citations: []OutputCitation{
			valid, {FileID: "f2", Locator: "nowhere", Excerpt: "x"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckCitations(&tt.finding)
			if ok != tt.wantOK {
				t.Errorf("CheckCitations() = %v (%s), want %v", ok, reason, tt.wantOK)
			}
			if !ok && reason == "" {
				t.Error("failed check returned empty reason")
			}
		})
	}
}
