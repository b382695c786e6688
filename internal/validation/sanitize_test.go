/*-------------------------------------------------------------------------
 *
 * sanitize_test.go
 *    Tests for input sanitization
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/validation/sanitize_test.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "statement.pdf", "statement.pdf"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"windows path", "C:\\evil\\..\\shadow", "shadow"},
		{"hidden file", ".bashrc", "bashrc"},
		{"spaces kept", "bank statement 2024.pdf", "bank statement 2024.pdf"},
		{"shell characters stripped", "a;rm -rf.txt", "arm -rf.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"mid", 0.55, false},
		{"negative", -0.1, true},
		{"above one", 1.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfidence(tt.confidence, "confidence")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfidence(%g) error = %v, wantErr %v", tt.confidence, err, tt.wantErr)
			}
		})
	}
}
