/*-------------------------------------------------------------------------
 *
 * local_storage_test.go
 *    Tests for the local filesystem storage backend
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/storage/local_storage_test.go
 *
 *-------------------------------------------------------------------------
 */

package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(map[string]interface{}{"root": root})
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	ctx := context.Background()
	content := []byte("bank statement 2024-03")

	if err := s.Store(ctx, "case-1/abc123", content); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	exists, err := s.Exists(ctx, "case-1/abc123")
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v, want true, nil", exists, err)
	}

	got, err := s.Retrieve(ctx, "case-1/abc123")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Retrieve() = %q, want %q", got, content)
	}

	if err := s.Delete(ctx, "case-1/abc123"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	exists, _ = s.Exists(ctx, "case-1/abc123")
	if exists {
		t.Error("Exists() = true after Delete()")
	}
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(map[string]interface{}{"root": root})
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	ctx := context.Background()
	tests := []struct {
		name string
		key  string
	}{
		{"parent escape", "../outside"},
		{"nested escape", "a/../../outside"},
		{"absolute path", "/etc/passwd"},
		{"bare dot", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Store(ctx, tt.key, []byte("x")); err == nil {
				t.Errorf("Store(%q) error = nil, want error", tt.key)
			}
			if _, err := s.Retrieve(ctx, tt.key); err == nil {
				t.Errorf("Retrieve(%q) error = nil, want error", tt.key)
			}
		})
	}
}

func TestLocalStorageDeleteMissingIsNoop(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(map[string]interface{}{"root": root})
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	if err := s.Delete(context.Background(), "never/stored"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}
