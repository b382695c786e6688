/*-------------------------------------------------------------------------
 *
 * storage.go
 *    Storage backend interface for evidence files
 *
 * Provides abstraction over evidence content storage. The case_files
 * table holds metadata only; the backend holds the bytes, keyed by
 * storage path.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/storage/storage.go
 *
 *-------------------------------------------------------------------------
 */

package storage

import (
	"context"
	"fmt"
)

/* Backend stores and retrieves evidence content by storage path */
type Backend interface {
	Store(ctx context.Context, key string, content []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

/* NewBackend creates a storage backend by type name */
func NewBackend(backendType string, config map[string]interface{}) (Backend, error) {
	switch backendType {
	case "database", "":
		return NewDatabaseStorage(config)
	case "local":
		return NewLocalStorage(config)
	default:
		return nil, fmt.Errorf("unknown storage backend: type='%s'", backendType)
	}
}

/* Loader adapts a backend to the read-only view agent invocations use */
type Loader struct {
	backend Backend
}

func NewLoader(backend Backend) *Loader {
	return &Loader{backend: backend}
}

func (l *Loader) Load(ctx context.Context, storagePath string) ([]byte, error) {
	return l.backend.Retrieve(ctx, storagePath)
}
