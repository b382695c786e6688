/*-------------------------------------------------------------------------
 *
 * blob_queries.go
 *    Evidence blob storage queries for CaseTrace
 *
 * Stores uploaded evidence content in PostgreSQL BYTEA rows, keyed by
 * storage path. Inserts are idempotent: re-uploading identical content
 * under the same key is a no-op.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/blob_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	saveBlobQuery = `
		INSERT INTO casetrace.evidence_blobs (storage_path, content, size_bytes)
		VALUES ($1, $2, $3)
		ON CONFLICT (storage_path) DO NOTHING`

	getBlobQuery = `SELECT content FROM casetrace.evidence_blobs WHERE storage_path = $1`

	deleteBlobQuery = `DELETE FROM casetrace.evidence_blobs WHERE storage_path = $1`

	blobExistsQuery = `SELECT EXISTS(SELECT 1 FROM casetrace.evidence_blobs WHERE storage_path = $1)`
)

func (q *Queries) SaveBlob(ctx context.Context, storagePath string, content []byte) error {
	if _, err := q.DB.ExecContext(ctx, saveBlobQuery, storagePath, content, len(content)); err != nil {
		return fmt.Errorf("failed to save blob: storage_path='%s', size=%d, error=%w",
			storagePath, len(content), err)
	}
	return nil
}

func (q *Queries) GetBlob(ctx context.Context, storagePath string) ([]byte, error) {
	var content []byte
	err := q.DB.GetContext(ctx, &content, getBlobQuery, storagePath)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("blob not found: storage_path='%s'", storagePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: storage_path='%s', error=%w", storagePath, err)
	}
	return content, nil
}

func (q *Queries) DeleteBlob(ctx context.Context, storagePath string) error {
	if _, err := q.DB.ExecContext(ctx, deleteBlobQuery, storagePath); err != nil {
		return fmt.Errorf("failed to delete blob: storage_path='%s', error=%w", storagePath, err)
	}
	return nil
}

func (q *Queries) BlobExists(ctx context.Context, storagePath string) (bool, error) {
	var exists bool
	if err := q.DB.GetContext(ctx, &exists, blobExistsQuery, storagePath); err != nil {
		return false, fmt.Errorf("failed to check blob: storage_path='%s', error=%w", storagePath, err)
	}
	return exists, nil
}
