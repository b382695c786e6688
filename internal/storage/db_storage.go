/*-------------------------------------------------------------------------
 *
 * db_storage.go
 *    Database storage backend for evidence files
 *
 * Stores evidence content directly in PostgreSQL BYTEA rows. Suitable
 * for the document and image sizes case uploads carry; keeps evidence
 * transactionally consistent with case metadata.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/storage/db_storage.go
 *
 *-------------------------------------------------------------------------
 */

package storage

import (
	"context"
	"fmt"

	"github.com/casetrace/CaseTrace/internal/db"
)

/* DatabaseStorage implements the database storage backend */
type DatabaseStorage struct {
	queries *db.Queries
}

/* NewDatabaseStorage creates a new database storage backend */
func NewDatabaseStorage(config map[string]interface{}) (*DatabaseStorage, error) {
	queries, ok := config["queries"].(*db.Queries)
	if !ok {
		return nil, fmt.Errorf("database storage requires queries in config")
	}

	return &DatabaseStorage{queries: queries}, nil
}

func (d *DatabaseStorage) Store(ctx context.Context, key string, content []byte) error {
	return d.queries.SaveBlob(ctx, key, content)
}

func (d *DatabaseStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	return d.queries.GetBlob(ctx, key)
}

func (d *DatabaseStorage) Delete(ctx context.Context, key string) error {
	return d.queries.DeleteBlob(ctx, key)
}

func (d *DatabaseStorage) Exists(ctx context.Context, key string) (bool, error) {
	return d.queries.BlobExists(ctx, key)
}
