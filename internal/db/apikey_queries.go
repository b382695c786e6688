/*-------------------------------------------------------------------------
 *
 * apikey_queries.go
 *    API key queries for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/apikey_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const (
	createAPIKeyQuery = `
		INSERT INTO casetrace.api_keys
		(id, key_hash, key_prefix, user_id, rate_limit_per_minute, metadata, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	getAPIKeyByPrefixQuery = `
		SELECT * FROM casetrace.api_keys
		WHERE key_prefix = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	touchAPIKeyQuery = `
		UPDATE casetrace.api_keys SET last_used_at = NOW() WHERE id = $1`

	deleteAPIKeyQuery = `DELETE FROM casetrace.api_keys WHERE id = $1`

	listAPIKeysQuery = `
		SELECT id, key_prefix, user_id, rate_limit_per_minute, metadata,
		       created_at, last_used_at, expires_at, '' AS key_hash
		FROM casetrace.api_keys ORDER BY created_at DESC`
)

func (q *Queries) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	err := q.DB.QueryRowContext(ctx, createAPIKeyQuery,
		k.ID, k.KeyHash, k.KeyPrefix, k.UserID, k.RateLimitPerMin, k.Metadata, k.ExpiresAt).
		Scan(&k.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create api key: key_prefix='%s', error=%w", k.KeyPrefix, err)
	}
	return nil
}

/* GetAPIKeysByPrefix returns unexpired keys sharing a prefix. Prefixes
 * are not unique, the caller verifies the hash against each candidate. */
func (q *Queries) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	var keys []APIKey
	err := q.DB.SelectContext(ctx, &keys, getAPIKeyByPrefixQuery, prefix)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get api keys by prefix: key_prefix='%s', error=%w", prefix, err)
	}
	return keys, nil
}

func (q *Queries) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	if _, err := q.DB.ExecContext(ctx, touchAPIKeyQuery, id); err != nil {
		return fmt.Errorf("failed to touch api key: key_id='%s', error=%w", id.String(), err)
	}
	return nil
}

func (q *Queries) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	if _, err := q.DB.ExecContext(ctx, deleteAPIKeyQuery, id); err != nil {
		return fmt.Errorf("failed to delete api key: key_id='%s', error=%w", id.String(), err)
	}
	return nil
}

func (q *Queries) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := q.DB.SelectContext(ctx, &keys, listAPIKeysQuery); err != nil {
		return nil, fmt.Errorf("failed to list api keys: error=%w", err)
	}
	return keys, nil
}
