/*-------------------------------------------------------------------------
 *
 * api_key.go
 *    API key management for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/auth/api_key.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

type APIKeyManager struct {
	queries *db.Queries
}

func NewAPIKeyManager(queries *db.Queries) *APIKeyManager {
	return &APIKeyManager{queries: queries}
}

/* GenerateAPIKey generates a new API key. The raw key is returned once
 * and never stored; only its bcrypt hash and prefix persist. */
func (m *APIKeyManager) GenerateAPIKey(ctx context.Context, userID *string, rateLimit int, expiresAt *time.Time) (string, *db.APIKey, error) {
	/* 32 random bytes = 44 base64 chars */
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate key: %w", err)
	}

	key := base64.URLEncoding.EncodeToString(keyBytes)
	keyPrefix := GetKeyPrefix(key)
	keyHash, err := HashAPIKey(key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash key: %w", err)
	}

	apiKey := &db.APIKey{
		KeyHash:         keyHash,
		KeyPrefix:       keyPrefix,
		UserID:          userID,
		RateLimitPerMin: rateLimit,
		Metadata:        make(db.JSONBMap),
		ExpiresAt:       expiresAt,
	}

	if err := m.queries.CreateAPIKey(ctx, apiKey); err != nil {
		return "", nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return key, apiKey, nil
}

/* ValidateAPIKey validates an API key and returns the key record.
 * Prefixes are not unique, so every candidate with the prefix is
 * checked against the presented key. */
func (m *APIKeyManager) ValidateAPIKey(ctx context.Context, key string) (*db.APIKey, error) {
	prefix := GetKeyPrefix(key)

	candidates, err := m.queries.GetAPIKeysByPrefix(ctx, prefix)
	if err != nil {
		metrics.WarnWithContext(ctx, "API key lookup failed", map[string]interface{}{
			"key_prefix": prefix,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("API key lookup failed: prefix=%s, error=%w", prefix, err)
	}

	for i := range candidates {
		if VerifyAPIKey(key, candidates[i].KeyHash) {
			apiKey := &candidates[i]
			if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
				return nil, fmt.Errorf("invalid API key: key expired at %s", apiKey.ExpiresAt.Format(time.RFC3339))
			}
			_ = m.queries.TouchAPIKey(ctx, apiKey.ID)
			return apiKey, nil
		}
	}

	metrics.WarnWithContext(ctx, "API key verification failed", map[string]interface{}{
		"key_prefix": prefix,
		"candidates": len(candidates),
	})
	return nil, fmt.Errorf("invalid API key: key verification failed")
}

/* DeleteAPIKey deletes an API key */
func (m *APIKeyManager) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	return m.queries.DeleteAPIKey(ctx, id)
}
