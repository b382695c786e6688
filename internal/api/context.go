/*-------------------------------------------------------------------------
 *
 * context.go
 *    Request context accessors for CaseTrace API
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/context.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"

	"github.com/casetrace/CaseTrace/internal/db"
)

/* GetAPIKeyFromContext returns the authenticated API key, if any */
func GetAPIKeyFromContext(ctx context.Context) *db.APIKey {
	if key, ok := ctx.Value(apiKeyContextKey).(*db.APIKey); ok {
		return key
	}
	return nil
}

/* GetCallerFromContext returns the user ID bound to the authenticated
 * API key, or empty when the key carries none */
func GetCallerFromContext(ctx context.Context) string {
	key := GetAPIKeyFromContext(ctx)
	if key == nil || key.UserID == nil {
		return ""
	}
	return *key.UserID
}
