/*-------------------------------------------------------------------------
 *
 * holder.go
 *    Process-wide key manager holder for CaseTrace
 *
 * The key manager is initialized once on first use and shared for the
 * life of the process.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/auth/holder.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"sync"

	"github.com/casetrace/CaseTrace/internal/db"
)

var (
	sharedOnce    sync.Once
	sharedManager *APIKeyManager
)

/* SharedManager returns the process-wide key manager, creating it on
 * the first call. Later calls ignore their argument. */
func SharedManager(queries *db.Queries) *APIKeyManager {
	sharedOnce.Do(func() {
		sharedManager = NewAPIKeyManager(queries)
	})
	return sharedManager
}
