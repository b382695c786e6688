/*-------------------------------------------------------------------------
 *
 * validation.go
 *    Request validation for CaseTrace API
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/validation.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/casetrace/CaseTrace/internal/validation"
)

/* ValidateCreateCaseRequest validates CreateCaseRequest */
func ValidateCreateCaseRequest(req *CreateCaseRequest) error {
	if err := validation.ValidateRequired(req.Title, "title"); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength(req.Title, "title", 500); err != nil {
		return err
	}
	return nil
}

/* ValidateCreateAPIKeyRequest validates CreateAPIKeyRequest */
func ValidateCreateAPIKeyRequest(req *CreateAPIKeyRequest) error {
	if req.RateLimitPerMin < 0 {
		return fmt.Errorf("rate_limit_per_minute cannot be negative")
	}
	if req.UserID != nil {
		if err := validation.ValidateMaxLength(*req.UserID, "user_id", 255); err != nil {
			return err
		}
	}
	return nil
}

/* parsePagination reads limit and offset query parameters with defaults */
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = 50
	offset = 0

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit value: %q", l)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		offset, err = strconv.Atoi(o)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset value: %q", o)
		}
	}

	if err := validation.ValidateLimit(limit); err != nil {
		return 0, 0, err
	}
	if err := validation.ValidateOffset(offset); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
