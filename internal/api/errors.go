/*-------------------------------------------------------------------------
 *
 * errors.go
 *    API error types and constructors for CaseTrace
 *
 * Provides the APIError type surfaced by all handlers, sentinel errors
 * for the common failure classes, and constructors that attach request
 * context for structured logging.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/errors.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"net/http"

	"github.com/casetrace/CaseTrace/internal/metrics"
)

/* APIError is the error shape every handler responds with */
type APIError struct {
	Code      int
	Message   string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

/* ErrorResponse is the JSON body sent for failed requests */
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

/* Sentinel errors for common failure classes */
var (
	ErrUnauthorized = NewError(http.StatusUnauthorized, "unauthorized", nil)
	ErrNotFound     = NewError(http.StatusNotFound, "resource not found", nil)
	ErrBadRequest   = NewError(http.StatusBadRequest, "bad request", nil)
)

/* NewError creates an APIError */
func NewError(code int, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

/* WrapError attaches a request ID to an APIError without mutating the
 * original, so sentinels stay reusable */
func WrapError(apiErr *APIError, requestID string) *APIError {
	return &APIError{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: requestID,
		Err:       apiErr.Err,
	}
}

/* NewErrorWithContext creates an APIError and logs it with full request
 * context */
func NewErrorWithContext(code int, message string, err error, requestID, endpoint, method, resource, resourceID string, details map[string]interface{}) *APIError {
	fields := map[string]interface{}{
		"status":   code,
		"endpoint": endpoint,
		"method":   method,
		"resource": resource,
	}
	if resourceID != "" {
		fields["resource_id"] = resourceID
	}
	for k, v := range details {
		fields[k] = v
	}

	ctx := metrics.WithRequestIDLogContext(context.Background(), requestID)
	if code >= http.StatusInternalServerError {
		metrics.ErrorWithContext(ctx, message, err, fields)
	} else {
		if err != nil {
			fields["error"] = err.Error()
		}
		metrics.WarnWithContext(ctx, message, fields)
	}

	return &APIError{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Err:       err,
	}
}
