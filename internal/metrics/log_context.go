/*-------------------------------------------------------------------------
 *
 * log_context.go
 *    Log context helpers for structured logging
 *
 * Provides helpers for consistent structured logging with request_id,
 * case_id, workflow_id, execution_id, role fields across all components.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/metrics/log_context.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	caseIDKey      contextKey = "case_id"
	workflowIDKey  contextKey = "workflow_id"
	executionIDKey contextKey = "execution_id"
	roleKey        contextKey = "role"
)

/* InitLogging configures the global zerolog logger. Output is JSON on
 * stdout unless level is "pretty-<level>", which switches to console
 * output for local development. */
func InitLogging(level string) {
	pretty := false
	if strings.HasPrefix(level, "pretty-") {
		pretty = true
		level = strings.TrimPrefix(level, "pretty-")
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

/* WithRequestIDLogContext adds request ID to log context */
func WithRequestIDLogContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

/* WithCaseIDLogContext adds case ID to log context */
func WithCaseIDLogContext(ctx context.Context, caseID uuid.UUID) context.Context {
	return context.WithValue(ctx, caseIDKey, caseID.String())
}

/* WithWorkflowIDLogContext adds workflow ID to log context */
func WithWorkflowIDLogContext(ctx context.Context, workflowID uuid.UUID) context.Context {
	return context.WithValue(ctx, workflowIDKey, workflowID.String())
}

/* WithExecutionIDLogContext adds execution ID to log context */
func WithExecutionIDLogContext(ctx context.Context, executionID uuid.UUID) context.Context {
	return context.WithValue(ctx, executionIDKey, executionID.String())
}

/* WithRoleLogContext adds agent role to log context */
func WithRoleLogContext(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if id, ok := ctx.Value(key).(string); ok {
		return id
	}
	if id, ok := ctx.Value(key).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

/* GetRequestIDFromContext gets request ID from context */
func GetRequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDKey)
}

/* GetCaseIDFromContext gets case ID from context */
func GetCaseIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, caseIDKey)
}

/* GetWorkflowIDFromContext gets workflow ID from context */
func GetWorkflowIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, workflowIDKey)
}

/* GetExecutionIDFromContext gets execution ID from context */
func GetExecutionIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, executionIDKey)
}

/* GetRoleFromContext gets agent role from context */
func GetRoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, roleKey)
}

/* LoggerFromContext creates a zerolog logger with fields from context */
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	logger := log.Logger

	/* Add context fields */
	if requestID := GetRequestIDFromContext(ctx); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	if caseID := GetCaseIDFromContext(ctx); caseID != "" {
		logger = logger.With().Str("case_id", caseID).Logger()
	}
	if workflowID := GetWorkflowIDFromContext(ctx); workflowID != "" {
		logger = logger.With().Str("workflow_id", workflowID).Logger()
	}
	if executionID := GetExecutionIDFromContext(ctx); executionID != "" {
		logger = logger.With().Str("execution_id", executionID).Logger()
	}
	if role := GetRoleFromContext(ctx); role != "" {
		logger = logger.With().Str("role", role).Logger()
	}

	return logger
}

/* LogWithContext logs a message with context fields */
func LogWithContext(ctx context.Context, level zerolog.Level, message string, fields map[string]interface{}) {
	logger := LoggerFromContext(ctx)
	event := logger.WithLevel(level)

	for key, value := range fields {
		event = event.Interface(key, value)
	}

	event.Msg(message)
}

/* DebugWithContext logs a debug message with context */
func DebugWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.DebugLevel, message, fields)
}

/* InfoWithContext logs an info message with context */
func InfoWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.InfoLevel, message, fields)
}

/* WarnWithContext logs a warning message with context */
func WarnWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.WarnLevel, message, fields)
}

/* ErrorWithContext logs an error message with context */
func ErrorWithContext(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogWithContext(ctx, zerolog.ErrorLevel, message, fields)
}
