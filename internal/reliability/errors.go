/*-------------------------------------------------------------------------
 *
 * errors.go
 *    Error taxonomy for CaseTrace
 *
 * Every failure surfaced by the pipeline carries a stable kind, a
 * recoverable flag, and a suggested operator action. Kinds are stored
 * on workflows and executions and returned over the API.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/reliability/errors.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"errors"
	"fmt"
)

/* ErrorKind classifies pipeline failures */
type ErrorKind string

const (
	KindModelUnavailable      ErrorKind = "MODEL_UNAVAILABLE"
	KindModelTimeout          ErrorKind = "MODEL_TIMEOUT"
	KindNoJSONFound           ErrorKind = "NO_JSON_FOUND"
	KindSchemaValidationError ErrorKind = "SCHEMA_VALIDATION_ERROR"
	KindConfirmationNotFound  ErrorKind = "CONFIRMATION_NOT_FOUND"
	KindAgentStateViolation   ErrorKind = "AGENT_STATE_VIOLATION"
	KindTriageParseError      ErrorKind = "TRIAGE_PARSE_ERROR"
	KindWorkflowFatal         ErrorKind = "WORKFLOW_FATAL"
)

/* Error is a classified pipeline error */
type Error struct {
	Kind            ErrorKind
	Message         string
	Recoverable     bool
	SuggestedAction string
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

/* New creates a classified error with the kind's default recoverability
 * and suggested action. */
func New(kind ErrorKind, message string, err error) *Error {
	recoverable, action := kindDefaults(kind)
	return &Error{
		Kind:            kind,
		Message:         message,
		Recoverable:     recoverable,
		SuggestedAction: action,
		Err:             err,
	}
}

func kindDefaults(kind ErrorKind) (bool, string) {
	switch kind {
	case KindModelUnavailable:
		return true, "verify the model backend is reachable and retry the workflow"
	case KindModelTimeout:
		return true, "retry the workflow, or raise the model timeout"
	case KindNoJSONFound:
		return true, "retry the agent, the model produced no parseable JSON object"
	case KindSchemaValidationError:
		return true, "retry the agent, the model output failed schema validation"
	case KindConfirmationNotFound:
		return false, "the confirmation request does not exist or was already decided"
	case KindAgentStateViolation:
		return false, "agent handle was reused, this is a programming error"
	case KindTriageParseError:
		return false, "triage output was unusable after retry, inspect the raw output"
	case KindWorkflowFatal:
		return false, "inspect the workflow error summary and start a new workflow"
	default:
		return false, "inspect logs for details"
	}
}

/* KindOf extracts the error kind, defaulting to WORKFLOW_FATAL for
 * unclassified errors. */
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindWorkflowFatal
}

/* IsRecoverable reports whether a retry of the same operation could
 * succeed. Unclassified errors are treated as unrecoverable. */
func IsRecoverable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Recoverable
	}
	return false
}
