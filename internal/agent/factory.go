/*-------------------------------------------------------------------------
 *
 * factory.go
 *    Agent handle factory for CaseTrace
 *
 * Every invocation gets a fresh handle. A handle attaches to exactly
 * one execution context, reuse is a programming error and fails hard
 * rather than silently sharing model state across executions.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/agent/factory.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/llm"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* EventSink receives lifecycle events from a running agent */
type EventSink interface {
	Publish(caseID uuid.UUID, eventType string, payload map[string]interface{})
}

/* Handle is one single-use agent instance */
type Handle struct {
	Name           string
	Role           string
	CaseID         uuid.UUID
	ModelTier      string
	ThinkingEffort string
	Sink           EventSink

	attached atomic.Bool
	serial   uint64
}

/* Factory issues fresh agent handles */
type Factory struct {
	backend llm.Backend
	serial  atomic.Uint64
}

/* NewFactory creates a new agent factory */
func NewFactory(backend llm.Backend) *Factory {
	return &Factory{backend: backend}
}

/* Create returns a new, unshared handle. Identity is deterministic in
 * role and sanitized case id, with a per-process serial keeping
 * concurrent invocations distinct. */
func (f *Factory) Create(role string, caseID uuid.UUID, modelTier, thinkingEffort string, sink EventSink) *Handle {
	serial := f.serial.Add(1)
	return &Handle{
		Name:           fmt.Sprintf("%s-%s-%d", role, sanitizeIdentity(caseID.String()), serial),
		Role:           role,
		CaseID:         caseID,
		ModelTier:      modelTier,
		ThinkingEffort: thinkingEffort,
		Sink:           sink,
		serial:         serial,
	}
}

/* Backend exposes the factory's generation backend */
func (f *Factory) Backend() llm.Backend {
	return f.backend
}

/* Attach claims the handle for one execution context. A second attach
 * on the same handle is AGENT_STATE_VIOLATION. */
func (h *Handle) Attach() error {
	if !h.attached.CompareAndSwap(false, true) {
		return reliability.New(reliability.KindAgentStateViolation,
			fmt.Sprintf("agent handle already attached: agent='%s', role='%s'", h.Name, h.Role), nil)
	}
	return nil
}

/* sanitizeIdentity strips characters unsafe for identifier use */
func sanitizeIdentity(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}
