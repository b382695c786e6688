/*-------------------------------------------------------------------------
 *
 * runner.go
 *    Domain agent runner for CaseTrace
 *
 * Drives one model invocation for a domain role: prompt assembly, event
 * stream consumption, output extraction and validation, persistence of
 * the execution and its findings. Failures here are soft, they finalize
 * the execution as FAILED and surface nil output. Agent state
 * violations are the exception and propagate to the caller.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/agent/runner.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/llm"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* Store is the persistence surface the runner needs */
type Store interface {
	CreateExecution(ctx context.Context, e *db.AgentExecution) error
	FinalizeExecutionSuccess(ctx context.Context, id uuid.UUID, rawOutput string, parsed db.JSONBMap,
		inputTokens, outputTokens int, traces db.TraceList) (bool, error)
	FinalizeExecutionFailure(ctx context.Context, id uuid.UUID, rawOutput, errorMessage string,
		inputTokens, outputTokens int, traces db.TraceList) (bool, error)
	CreateFinding(ctx context.Context, f *db.Finding) error
	AddWorkflowUsage(ctx context.Context, id uuid.UUID, inputTokens, outputTokens int) error
}

/* FileLoader fetches stored file bytes by storage path */
type FileLoader interface {
	Load(ctx context.Context, storagePath string) ([]byte, error)
}

/* Confirmer suspends the caller until a human decides on a proposed
 * action. A rejected decision is a normal outcome, not an error. */
type Confirmer interface {
	Confirm(ctx context.Context, caseID, workflowID uuid.UUID, action string) (approved bool, reason string, err error)
}

/* RunInput carries everything one domain invocation needs */
type RunInput struct {
	Case              *db.Case
	Workflow          *db.Workflow
	User              string
	Role              string
	Files             []db.CaseFile
	PriorHypotheses   []string
	ContextInjection  string
	ParentExecutionID *uuid.UUID
}

/* RunResult pairs the validated output with its execution record */
type RunResult struct {
	Output      *DomainOutput
	ExecutionID uuid.UUID
	SkipReason  string
}

/* Runner executes domain agent invocations */
type Runner struct {
	factory   *Factory
	store     Store
	loader    FileLoader
	confirmer Confirmer
	sink      EventSink
	modelTier string
	effort    string
}

/* NewRunner creates a domain agent runner */
func NewRunner(factory *Factory, store Store, loader FileLoader, confirmer Confirmer, sink EventSink, modelTier, effort string) *Runner {
	return &Runner{
		factory:   factory,
		store:     store,
		loader:    loader,
		confirmer: confirmer,
		sink:      sink,
		modelTier: modelTier,
		effort:    effort,
	}
}

/* Run executes one domain invocation. An empty file group
 * short-circuits to nil without touching the model. A nil result with
 * nil error means the invocation produced nothing usable, the
 * execution row carries the diagnosis. */
func (r *Runner) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if len(in.Files) == 0 {
		metrics.InfoWithContext(ctx, "Skipping domain run with no files", map[string]interface{}{
			"role": in.Role,
		})
		return nil, nil
	}

	instruction, err := BuildDomainPrompt(in.Role, in.PriorHypotheses, in.ContextInjection)
	if err != nil {
		return nil, fmt.Errorf("failed to build domain prompt: role='%s', error=%w", in.Role, err)
	}

	inv, err := r.Invoke(ctx, in.Role, in.Case.ID, in.Workflow.ID, in.ParentExecutionID, instruction, in.Files)
	if err != nil {
		if reliability.KindOf(err) == reliability.KindAgentStateViolation {
			/* A reused handle is a programming error, the caller must
			 * see it rather than a quiet empty result. */
			return nil, err
		}
		/* Model never produced a stream, the execution row already
		 * records the failure. Soft by contract. */
		return nil, nil
	}

	ctx = metrics.WithExecutionIDLogContext(ctx, inv.ExecutionID)

	out, verr := ValidateDomainOutput(inv.Candidate)
	if verr != nil {
		r.finalizeFailure(ctx, inv, verr)
		return nil, nil
	}

	result := &RunResult{Output: out, ExecutionID: inv.ExecutionID}

	if out.ProposedAction != "" && r.confirmer != nil {
		approved, reason, cerr := r.confirmer.Confirm(ctx, in.Case.ID, in.Workflow.ID, out.ProposedAction)
		if cerr != nil {
			r.finalizeFailure(ctx, inv, cerr)
			return nil, nil
		}
		if !approved {
			result.SkipReason = reason
			r.publish(in.Case.ID, "action_skipped", map[string]interface{}{
				"role":   in.Role,
				"action": out.ProposedAction,
				"reason": reason,
			})
		}
	}

	parsed, merr := db.StructToMap(out)
	if merr != nil {
		r.finalizeFailure(ctx, inv, merr)
		return nil, nil
	}

	if _, err := r.store.FinalizeExecutionSuccess(ctx, inv.ExecutionID, inv.RawText, parsed,
		inv.InputTokens, inv.OutputTokens, tracesToDB(inv.Traces)); err != nil {
		return nil, fmt.Errorf("failed to persist execution: execution_id='%s', error=%w",
			inv.ExecutionID.String(), err)
	}

	if err := r.persistFindings(ctx, in, inv.ExecutionID, out); err != nil {
		return nil, err
	}

	if err := r.store.AddWorkflowUsage(ctx, in.Workflow.ID, inv.InputTokens, inv.OutputTokens); err != nil {
		metrics.WarnWithContext(ctx, "Failed to accumulate workflow usage", map[string]interface{}{
			"workflow_id": in.Workflow.ID.String(),
			"error":       err.Error(),
		})
	}

	metrics.RecordAgentExecution(in.Role, "success", time.Since(inv.StartedAt))
	r.publish(in.Case.ID, "agent_completed", map[string]interface{}{
		"role":          in.Role,
		"execution_id":  inv.ExecutionID.String(),
		"finding_count": len(out.Findings),
	})

	return result, nil
}

/* Invocation is the raw outcome of one model call before role-specific
 * validation. */
type Invocation struct {
	ExecutionID  uuid.UUID
	RawText      string
	Candidate    string
	InputTokens  int
	OutputTokens int
	Traces       []ThinkingTrace
	StartedAt    time.Time
	Role         string
	CaseID       uuid.UUID
}

/* Invoke creates a fresh handle, records a RUNNING execution, streams
 * the model, and extracts the JSON candidate. The caller validates and
 * finalizes. Stream failures and absent JSON finalize the execution as
 * FAILED here and return an error. */
func (r *Runner) Invoke(ctx context.Context, role string, caseID, workflowID uuid.UUID,
	parentID *uuid.UUID, instruction string, files []db.CaseFile) (*Invocation, error) {

	started := time.Now()

	handle := r.factory.Create(role, caseID, r.modelTier, r.effort, r.sink)
	if err := handle.Attach(); err != nil {
		return nil, err
	}

	exec := &db.AgentExecution{
		CaseID:            caseID,
		WorkflowID:        workflowID,
		Role:              role,
		ParentExecutionID: parentID,
	}
	if err := r.store.CreateExecution(ctx, exec); err != nil {
		return nil, err
	}

	r.publish(caseID, "agent_started", map[string]interface{}{
		"role":         role,
		"execution_id": exec.ID.String(),
	})

	parts, err := r.buildParts(ctx, files)
	if err != nil {
		r.failInvocation(ctx, exec.ID, "", 0, 0, nil, err)
		return nil, err
	}

	stream, err := r.factory.Backend().Generate(ctx, llm.Request{
		Instruction:    instruction,
		Parts:          parts,
		Model:          r.modelTier,
		ThinkingEffort: r.effort,
	})
	if err != nil {
		metrics.RecordLLMCall(r.modelTier, "error", 0, 0)
		r.failInvocation(ctx, exec.ID, "", 0, 0, nil, err)
		return nil, err
	}

	var events []llm.Event
	for ev := range stream {
		events = append(events, ev)
		if ev.Thought && ev.Text != "" {
			r.publish(caseID, "agent_thinking", map[string]interface{}{
				"role":         role,
				"execution_id": exec.ID.String(),
			})
		}
	}

	rawText := CollectText(events)
	inputTokens, outputTokens := ExtractUsage(events)
	traces := ExtractThinkingTraces(handle.Name, events)
	metrics.RecordLLMCall(r.modelTier, "success", inputTokens, outputTokens)

	candidate, found := ExtractJSON(rawText)
	if !found {
		err := reliability.New(reliability.KindNoJSONFound,
			fmt.Sprintf("model output contained no JSON: role='%s', output_length=%d", role, len(rawText)), nil)
		r.failInvocation(ctx, exec.ID, rawText, inputTokens, outputTokens, traces, err)
		return nil, err
	}

	return &Invocation{
		ExecutionID:  exec.ID,
		RawText:      rawText,
		Candidate:    candidate,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Traces:       traces,
		StartedAt:    started,
		Role:         role,
		CaseID:       caseID,
	}, nil
}

/* FinalizeFailure records a FAILED execution for an invocation whose
 * candidate failed caller-side validation. Exposed for the triage and
 * synthesis drivers. */
func (r *Runner) FinalizeFailure(ctx context.Context, inv *Invocation, cause error) {
	r.finalizeFailure(ctx, inv, cause)
}

/* FinalizeSuccess records a SUCCESS execution for an invocation
 * validated by the caller. */
func (r *Runner) FinalizeSuccess(ctx context.Context, inv *Invocation, parsed db.JSONBMap) error {
	if _, err := r.store.FinalizeExecutionSuccess(ctx, inv.ExecutionID, inv.RawText, parsed,
		inv.InputTokens, inv.OutputTokens, tracesToDB(inv.Traces)); err != nil {
		return fmt.Errorf("failed to persist execution: execution_id='%s', error=%w",
			inv.ExecutionID.String(), err)
	}
	metrics.RecordAgentExecution(inv.Role, "success", time.Since(inv.StartedAt))
	return nil
}

func (r *Runner) finalizeFailure(ctx context.Context, inv *Invocation, cause error) {
	r.failInvocation(ctx, inv.ExecutionID, inv.RawText, inv.InputTokens, inv.OutputTokens, inv.Traces, cause)
	metrics.RecordAgentExecution(inv.Role, "failed", time.Since(inv.StartedAt))
	r.publish(inv.CaseID, "agent_failed", map[string]interface{}{
		"role":         inv.Role,
		"execution_id": inv.ExecutionID.String(),
		"error_kind":   string(reliability.KindOf(cause)),
	})
}

func (r *Runner) failInvocation(ctx context.Context, execID uuid.UUID, rawText string,
	inputTokens, outputTokens int, traces []ThinkingTrace, cause error) {

	if _, err := r.store.FinalizeExecutionFailure(ctx, execID, rawText, cause.Error(),
		inputTokens, outputTokens, tracesToDB(traces)); err != nil {
		metrics.ErrorWithContext(ctx, "Failed to record execution failure", err, map[string]interface{}{
			"execution_id": execID.String(),
		})
	}
	metrics.ErrorWithContext(ctx, "Agent execution failed", cause, map[string]interface{}{
		"execution_id": execID.String(),
		"error_kind":   string(reliability.KindOf(cause)),
	})
}

/* persistFindings writes findings, flagging citation violations rather
 * than dropping the finding. */
func (r *Runner) persistFindings(ctx context.Context, in RunInput, execID uuid.UUID, out *DomainOutput) error {
	for i := range out.Findings {
		f := &out.Findings[i]

		citations := make(db.CitationList, len(f.Citations))
		for j, c := range f.Citations {
			citations[j] = db.Citation{FileID: c.FileID, Locator: c.Locator, Excerpt: c.Excerpt}
		}

		row := &db.Finding{
			ExecutionID:     execID,
			CaseID:          in.Case.ID,
			Category:        f.Category,
			Title:           f.Title,
			Narrative:       f.Narrative,
			Confidence:      f.Confidence,
			Citations:       citations,
			RelatedEntities: pq.StringArray(f.RelatedEntities),
		}

		if ok, reason := CheckCitations(f); !ok {
			row.CitationFlagged = true
			row.FlagReason = &reason
			metrics.WarnWithContext(ctx, "Finding flagged for citation violation", map[string]interface{}{
				"execution_id": execID.String(),
				"title":        f.Title,
				"reason":       reason,
			})
		}

		if err := r.store.CreateFinding(ctx, row); err != nil {
			return fmt.Errorf("failed to persist finding: execution_id='%s', title='%s', error=%w",
				execID.String(), f.Title, err)
		}
	}
	return nil
}

func (r *Runner) buildParts(ctx context.Context, files []db.CaseFile) ([]llm.Part, error) {
	parts := make([]llm.Part, 0, len(files))
	for _, f := range files {
		part := llm.Part{
			FileName:    f.FileName,
			MIMEType:    f.MIMEType,
			StoragePath: f.StoragePath,
			Metadata:    map[string]string{"file_id": f.ID.String()},
		}
		if r.loader != nil {
			data, err := r.loader.Load(ctx, f.StoragePath)
			if err != nil {
				return nil, fmt.Errorf("failed to load file content: file_id='%s', storage_path='%s', error=%w",
					f.ID.String(), f.StoragePath, err)
			}
			part.Data = data
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (r *Runner) publish(caseID uuid.UUID, eventType string, payload map[string]interface{}) {
	if r.sink != nil {
		r.sink.Publish(caseID, eventType, payload)
	}
}

func tracesToDB(traces []ThinkingTrace) db.TraceList {
	out := make(db.TraceList, len(traces))
	for i, t := range traces {
		out[i] = db.ThinkingTrace{Agent: t.Agent, Thought: t.Thought, Timestamp: t.Timestamp}
	}
	return out
}
