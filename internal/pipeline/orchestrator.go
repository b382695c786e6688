/*-------------------------------------------------------------------------
 *
 * orchestrator.go
 *    Workflow state machine for CaseTrace
 *
 * Drives one investigation run: CREATED -> TRIAGING -> ROUTED ->
 * ANALYZING -> SYNTHESIZING -> DONE, with FAILED reachable from any
 * stage. Domain tasks run concurrently and fail open, only triage
 * failures and broker state violations are workflow-fatal.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/pipeline/orchestrator.go
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/casetrace/CaseTrace/internal/agent"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* Store is the persistence surface the orchestrator needs */
type Store interface {
	GetCaseByID(ctx context.Context, id uuid.UUID) (*db.Case, error)
	UpdateCaseStatus(ctx context.Context, id uuid.UUID, status string) error
	SetLatestWorkflow(ctx context.Context, caseID, workflowID uuid.UUID) error
	ListCaseFiles(ctx context.Context, caseID uuid.UUID) ([]db.CaseFile, error)

	CreateWorkflow(ctx context.Context, w *db.Workflow) error
	UpdateWorkflowStage(ctx context.Context, id uuid.UUID, stage string) error
	CompleteWorkflow(ctx context.Context, id uuid.UUID) error
	FailWorkflow(ctx context.Context, id uuid.UUID, kind, summary string) error

	ListFindingsByExecution(ctx context.Context, executionID uuid.UUID) ([]db.Finding, error)
	ListHypothesesByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]db.Hypothesis, error)
	CreateHypothesis(ctx context.Context, h *db.Hypothesis) error
	CreateContradiction(ctx context.Context, c *db.Contradiction) error
	CreateGap(ctx context.Context, g *db.Gap) error
	CreateInvestigationTask(ctx context.Context, t *db.InvestigationTask) error
	CreateVerdict(ctx context.Context, v *db.CaseVerdict) error
}

/* Canceller force-rejects a case's pending confirmations */
type Canceller interface {
	ForceRejectCase(ctx context.Context, caseID uuid.UUID, reason string) int
}

/* Publisher is the event fan-out the orchestrator writes to */
type Publisher interface {
	Publish(caseID uuid.UUID, eventType string, payload map[string]interface{})
	DropCase(caseID uuid.UUID)
}

/* Orchestrator owns Workflow rows and drives stage transitions */
type Orchestrator struct {
	store     Store
	runner    *agent.Runner
	publisher Publisher
	broker    Canceller

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

/* NewOrchestrator creates a pipeline orchestrator */
func NewOrchestrator(store Store, runner *agent.Runner, publisher Publisher, broker Canceller) *Orchestrator {
	return &Orchestrator{
		store:     store,
		runner:    runner,
		publisher: publisher,
		broker:    broker,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

/* RunWorkflow executes one full investigation run for a case. Blocks
 * until the workflow reaches DONE or FAILED. */
func (o *Orchestrator) RunWorkflow(ctx context.Context, caseID uuid.UUID, user string) (*db.Workflow, error) {
	started := time.Now()

	c, err := o.store.GetCaseByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	/* The case still points at the previous run here. Hypotheses from
	 * that run carry forward into this one's domain prompts. */
	var priorWorkflowID *uuid.UUID
	if c.LatestWorkflowID != nil {
		id := *c.LatestWorkflowID
		priorWorkflowID = &id
	}

	workflow := &db.Workflow{CaseID: caseID, Stage: db.StageCreated}
	if err := o.store.CreateWorkflow(ctx, workflow); err != nil {
		return nil, err
	}
	if err := o.store.SetLatestWorkflow(ctx, caseID, workflow.ID); err != nil {
		return nil, err
	}
	if err := o.store.UpdateCaseStatus(ctx, caseID, db.CaseAnalyzing); err != nil {
		return nil, err
	}

	ctx = metrics.WithCaseIDLogContext(ctx, caseID)
	ctx = metrics.WithWorkflowIDLogContext(ctx, workflow.ID)

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[workflow.ID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.cancels, workflow.ID)
		o.mu.Unlock()
	}()

	if err := o.run(runCtx, c, workflow, user, priorWorkflowID); err != nil {
		o.failWorkflow(ctx, workflow, err)
		metrics.RecordWorkflowCompleted("failed", time.Since(started))
		return workflow, err
	}

	if err := o.store.CompleteWorkflow(ctx, workflow.ID); err != nil {
		return workflow, err
	}
	if err := o.store.UpdateCaseStatus(ctx, c.ID, db.CaseOpen); err != nil {
		return workflow, err
	}
	workflow.Stage = db.StageDone
	o.publishStage(c.ID, workflow.ID, db.StageDone)
	metrics.RecordWorkflowCompleted("done", time.Since(started))

	metrics.InfoWithContext(ctx, "Workflow completed", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return workflow, nil
}

func (o *Orchestrator) run(ctx context.Context, c *db.Case, workflow *db.Workflow, user string,
	priorWorkflowID *uuid.UUID) error {

	files, err := o.store.ListCaseFiles(ctx, c.ID)
	if err != nil {
		return reliability.New(reliability.KindWorkflowFatal, "failed to load case files", err)
	}
	originals := filterOriginals(files)

	/* CREATED -> TRIAGING */
	if err := o.transition(ctx, c.ID, workflow, db.StageTriaging); err != nil {
		return err
	}

	triage, err := o.runTriage(ctx, c, workflow, originals)
	if err != nil {
		return err
	}

	/* TRIAGING -> ROUTED */
	if err := o.transition(ctx, c.ID, workflow, db.StageRouted); err != nil {
		return err
	}

	assignments := resolveAssignments(triage.Routing, originals)
	prior := o.loadPriorHypotheses(ctx, priorWorkflowID)

	/* ROUTED -> ANALYZING. An empty routing map proceeds straight
	 * through with zero domain tasks. */
	if err := o.transition(ctx, c.ID, workflow, db.StageAnalyzing); err != nil {
		return err
	}

	results, err := o.runDomainTasks(ctx, c, workflow, user, assignments, prior, triage.Notes)
	if err != nil {
		return err
	}

	/* ANALYZING -> SYNTHESIZING: unconditional once the barrier
	 * clears, failed tasks contributed nil results. */
	if err := o.transition(ctx, c.ID, workflow, db.StageSynthesizing); err != nil {
		return err
	}

	if err := o.runSynthesis(ctx, c, workflow, results); err != nil {
		return err
	}

	return nil
}

/* assignment is one routed domain task */
type assignment struct {
	role  string
	files []db.CaseFile
}

/* domainResult pairs a role with its runner outcome, nil when the task
 * produced nothing. */
type domainResult struct {
	role   string
	result *agent.RunResult
}

/* runDomainTasks spawns one concurrent task per assignment and blocks
 * until every task is terminal. Domain failures do not propagate, with
 * one exception: an agent state violation aborts the workflow. */
func (o *Orchestrator) runDomainTasks(ctx context.Context, c *db.Case, workflow *db.Workflow,
	user string, assignments []assignment, priorHypotheses []string, contextInjection string) ([]domainResult, error) {

	results := make([]domainResult, len(assignments))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range assignments {
		i, a := i, a
		g.Go(func() error {
			taskCtx := metrics.WithRoleLogContext(gctx, a.role)
			res, err := o.runner.Run(taskCtx, agent.RunInput{
				Case:             c,
				Workflow:         workflow,
				User:             user,
				Role:             a.role,
				Files:            a.files,
				PriorHypotheses:  priorHypotheses,
				ContextInjection: contextInjection,
			})
			if err != nil {
				if fatalDomainError(err) {
					return err
				}
				/* Unexpected persistence failure: log and fail open,
				 * the task simply contributes nothing. */
				metrics.ErrorWithContext(taskCtx, "Domain task errored", err, map[string]interface{}{
					"role": a.role,
				})
				return nil
			}
			results[i] = domainResult{role: a.role, result: res}
			return nil
		})
	}

	/* Hard barrier: synthesis never observes a running task. The group
	 * funcs return nil on recoverable failures so one task cannot
	 * cancel its peers. */
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

/* fatalDomainError reports whether a domain task error must fail the
 * workflow instead of failing open. A reused agent handle means the
 * runner's own bookkeeping is broken. */
func fatalDomainError(err error) bool {
	return reliability.KindOf(err) == reliability.KindAgentStateViolation
}

/* loadPriorHypotheses pulls the previous run's hypotheses so this run's
 * domain agents build on earlier analysis. Fails open: a load error
 * just means no continuity. */
func (o *Orchestrator) loadPriorHypotheses(ctx context.Context, priorWorkflowID *uuid.UUID) []string {
	if priorWorkflowID == nil {
		return nil
	}
	hs, err := o.store.ListHypothesesByWorkflow(ctx, *priorWorkflowID)
	if err != nil {
		metrics.WarnWithContext(ctx, "Failed to load prior hypotheses", map[string]interface{}{
			"prior_workflow_id": priorWorkflowID.String(),
			"error":             err.Error(),
		})
		return nil
	}
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Statement
	}
	return out
}

/* Cancel aborts a running workflow: the run context is cancelled,
 * pending confirmations are force-rejected, and the case's observers
 * are dropped. Returns false when the workflow is not running. */
func (o *Orchestrator) Cancel(ctx context.Context, caseID, workflowID uuid.UUID, reason string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[workflowID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	cancel()
	if o.broker != nil {
		o.broker.ForceRejectCase(ctx, caseID, reason)
	}
	if o.publisher != nil {
		o.publisher.DropCase(caseID)
	}

	metrics.InfoWithContext(ctx, "Workflow cancelled", map[string]interface{}{
		"workflow_id": workflowID.String(),
		"reason":      reason,
	})
	return true
}

func (o *Orchestrator) transition(ctx context.Context, caseID uuid.UUID, workflow *db.Workflow, stage string) error {
	if err := ctx.Err(); err != nil {
		return reliability.New(reliability.KindWorkflowFatal,
			fmt.Sprintf("workflow cancelled before stage transition: stage='%s'", stage), err)
	}
	if err := o.store.UpdateWorkflowStage(ctx, workflow.ID, stage); err != nil {
		return reliability.New(reliability.KindWorkflowFatal,
			fmt.Sprintf("stage transition persistence failed: stage='%s'", stage), err)
	}
	workflow.Stage = stage
	metrics.RecordStageTransition(stage)
	o.publishStage(caseID, workflow.ID, stage)
	return nil
}

func (o *Orchestrator) publishStage(caseID, workflowID uuid.UUID, stage string) {
	if o.publisher != nil {
		o.publisher.Publish(caseID, "stage_changed", map[string]interface{}{
			"workflow_id": workflowID.String(),
			"stage":       stage,
		})
	}
}

func (o *Orchestrator) failWorkflow(ctx context.Context, workflow *db.Workflow, cause error) {
	kind := reliability.KindOf(cause)
	lastStage := workflow.Stage
	if err := o.store.FailWorkflow(ctx, workflow.ID, string(kind), cause.Error()); err != nil {
		metrics.ErrorWithContext(ctx, "Failed to record workflow failure", err, map[string]interface{}{
			"workflow_id": workflow.ID.String(),
		})
	}
	if err := o.store.UpdateCaseStatus(ctx, workflow.CaseID, db.CaseError); err != nil {
		metrics.ErrorWithContext(ctx, "Failed to mark case errored", err, map[string]interface{}{
			"case_id": workflow.CaseID.String(),
		})
	}
	workflow.Stage = db.StageFailed
	metrics.RecordStageTransition(db.StageFailed)
	if o.publisher != nil {
		o.publisher.Publish(workflow.CaseID, "workflow_failed", map[string]interface{}{
			"workflow_id":   workflow.ID.String(),
			"stage":         lastStage,
			"error_kind":    string(kind),
			"error_summary": cause.Error(),
		})
	}
}

/* filterOriginals drops duplicate files, analysis runs over originals
 * only. */
func filterOriginals(files []db.CaseFile) []db.CaseFile {
	out := make([]db.CaseFile, 0, len(files))
	for _, f := range files {
		if f.DuplicateOf == nil {
			out = append(out, f)
		}
	}
	return out
}

/* resolveAssignments turns the routing map into runnable tasks,
 * dropping unknown roles and file ids that do not belong to the case. */
func resolveAssignments(routing map[string][]string, files []db.CaseFile) []assignment {
	byID := make(map[string]db.CaseFile, len(files))
	for _, f := range files {
		byID[f.ID.String()] = f
	}

	var out []assignment
	for role, ids := range routing {
		if !agent.KnownDomainRole(role) {
			continue
		}
		var group []db.CaseFile
		for _, id := range ids {
			if f, ok := byID[id]; ok {
				group = append(group, f)
			}
		}
		if len(group) > 0 {
			out = append(out, assignment{role: role, files: group})
		}
	}
	return out
}
