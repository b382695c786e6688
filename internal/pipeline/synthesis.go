/*-------------------------------------------------------------------------
 *
 * synthesis.go
 *    Synthesis stage for CaseTrace
 *
 * Aggregates domain findings into case-level hypotheses,
 * contradictions, gaps, follow-up tasks and a verdict. Runs after the
 * ANALYZING barrier, over whatever the domain tasks produced.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/pipeline/synthesis.go
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/casetrace/CaseTrace/internal/agent"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* runSynthesis drives the synthesis agent and persists its artifacts.
 * With zero findings the model is skipped and a default inconclusive
 * verdict is written. */
func (o *Orchestrator) runSynthesis(ctx context.Context, c *db.Case, workflow *db.Workflow,
	results []domainResult) error {

	digest, findingCount := o.buildFindingsDigest(ctx, results)

	if findingCount == 0 {
		metrics.InfoWithContext(ctx, "Synthesis short-circuited, no findings to aggregate", nil)
		verdict := &db.CaseVerdict{
			CaseID:     c.ID,
			WorkflowID: workflow.ID,
			Summary:    "No findings were produced by the analysis stage.",
			Assessment: "inconclusive",
			Confidence: 0,
		}
		if err := o.store.CreateVerdict(ctx, verdict); err != nil {
			return reliability.New(reliability.KindWorkflowFatal, "default verdict persistence failed", err)
		}
		return nil
	}

	instruction := agent.BuildSynthesisPrompt(digest)

	inv, err := o.runner.Invoke(ctx, agent.RoleSynthesis, c.ID, workflow.ID, nil, instruction, nil)
	if err != nil {
		return reliability.New(reliability.KindWorkflowFatal, "synthesis invocation failed", err)
	}

	out, verr := agent.ValidateSynthesisOutput(inv.Candidate)
	if verr != nil {
		o.runner.FinalizeFailure(ctx, inv, verr)
		return reliability.New(reliability.KindWorkflowFatal, "synthesis output rejected", verr)
	}

	parsed, merr := db.StructToMap(out)
	if merr != nil {
		o.runner.FinalizeFailure(ctx, inv, merr)
		return reliability.New(reliability.KindWorkflowFatal, "synthesis output conversion failed", merr)
	}
	if err := o.runner.FinalizeSuccess(ctx, inv, parsed); err != nil {
		return reliability.New(reliability.KindWorkflowFatal, "synthesis persistence failed", err)
	}

	if err := o.persistSynthesis(ctx, c, workflow, out); err != nil {
		return err
	}

	o.publisher.Publish(c.ID, "synthesis_completed", map[string]interface{}{
		"workflow_id":      workflow.ID.String(),
		"hypothesis_count": len(out.Hypotheses),
		"verdict":          out.Verdict.Assessment,
	})
	return nil
}

/* buildFindingsDigest renders every successful domain result into the
 * synthesis prompt input, reloading findings so flagged ones appear
 * with their flag. */
func (o *Orchestrator) buildFindingsDigest(ctx context.Context, results []domainResult) (string, int) {
	var b strings.Builder
	count := 0

	for _, r := range results {
		if r.result == nil {
			continue
		}
		findings, err := o.store.ListFindingsByExecution(ctx, r.result.ExecutionID)
		if err != nil {
			metrics.WarnWithContext(ctx, "Failed to reload findings for digest", map[string]interface{}{
				"execution_id": r.result.ExecutionID.String(),
				"error":        err.Error(),
			})
			continue
		}
		if len(findings) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s findings\n", r.role)
		if r.result.SkipReason != "" {
			fmt.Fprintf(&b, "(proposed action skipped: %s)\n", r.result.SkipReason)
		}
		for _, f := range findings {
			count++
			fmt.Fprintf(&b, "- [%s] %s (confidence %.2f): %s\n", f.Category, f.Title, f.Confidence, f.Narrative)
			if f.CitationFlagged && f.FlagReason != nil {
				fmt.Fprintf(&b, "  citation flag: %s\n", *f.FlagReason)
			}
		}
		b.WriteString("\n")
	}

	return b.String(), count
}

func (o *Orchestrator) persistSynthesis(ctx context.Context, c *db.Case, workflow *db.Workflow,
	out *agent.SynthesisOutput) error {

	for _, h := range out.Hypotheses {
		row := &db.Hypothesis{
			CaseID:             c.ID,
			WorkflowID:         workflow.ID,
			Statement:          h.Statement,
			Confidence:         h.Confidence,
			SupportingFindings: pq.StringArray(h.SupportingFindings),
		}
		if err := o.store.CreateHypothesis(ctx, row); err != nil {
			return reliability.New(reliability.KindWorkflowFatal, "hypothesis persistence failed", err)
		}
	}

	for _, cd := range out.Contradictions {
		row := &db.Contradiction{
			CaseID:      c.ID,
			WorkflowID:  workflow.ID,
			Description: cd.Description,
			FindingRefs: pq.StringArray(cd.FindingRefs),
		}
		if err := o.store.CreateContradiction(ctx, row); err != nil {
			return reliability.New(reliability.KindWorkflowFatal, "contradiction persistence failed", err)
		}
	}

	for _, g := range out.Gaps {
		row := &db.Gap{
			CaseID:      c.ID,
			WorkflowID:  workflow.ID,
			Description: g.Description,
		}
		if g.SuggestedAction != "" {
			action := g.SuggestedAction
			row.SuggestedAction = &action
		}
		if err := o.store.CreateGap(ctx, row); err != nil {
			return reliability.New(reliability.KindWorkflowFatal, "gap persistence failed", err)
		}
	}

	for _, t := range out.Tasks {
		row := &db.InvestigationTask{
			CaseID:      c.ID,
			WorkflowID:  workflow.ID,
			Description: t.Description,
			Priority:    t.Priority,
		}
		if err := o.store.CreateInvestigationTask(ctx, row); err != nil {
			return reliability.New(reliability.KindWorkflowFatal, "task persistence failed", err)
		}
	}

	verdict := &db.CaseVerdict{
		CaseID:     c.ID,
		WorkflowID: workflow.ID,
		Summary:    out.Verdict.Summary,
		Assessment: out.Verdict.Assessment,
		Confidence: out.Verdict.Confidence,
	}
	if err := o.store.CreateVerdict(ctx, verdict); err != nil {
		return reliability.New(reliability.KindWorkflowFatal, "verdict persistence failed", err)
	}

	return nil
}
