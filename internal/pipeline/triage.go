/*-------------------------------------------------------------------------
 *
 * triage.go
 *    Triage stage for CaseTrace
 *
 * Triage assigns case files to domain roles. Unlike domain tasks,
 * triage failure is workflow-fatal: one retry with a stricter
 * re-prompt, then TRIAGE_PARSE_ERROR.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/pipeline/triage.go
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/casetrace/CaseTrace/internal/agent"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* runTriage drives the triage agent. Returns the triage output with an
 * empty routing map when there are no files to route. The notes field
 * feeds the domain prompts as orchestrator context. */
func (o *Orchestrator) runTriage(ctx context.Context, c *db.Case, workflow *db.Workflow,
	files []db.CaseFile) (*agent.TriageOutput, error) {

	if len(files) == 0 {
		metrics.InfoWithContext(ctx, "Triage skipped, case has no files", nil)
		return &agent.TriageOutput{Routing: map[string][]string{}}, nil
	}

	listing := buildFileListing(files)

	for attempt, stricter := 0, false; attempt < 2; attempt, stricter = attempt+1, true {
		instruction := agent.BuildTriagePrompt(listing, stricter)

		inv, err := o.runner.Invoke(ctx, agent.RoleTriage, c.ID, workflow.ID, nil, instruction, files)
		if err != nil {
			if !reliability.IsRecoverable(err) {
				return nil, reliability.New(reliability.KindTriageParseError,
					"triage invocation failed unrecoverably", err)
			}
			continue
		}

		out, verr := agent.ValidateTriageOutput(inv.Candidate)
		if verr != nil {
			o.runner.FinalizeFailure(ctx, inv, verr)
			metrics.WarnWithContext(ctx, "Triage output rejected", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   verr.Error(),
			})
			continue
		}

		parsed, merr := db.StructToMap(out)
		if merr != nil {
			o.runner.FinalizeFailure(ctx, inv, merr)
			continue
		}
		if err := o.runner.FinalizeSuccess(ctx, inv, parsed); err != nil {
			return nil, reliability.New(reliability.KindWorkflowFatal, "triage persistence failed", err)
		}

		return out, nil
	}

	return nil, reliability.New(reliability.KindTriageParseError,
		fmt.Sprintf("triage produced no usable routing after retry: case_id='%s'", c.ID.String()), nil)
}

/* buildFileListing renders the triage prompt's file inventory */
func buildFileListing(files []db.CaseFile) string {
	var b strings.Builder
	b.WriteString("Case files:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- id=%s name=%q type=%s size=%d\n", f.ID.String(), f.FileName, f.MIMEType, f.SizeBytes)
	}
	return b.String()
}
