/*-------------------------------------------------------------------------
 *
 * processor.go
 *    Background job processing for CaseTrace
 *
 * Dispatches claimed jobs by type. workflow_run drives a full
 * investigation workflow through the orchestrator.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/jobs/processor.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"
	"fmt"

	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/pipeline"
)

type Processor struct {
	orchestrator *pipeline.Orchestrator
}

func NewProcessor(orchestrator *pipeline.Orchestrator) *Processor {
	return &Processor{orchestrator: orchestrator}
}

/* Process runs one claimed job to completion */
func (p *Processor) Process(ctx context.Context, job *db.Job) (db.JSONBMap, error) {
	switch job.Type {
	case "workflow_run":
		return p.processWorkflowRun(ctx, job)
	default:
		return nil, fmt.Errorf("unknown job type: type='%s', job_id=%d", job.Type, job.ID)
	}
}

func (p *Processor) processWorkflowRun(ctx context.Context, job *db.Job) (db.JSONBMap, error) {
	if job.CaseID == nil {
		return nil, fmt.Errorf("workflow_run job missing case_id: job_id=%d", job.ID)
	}

	user, _ := job.Payload["user"].(string)

	metrics.InfoWithContext(ctx, "Starting workflow run", map[string]interface{}{
		"job_id":  job.ID,
		"case_id": job.CaseID.String(),
	})

	wf, err := p.orchestrator.RunWorkflow(ctx, *job.CaseID, user)
	if err != nil && wf == nil {
		/* The workflow never started; worth a retry */
		return nil, fmt.Errorf("workflow run failed: case_id='%s', error=%w", job.CaseID.String(), err)
	}

	/* A workflow that ran and reached FAILED is recorded on its own
	 * row; re-running the job would start a fresh workflow, so the
	 * job itself completes. */
	result := db.JSONBMap{
		"workflow_id": wf.ID.String(),
		"stage":       wf.Stage,
	}
	if wf.ErrorKind != nil {
		result["error_kind"] = *wf.ErrorKind
	}
	return result, nil
}
