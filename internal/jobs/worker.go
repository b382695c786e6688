/*-------------------------------------------------------------------------
 *
 * worker.go
 *    Background job worker for CaseTrace
 *
 * Provides a worker pool that polls the queue and runs claimed jobs
 * with graceful shutdown support.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/jobs/worker.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

type Worker struct {
	queue     *Queue
	processor *Processor
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	pollEvery time.Duration
}

func NewWorker(queue *Queue, processor *Processor, workers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		queue:     queue,
		processor: processor,
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		pollEvery: 1 * time.Second,
	}
}

func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.work()
	}
}

func (w *Worker) work() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			job, err := w.queue.Claim(w.ctx)
			if err != nil || job == nil {
				continue
			}

			w.processJob(job)
		}
	}
}

func (w *Worker) processJob(job *db.Job) {
	result, err := w.processor.Process(w.ctx, job)

	if err != nil {
		metrics.RecordJobProcessed(job.Type, "failed")
		if ferr := w.queue.Fail(w.ctx, job.ID, err.Error()); ferr != nil {
			metrics.ErrorWithContext(w.ctx, "Failed to record job failure", ferr, map[string]interface{}{
				"job_id": job.ID,
			})
		}
		return
	}

	metrics.RecordJobProcessed(job.Type, "done")
	if cerr := w.queue.Complete(w.ctx, job.ID, result); cerr != nil {
		metrics.ErrorWithContext(w.ctx, "Failed to record job completion", cerr, map[string]interface{}{
			"job_id": job.ID,
		})
	}
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}
