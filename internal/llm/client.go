/*-------------------------------------------------------------------------
 *
 * client.go
 *    Generation backend via database SQL functions
 *
 * Model invocations go through SQL functions exposed by the database's
 * inference extension. casetrace_llm_generate returns one row per
 * generation event as JSONB, which streams incrementally over a
 * cursor-style row scan.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/llm/client.go
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* Client invokes models through database SQL functions */
type Client struct {
	db      *sqlx.DB
	timeout time.Duration
}

/* NewClient creates a new SQL-function generation client */
func NewClient(db *sqlx.DB, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{db: db, timeout: timeout}
}

const generateQuery = `SELECT casetrace_llm_generate($1, $2::jsonb, $3, $4) AS event`

/* Generate invokes the model and streams events on the returned
 * channel. The channel is closed when the row stream ends. */
func (c *Client) Generate(ctx context.Context, req Request) (<-chan Event, error) {
	partsJSON, err := json.Marshal(req.Parts)
	if err != nil {
		return nil, reliability.New(reliability.KindWorkflowFatal,
			fmt.Sprintf("request parts marshaling failed: part_count=%d", len(req.Parts)), err)
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)

	rows, err := c.db.QueryContext(genCtx, generateQuery,
		req.Instruction, partsJSON, req.Model, req.ThinkingEffort)
	if err != nil {
		cancel()
		if genCtx.Err() == context.DeadlineExceeded {
			return nil, reliability.New(reliability.KindModelTimeout,
				fmt.Sprintf("model call timed out: model='%s', timeout=%s", req.Model, c.timeout), err)
		}
		return nil, reliability.New(reliability.KindModelUnavailable,
			fmt.Sprintf("model call failed: model='%s', function='casetrace_llm_generate'", req.Model), err)
	}

	events := make(chan Event)
	go func() {
		defer cancel()
		defer close(events)
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				metrics.ErrorWithContext(ctx, "Generation event scan failed", err, map[string]interface{}{
					"model": req.Model,
				})
				return
			}

			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				metrics.WarnWithContext(ctx, "Skipping malformed generation event", map[string]interface{}{
					"model": req.Model,
					"error": err.Error(),
				})
				continue
			}

			select {
			case events <- ev:
			case <-genCtx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			metrics.ErrorWithContext(ctx, "Generation event stream ended with error", err, map[string]interface{}{
				"model": req.Model,
			})
		}
	}()

	return events, nil
}
