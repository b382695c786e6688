/*-------------------------------------------------------------------------
 *
 * types.go
 *    Generation backend types for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/llm/types.go
 *
 *-------------------------------------------------------------------------
 */

package llm

import "context"

/* Part is one content part of a generation request: inline text or a
 * pointer to stored file bytes. */
type Part struct {
	Text        string            `json:"text,omitempty"`
	FileName    string            `json:"file_name,omitempty"`
	MIMEType    string            `json:"mime_type,omitempty"`
	StoragePath string            `json:"storage_path,omitempty"`
	Data        []byte            `json:"data,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

/* Usage carries per-event token counts reported by the backend. Absent
 * fields decode to zero. */
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

/* Event is one incremental generation event. Thought marks reasoning
 * segments that are audit material, not final output. */
type Event struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought"`
	Usage   *Usage `json:"usage,omitempty"`
	Done    bool   `json:"done"`
}

/* Request describes one model invocation */
type Request struct {
	Instruction    string
	Parts          []Part
	Model          string
	ThinkingEffort string
}

/* Backend produces a stream of generation events for a request. The
 * returned channel is closed when generation completes, ctx
 * cancellation stops the stream early. */
type Backend interface {
	Generate(ctx context.Context, req Request) (<-chan Event, error)
}
