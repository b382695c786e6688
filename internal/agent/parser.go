/*-------------------------------------------------------------------------
 *
 * parser.go
 *    Model output parsing for CaseTrace
 *
 * Models wrap JSON in markdown fences more often than not, and
 * truncated generations frequently lose the closing fence. Extraction
 * is therefore tolerant: an unclosed fence yields the trailing
 * fragment rather than nothing.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/agent/parser.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"strings"
	"time"

	"github.com/casetrace/CaseTrace/internal/llm"
)

const maxThoughtLen = 2000

/* ThinkingTrace is one audit record of a thought-flagged segment */
type ThinkingTrace struct {
	Agent     string
	Thought   string
	Timestamp time.Time
}

/* ExtractJSON finds the JSON candidate in model output text.
 *
 * Scan order: a ```json fenced block, then a bare ``` fence, then raw
 * text starting at the first '{'. An opening fence with no closing
 * fence returns everything after the fence, trimmed. Returns ok=false
 * only when no JSON-like structure exists at all. */
func ExtractJSON(text string) (string, bool) {
	if candidate, found := extractFenced(text, "```json"); found {
		return candidate, true
	}
	if candidate, found := extractFenced(text, "```"); found {
		return candidate, true
	}

	if idx := strings.Index(text, "{"); idx >= 0 {
		return strings.TrimSpace(text[idx:]), true
	}

	return "", false
}

func extractFenced(text, opener string) (string, bool) {
	start := strings.Index(text, opener)
	if start < 0 {
		return "", false
	}
	after := text[start+len(opener):]

	end := strings.Index(after, "```")
	if end < 0 {
		/* Truncated generation: the fragment after the opener is the
		 * best candidate available. */
		return strings.TrimSpace(after), true
	}
	return strings.TrimSpace(after[:end]), true
}

/* ExtractUsage sums token usage over generation events. Events without
 * usage metadata contribute zero. Sums are taken verbatim, never
 * recomputed from text length. */
func ExtractUsage(events []llm.Event) (int, int) {
	var inputTokens, outputTokens int
	for _, ev := range events {
		if ev.Usage == nil {
			continue
		}
		inputTokens += ev.Usage.InputTokens
		outputTokens += ev.Usage.OutputTokens
	}
	return inputTokens, outputTokens
}

/* ExtractThinkingTraces collects thought-flagged segments in event
 * order, truncating each to the audit limit. */
func ExtractThinkingTraces(agentName string, events []llm.Event) []ThinkingTrace {
	var traces []ThinkingTrace
	for _, ev := range events {
		if !ev.Thought || ev.Text == "" {
			continue
		}
		thought := ev.Text
		if len(thought) > maxThoughtLen {
			thought = thought[:maxThoughtLen]
		}
		traces = append(traces, ThinkingTrace{
			Agent:     agentName,
			Thought:   thought,
			Timestamp: time.Now().UTC(),
		})
	}
	return traces
}

/* CollectText concatenates non-thought text segments into the final
 * output text. */
func CollectText(events []llm.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Thought {
			continue
		}
		b.WriteString(ev.Text)
	}
	return b.String()
}
