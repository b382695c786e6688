/*-------------------------------------------------------------------------
 *
 * parser_test.go
 *    Tests for model output parsing
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"testing"

	"github.com/casetrace/CaseTrace/internal/llm"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{
			"json fenced block",
			"Here is the result:\n```json\n{\"findings\": []}\n```\nDone.",
			`{"findings": []}`,
			true,
		},
		{
			"bare fenced block",
			"```\n{\"findings\": []}\n```",
			`{"findings": []}`,
			true,
		},
		{
			"raw json no fence",
			"preamble text {\"findings\": [{\"title\": \"x\"}]}",
			`{"findings": [{"title": "x"}]}`,
			true,
		},
		{
			"unclosed json fence returns trailing fragment",
			"```json\n{\"findings\": [",
			`{"findings": [`,
			true,
		},
		{
			"unclosed bare fence returns trailing fragment",
			"```\n{\"partial\":",
			`{"partial":`,
			true,
		},
		{
			"json fence preferred over earlier brace",
			"{not it} ```json\n{\"real\": true}\n```",
			`{"real": true}`,
			true,
		},
		{
			"no json at all",
			"the model refused to answer",
			"",
			false,
		},
		{
			"empty input",
			"",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractJSON(tt.text)
			if found != tt.found {
				t.Fatalf("ExtractJSON() found = %v, want %v", found, tt.found)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractUsage(t *testing.T) {
	events := []llm.Event{
		{Text: "a", Usage: &llm.Usage{InputTokens: 10, OutputTokens: 2}},
		{Text: "b"},
		{Text: "c", Usage: &llm.Usage{OutputTokens: 5}},
		{Done: true, Usage: &llm.Usage{InputTokens: 1}},
	}

	in, out := ExtractUsage(events)
	if in != 11 {
		t.Errorf("input tokens = %d, want 11", in)
	}
	if out != 7 {
		t.Errorf("output tokens = %d, want 7", out)
	}
}

func TestExtractUsageEmpty(t *testing.T) {
	in, out := ExtractUsage(nil)
	if in != 0 || out != 0 {
		t.Errorf("usage over no events = (%d, %d), want (0, 0)", in, out)
	}
}

func TestExtractThinkingTraces(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}

	events := []llm.Event{
		{Text: "visible output"},
		{Text: "first thought", Thought: true},
		{Text: string(long), Thought: true},
		{Text: "", Thought: true},
	}

	traces := ExtractThinkingTraces("evidence-abc-1", events)
	if len(traces) != 2 {
		t.Fatalf("trace count = %d, want 2", len(traces))
	}
	if traces[0].Thought != "first thought" {
		t.Errorf("first trace = %q", traces[0].Thought)
	}
	if len(traces[1].Thought) != maxThoughtLen {
		t.Errorf("long trace length = %d, want %d", len(traces[1].Thought), maxThoughtLen)
	}
	if traces[0].Agent != "evidence-abc-1" {
		t.Errorf("trace agent = %q", traces[0].Agent)
	}
}

func TestCollectText(t *testing.T) {
	events := []llm.Event{
		{Text: "final "},
		{Text: "internal reasoning", Thought: true},
		{Text: "answer"},
	}

	if got := CollectText(events); got != "final answer" {
		t.Errorf("CollectText() = %q, want %q", got, "final answer")
	}
}
