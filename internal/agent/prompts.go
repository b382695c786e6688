/*-------------------------------------------------------------------------
 *
 * prompts.go
 *    Role prompt templates for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/agent/prompts.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"fmt"
	"strings"
)

/* Agent roles */
const (
	RoleTriage    = "triage"
	RoleEvidence  = "evidence"
	RoleFinancial = "financial"
	RoleLegal     = "legal"
	RoleSynthesis = "synthesis"
)

const outputContract = `Respond with a single JSON object inside a ` + "```json" + ` fenced block. No prose outside the block.`

const triagePromptTemplate = `You are the triage agent for a case investigation system.
Review the uploaded case files listed below and assign each file to the
domain agent best suited to analyze it. Available roles: evidence,
financial, legal. A file may appear in multiple groups. Files that no
role can usefully analyze may be omitted.

%s

Output schema:
{"routing": {"<role>": ["<file_id>", ...], ...}, "notes": "<optional>"}

` + outputContract

const triageStricterSuffix = `

Your previous response could not be parsed. Output ONLY the JSON object,
with a "routing" key mapping role names to arrays of file id strings.
Do not include any other text.`

var domainPrompts = map[string]string{
	RoleEvidence: `You are the evidence analysis agent for a case investigation system.
Examine the attached case files for factual evidence: events, actors,
physical items, communications, timelines. Produce findings with exact
citations into the source files.`,

	RoleFinancial: `You are the financial analysis agent for a case investigation system.
Examine the attached case files for financial activity: transactions,
accounts, transfers, valuations, irregularities. Produce findings with
exact citations into the source files.`,

	RoleLegal: `You are the legal analysis agent for a case investigation system.
Examine the attached case files for legally significant content:
obligations, agreements, potential violations, jurisdictional facts.
Produce findings with exact citations into the source files.`,
}

const domainOutputSchema = `
Output schema:
{"findings": [{"category": "<string>", "title": "<string>",
  "narrative": "<string>", "confidence": <0..1>,
  "citations": [{"file_id": "<id>", "locator": "page:N|ts:MM:SS|region:<desc>",
    "excerpt": "<verbatim span, max 500 chars>"}],
  "related_entities": ["<string>", ...]}],
 "summary": "<string>",
 "proposed_action": "<omit unless an irreversible action needs human sign-off>"}

Citation rules: every finding needs at least one citation. Excerpts
must be verbatim contiguous spans from the source, never paraphrased,
never joined with ellipses.

` + outputContract

const synthesisPromptTemplate = `You are the synthesis agent for a case investigation system.
Aggregate the domain findings below into case-level conclusions. Weigh
agreement and conflict between findings, identify what is still
missing, and recommend follow-up work.

%s

Output schema:
{"hypotheses": [{"statement": "<string>", "confidence": <0..1>,
   "supporting_findings": ["<finding title>", ...]}],
 "contradictions": [{"description": "<string>", "finding_refs": ["<finding title>", ...]}],
 "gaps": [{"description": "<string>", "suggested_action": "<optional>"}],
 "tasks": [{"description": "<string>", "priority": <1..5>}],
 "verdict": {"summary": "<string>", "assessment": "<string>", "confidence": <0..1>}}

` + outputContract

/* BuildTriagePrompt renders the triage instruction for a file listing */
func BuildTriagePrompt(fileListing string, stricter bool) string {
	prompt := fmt.Sprintf(triagePromptTemplate, fileListing)
	if stricter {
		prompt += triageStricterSuffix
	}
	return prompt
}

/* BuildDomainPrompt renders a domain role instruction. Prior-stage
 * hypotheses and orchestrator context are appended when present. */
func BuildDomainPrompt(role string, priorHypotheses []string, contextInjection string) (string, error) {
	base, ok := domainPrompts[role]
	if !ok {
		return "", fmt.Errorf("unknown domain role: role='%s'", role)
	}

	var b strings.Builder
	b.WriteString(base)
	if len(priorHypotheses) > 0 {
		b.WriteString("\n\nWorking hypotheses from earlier analysis:\n")
		for _, h := range priorHypotheses {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	if contextInjection != "" {
		b.WriteString("\n\nAdditional context from the orchestrator:\n")
		b.WriteString(contextInjection)
	}
	b.WriteString("\n")
	b.WriteString(domainOutputSchema)
	return b.String(), nil
}

/* BuildSynthesisPrompt renders the synthesis instruction over the
 * collected findings digest. */
func BuildSynthesisPrompt(findingsDigest string) string {
	return fmt.Sprintf(synthesisPromptTemplate, findingsDigest)
}

/* KnownDomainRole reports whether a routing key names a runnable
 * domain role. */
func KnownDomainRole(role string) bool {
	_, ok := domainPrompts[role]
	return ok
}
