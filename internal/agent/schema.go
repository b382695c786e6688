/*-------------------------------------------------------------------------
 *
 * schema.go
 *    Role output schemas and structural validation for CaseTrace
 *
 * Each agent role has a fixed output shape. Validation is structural:
 * required fields present with the right types. Citation rules are
 * checked after structural validation and flag the finding rather
 * than dropping it.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/agent/schema.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/casetrace/CaseTrace/internal/reliability"
)

const maxExcerptLen = 500

/* ValidationError carries the offending field and the raw candidate
 * so failed outputs stay diagnosable. */
type ValidationError struct {
	Field   string
	Detail  string
	RawText string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: field='%s', detail='%s'", e.Field, e.Detail)
}

/* OutputCitation mirrors the Citation wire shape inside agent output */
type OutputCitation struct {
	FileID  string `json:"file_id"`
	Locator string `json:"locator"`
	Excerpt string `json:"excerpt"`
}

/* OutputFinding is one analytical unit inside a domain output */
type OutputFinding struct {
	Category        string           `json:"category"`
	Title           string           `json:"title"`
	Narrative       string           `json:"narrative"`
	Confidence      float64          `json:"confidence"`
	Citations       []OutputCitation `json:"citations"`
	RelatedEntities []string         `json:"related_entities"`
}

/* DomainOutput is the validated result of one domain agent run */
type DomainOutput struct {
	Findings       []OutputFinding `json:"findings"`
	Summary        string          `json:"summary"`
	ProposedAction string          `json:"proposed_action,omitempty"`
}

/* TriageOutput maps agent roles to the file IDs routed to each */
type TriageOutput struct {
	Routing map[string][]string `json:"routing"`
	Notes   string              `json:"notes,omitempty"`
}

/* SynthesisHypothesis is one case-level hypothesis */
type SynthesisHypothesis struct {
	Statement          string   `json:"statement"`
	Confidence         float64  `json:"confidence"`
	SupportingFindings []string `json:"supporting_findings"`
}

/* SynthesisContradiction is one cross-finding conflict */
type SynthesisContradiction struct {
	Description string   `json:"description"`
	FindingRefs []string `json:"finding_refs"`
}

/* SynthesisGap is one identified evidentiary gap */
type SynthesisGap struct {
	Description     string `json:"description"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

/* SynthesisTask is one recommended follow-up */
type SynthesisTask struct {
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

/* SynthesisVerdict is the overall case assessment */
type SynthesisVerdict struct {
	Summary    string  `json:"summary"`
	Assessment string  `json:"assessment"`
	Confidence float64 `json:"confidence"`
}

/* SynthesisOutput is the validated result of the synthesis agent */
type SynthesisOutput struct {
	Hypotheses     []SynthesisHypothesis    `json:"hypotheses"`
	Contradictions []SynthesisContradiction `json:"contradictions"`
	Gaps           []SynthesisGap           `json:"gaps"`
	Tasks          []SynthesisTask          `json:"tasks"`
	Verdict        SynthesisVerdict         `json:"verdict"`
}

/* ValidateDomainOutput decodes and structurally validates a domain
 * agent candidate. */
func ValidateDomainOutput(candidate string) (*DomainOutput, error) {
	var out DomainOutput
	if err := strictDecode(candidate, &out); err != nil {
		return nil, reliability.New(reliability.KindSchemaValidationError, "domain output is not valid JSON",
			&ValidationError{Field: "(root)", Detail: err.Error(), RawText: candidate})
	}
	if out.Findings == nil {
		return nil, reliability.New(reliability.KindSchemaValidationError, "domain output missing findings",
			&ValidationError{Field: "findings", Detail: "required field absent", RawText: candidate})
	}
	for i, f := range out.Findings {
		if f.Title == "" {
			return nil, reliability.New(reliability.KindSchemaValidationError, "finding missing title",
				&ValidationError{Field: fmt.Sprintf("findings[%d].title", i), Detail: "required field absent or empty", RawText: candidate})
		}
		if f.Narrative == "" {
			return nil, reliability.New(reliability.KindSchemaValidationError, "finding missing narrative",
				&ValidationError{Field: fmt.Sprintf("findings[%d].narrative", i), Detail: "required field absent or empty", RawText: candidate})
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			return nil, reliability.New(reliability.KindSchemaValidationError, "finding confidence out of range",
				&ValidationError{Field: fmt.Sprintf("findings[%d].confidence", i), Detail: fmt.Sprintf("value %v outside [0,1]", f.Confidence), RawText: candidate})
		}
	}
	return &out, nil
}

/* ValidateTriageOutput decodes and structurally validates the triage
 * routing map. */
func ValidateTriageOutput(candidate string) (*TriageOutput, error) {
	var out TriageOutput
	if err := strictDecode(candidate, &out); err != nil {
		return nil, reliability.New(reliability.KindSchemaValidationError, "triage output is not valid JSON",
			&ValidationError{Field: "(root)", Detail: err.Error(), RawText: candidate})
	}
	if out.Routing == nil {
		return nil, reliability.New(reliability.KindSchemaValidationError, "triage output missing routing map",
			&ValidationError{Field: "routing", Detail: "required field absent", RawText: candidate})
	}
	for role, files := range out.Routing {
		if role == "" {
			return nil, reliability.New(reliability.KindSchemaValidationError, "triage routing has empty role key",
				&ValidationError{Field: "routing", Detail: "empty role key", RawText: candidate})
		}
		if files == nil {
			return nil, reliability.New(reliability.KindSchemaValidationError, "triage routing group is null",
				&ValidationError{Field: "routing." + role, Detail: "file group must be an array", RawText: candidate})
		}
	}
	return &out, nil
}

/* ValidateSynthesisOutput decodes and structurally validates the
 * synthesis result. */
func ValidateSynthesisOutput(candidate string) (*SynthesisOutput, error) {
	var out SynthesisOutput
	if err := strictDecode(candidate, &out); err != nil {
		return nil, reliability.New(reliability.KindSchemaValidationError, "synthesis output is not valid JSON",
			&ValidationError{Field: "(root)", Detail: err.Error(), RawText: candidate})
	}
	if out.Verdict.Summary == "" {
		return nil, reliability.New(reliability.KindSchemaValidationError, "synthesis output missing verdict summary",
			&ValidationError{Field: "verdict.summary", Detail: "required field absent or empty", RawText: candidate})
	}
	if out.Verdict.Confidence < 0 || out.Verdict.Confidence > 1 {
		return nil, reliability.New(reliability.KindSchemaValidationError, "verdict confidence out of range",
			&ValidationError{Field: "verdict.confidence", Detail: fmt.Sprintf("value %v outside [0,1]", out.Verdict.Confidence), RawText: candidate})
	}
	return &out, nil
}

var (
	pageLocatorRe      = regexp.MustCompile(`^page:\d+$`)
	timestampLocatorRe = regexp.MustCompile(`^ts:\d{1,3}:\d{2}$`)
	regionLocatorRe    = regexp.MustCompile(`^region:.+$`)
)

/* CheckCitations post-validates a finding's citations. Returns ok=true
 * when every citation is well formed, otherwise a reason describing the
 * first violation. Findings failing this check are flagged on
 * persistence, never dropped. */
func CheckCitations(f *OutputFinding) (bool, string) {
	if len(f.Citations) == 0 {
		return false, "finding has no citations"
	}
	for i, c := range f.Citations {
		if c.FileID == "" {
			return false, fmt.Sprintf("citation %d has no file_id", i)
		}
		if c.Excerpt == "" {
			return false, fmt.Sprintf("citation %d has empty excerpt", i)
		}
		if len(c.Excerpt) > maxExcerptLen {
			return false, fmt.Sprintf("citation %d excerpt exceeds %d characters", i, maxExcerptLen)
		}
		if strings.Contains(c.Excerpt, "...") || strings.Contains(c.Excerpt, "…") {
			return false, fmt.Sprintf("citation %d excerpt appears ellipsis-joined", i)
		}
		if !pageLocatorRe.MatchString(c.Locator) &&
			!timestampLocatorRe.MatchString(c.Locator) &&
			!regionLocatorRe.MatchString(c.Locator) {
			return false, fmt.Sprintf("citation %d locator '%s' matches no known format", i, c.Locator)
		}
	}
	return true, ""
}

func strictDecode(candidate string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(candidate))
	return dec.Decode(v)
}
