/*-------------------------------------------------------------------------
 *
 * orchestrator_test.go
 *    Tests for the workflow state machine
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/agent"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/llm"
	"github.com/casetrace/CaseTrace/internal/reliability"
)

/* fakeStore is an in-memory implementation of the orchestrator and
 * runner persistence surfaces. */
type fakeStore struct {
	mu sync.Mutex

	cases      map[uuid.UUID]*db.Case
	files      map[uuid.UUID][]db.CaseFile
	workflows  map[uuid.UUID]*db.Workflow
	executions map[uuid.UUID]*db.AgentExecution
	findings   []db.Finding
	hypotheses []db.Hypothesis
	verdicts   []db.CaseVerdict
	gaps       []db.Gap
	contras    []db.Contradiction
	tasks      []db.InvestigationTask

	stageLog []string

	/* runningAtSynthesis records executions still RUNNING when the
	 * stage moved to SYNTHESIZING, for the barrier property. */
	runningAtSynthesis int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:      make(map[uuid.UUID]*db.Case),
		files:      make(map[uuid.UUID][]db.CaseFile),
		workflows:  make(map[uuid.UUID]*db.Workflow),
		executions: make(map[uuid.UUID]*db.AgentExecution),
	}
}

func (s *fakeStore) GetCaseByID(_ context.Context, id uuid.UUID) (*db.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, errors.New("case not found")
	}
	return c, nil
}

func (s *fakeStore) UpdateCaseStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cases[id]; ok {
		c.Status = status
	}
	return nil
}

func (s *fakeStore) SetLatestWorkflow(_ context.Context, caseID, workflowID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cases[caseID]; ok {
		id := workflowID
		c.LatestWorkflowID = &id
	}
	return nil
}

func (s *fakeStore) ListCaseFiles(_ context.Context, caseID uuid.UUID) ([]db.CaseFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[caseID], nil
}

func (s *fakeStore) CreateWorkflow(_ context.Context, w *db.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	s.workflows[w.ID] = w
	return nil
}

func (s *fakeStore) UpdateWorkflowStage(_ context.Context, id uuid.UUID, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageLog = append(s.stageLog, stage)
	if stage == db.StageSynthesizing {
		for _, e := range s.executions {
			if e.Status == db.ExecutionRunning {
				s.runningAtSynthesis++
			}
		}
	}
	if w, ok := s.workflows[id]; ok {
		w.Stage = stage
	}
	return nil
}

func (s *fakeStore) CompleteWorkflow(_ context.Context, id uuid.UUID) error {
	return s.UpdateWorkflowStage(context.Background(), id, db.StageDone)
}

func (s *fakeStore) FailWorkflow(_ context.Context, id uuid.UUID, kind, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageLog = append(s.stageLog, db.StageFailed)
	if w, ok := s.workflows[id]; ok {
		w.Stage = db.StageFailed
		w.ErrorKind = &kind
		w.ErrorSummary = &summary
	}
	return nil
}

func (s *fakeStore) CreateExecution(_ context.Context, e *db.AgentExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = db.ExecutionRunning
	s.executions[e.ID] = e
	return nil
}

func (s *fakeStore) FinalizeExecutionSuccess(_ context.Context, id uuid.UUID, rawOutput string,
	parsed db.JSONBMap, inputTokens, outputTokens int, traces db.TraceList) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok || e.Status != db.ExecutionRunning {
		return false, nil
	}
	e.Status = db.ExecutionSuccess
	e.RawOutput = rawOutput
	e.ParsedOutput = parsed
	e.InputTokens = inputTokens
	e.OutputTokens = outputTokens
	e.ThinkingTraces = traces
	return true, nil
}

func (s *fakeStore) FinalizeExecutionFailure(_ context.Context, id uuid.UUID, rawOutput, errorMessage string,
	inputTokens, outputTokens int, traces db.TraceList) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok || e.Status != db.ExecutionRunning {
		return false, nil
	}
	e.Status = db.ExecutionFailed
	e.RawOutput = rawOutput
	e.ErrorMessage = &errorMessage
	e.InputTokens = inputTokens
	e.OutputTokens = outputTokens
	return true, nil
}

func (s *fakeStore) CreateFinding(_ context.Context, f *db.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	s.findings = append(s.findings, *f)
	return nil
}

func (s *fakeStore) AddWorkflowUsage(_ context.Context, id uuid.UUID, inputTokens, outputTokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workflows[id]; ok {
		w.InputTokens += inputTokens
		w.OutputTokens += outputTokens
	}
	return nil
}

func (s *fakeStore) ListFindingsByExecution(_ context.Context, executionID uuid.UUID) ([]db.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Finding
	for _, f := range s.findings {
		if f.ExecutionID == executionID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateHypothesis(_ context.Context, h *db.Hypothesis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hypotheses = append(s.hypotheses, *h)
	return nil
}

func (s *fakeStore) ListHypothesesByWorkflow(_ context.Context, workflowID uuid.UUID) ([]db.Hypothesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Hypothesis
	for _, h := range s.hypotheses {
		if h.WorkflowID == workflowID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateContradiction(_ context.Context, c *db.Contradiction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contras = append(s.contras, *c)
	return nil
}

func (s *fakeStore) CreateGap(_ context.Context, g *db.Gap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaps = append(s.gaps, *g)
	return nil
}

func (s *fakeStore) CreateInvestigationTask(_ context.Context, t *db.InvestigationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *t)
	return nil
}

func (s *fakeStore) CreateVerdict(_ context.Context, v *db.CaseVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = append(s.verdicts, *v)
	return nil
}

/* fakeRule scripts one backend response: the first rule whose needle
 * appears in the instruction wins. */
type fakeRule struct {
	needle string
	text   string
	fail   bool
}

type fakeBackend struct {
	mu           sync.Mutex
	rules        []fakeRule
	calls        []string
	instructions []string
}

func (b *fakeBackend) Generate(_ context.Context, req llm.Request) (<-chan llm.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.instructions = append(b.instructions, req.Instruction)
	for _, rule := range b.rules {
		if !strings.Contains(req.Instruction, rule.needle) {
			continue
		}
		b.calls = append(b.calls, rule.needle)
		if rule.fail {
			return nil, reliability.New(reliability.KindModelUnavailable, "backend down", nil)
		}
		ch := make(chan llm.Event, 2)
		ch <- llm.Event{Text: rule.text, Usage: &llm.Usage{InputTokens: 10, OutputTokens: 20}}
		ch <- llm.Event{Done: true}
		close(ch)
		return ch, nil
	}

	ch := make(chan llm.Event)
	close(ch)
	return ch, nil
}

/* fakePublisher records published events with their payloads */
type fakePublisher struct {
	mu       sync.Mutex
	events   []string
	payloads []map[string]interface{}
	dropped  []uuid.UUID
}

func (p *fakePublisher) Publish(_ uuid.UUID, eventType string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.payloads = append(p.payloads, payload)
}

func (p *fakePublisher) payloadFor(eventType string) map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, typ := range p.events {
		if typ == eventType {
			return p.payloads[i]
		}
	}
	return nil
}

func (p *fakePublisher) DropCase(caseID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropped = append(p.dropped, caseID)
}

func seedCase(s *fakeStore, fileCount int) (*db.Case, []db.CaseFile) {
	c := &db.Case{ID: uuid.New(), Title: "test case", Status: db.CaseOpen}
	s.cases[c.ID] = c
	files := make([]db.CaseFile, fileCount)
	for i := range files {
		files[i] = db.CaseFile{
			ID:       uuid.New(),
			CaseID:   c.ID,
			FileName: fmt.Sprintf("file-%d.pdf", i),
			MIMEType: "application/pdf",
		}
	}
	s.files[c.ID] = files
	return c, files
}

func domainResponse(n int) string {
	findings := make([]string, n)
	for i := range findings {
		findings[i] = fmt.Sprintf(`{"category": "timeline", "title": "finding %d", "narrative": "n",
			"confidence": 0.9, "citations": [{"file_id": "f", "locator": "page:1", "excerpt": "span"}]}`, i)
	}
	return "```json\n" + fmt.Sprintf(`{"findings": [%s], "summary": "s"}`, strings.Join(findings, ",")) + "\n```"
}

const synthesisResponse = "```json\n" + `{"hypotheses": [{"statement": "h1", "confidence": 0.7, "supporting_findings": ["finding 0"]}],
	"contradictions": [], "gaps": [{"description": "missing records"}], "tasks": [{"description": "pull records", "priority": 1}],
	"verdict": {"summary": "likely", "assessment": "supported", "confidence": 0.7}}` + "\n```"

func newTestOrchestrator(store *fakeStore, backend llm.Backend, pub *fakePublisher) *Orchestrator {
	factory := agent.NewFactory(backend)
	runner := agent.NewRunner(factory, store, nil, nil, pub, "standard", "medium")
	return NewOrchestrator(store, runner, pub, nil)
}

func TestWorkflowHappyPath(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 3)

	triageResp := "```json\n" + fmt.Sprintf(`{"routing": {"evidence": ["%s", "%s"], "financial": ["%s"]}}`,
		files[0].ID, files[1].ID, files[2].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: triageResp},
		{needle: "evidence analysis agent", text: domainResponse(2)},
		{needle: "financial analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}
	pub := &fakePublisher{}

	o := newTestOrchestrator(store, backend, pub)
	w, err := o.RunWorkflow(context.Background(), c.ID, "analyst")
	if err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
	if w.Stage != db.StageDone {
		t.Errorf("stage = %s, want DONE", w.Stage)
	}

	/* Triage + 2 domain + synthesis */
	if len(store.executions) != 4 {
		t.Errorf("executions = %d, want 4", len(store.executions))
	}
	succeeded := 0
	for _, e := range store.executions {
		if e.Status == db.ExecutionSuccess {
			succeeded++
		}
	}
	if succeeded != 4 {
		t.Errorf("successful executions = %d, want 4", succeeded)
	}

	if len(store.findings) != 3 {
		t.Errorf("findings = %d, want 3", len(store.findings))
	}
	if len(store.verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1", len(store.verdicts))
	}
	if store.verdicts[0].Assessment != "supported" {
		t.Errorf("verdict assessment = %q", store.verdicts[0].Assessment)
	}
	if len(store.hypotheses) != 1 || len(store.gaps) != 1 || len(store.tasks) != 1 {
		t.Errorf("synthesis artifacts = %d/%d/%d, want 1/1/1",
			len(store.hypotheses), len(store.gaps), len(store.tasks))
	}

	/* Token usage accumulated from domain runs */
	if w.InputTokens == 0 || w.OutputTokens == 0 {
		t.Errorf("workflow usage = (%d, %d), want nonzero", w.InputTokens, w.OutputTokens)
	}

	if c.LatestWorkflowID == nil || *c.LatestWorkflowID != w.ID {
		t.Error("case latest workflow not set")
	}
	if c.Status != db.CaseOpen {
		t.Errorf("case status = %q, want open after DONE", c.Status)
	}

	wantStages := []string{db.StageTriaging, db.StageRouted, db.StageAnalyzing, db.StageSynthesizing, db.StageDone}
	if len(store.stageLog) != len(wantStages) {
		t.Fatalf("stage log = %v", store.stageLog)
	}
	for i, s := range wantStages {
		if store.stageLog[i] != s {
			t.Errorf("stage[%d] = %s, want %s", i, store.stageLog[i], s)
		}
	}
}

func TestDomainTaskFailsOpen(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 2)

	triageResp := "```json\n" + fmt.Sprintf(`{"routing": {"evidence": ["%s"], "financial": ["%s"]}}`,
		files[0].ID, files[1].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "financial analysis agent", fail: true},
		{needle: "triage agent", text: triageResp},
		{needle: "evidence analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}
	pub := &fakePublisher{}

	o := newTestOrchestrator(store, backend, pub)
	w, err := o.RunWorkflow(context.Background(), c.ID, "analyst")
	if err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
	if w.Stage != db.StageDone {
		t.Errorf("stage = %s, want DONE despite a failed domain task", w.Stage)
	}

	var failed *db.AgentExecution
	for _, e := range store.executions {
		if e.Role == agent.RoleFinancial {
			failed = e
		}
	}
	if failed == nil {
		t.Fatal("financial execution not recorded")
	}
	if failed.Status != db.ExecutionFailed {
		t.Errorf("financial execution status = %s, want FAILED", failed.Status)
	}
	for _, f := range store.findings {
		if f.ExecutionID == failed.ID {
			t.Error("failed execution has findings")
		}
	}

	/* Evidence findings unaffected */
	if len(store.findings) != 1 {
		t.Errorf("findings = %d, want 1 from evidence", len(store.findings))
	}
}

func TestBarrierBeforeSynthesis(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 3)

	triageResp := "```json\n" + fmt.Sprintf(`{"routing": {"evidence": ["%s"], "financial": ["%s"], "legal": ["%s"]}}`,
		files[0].ID, files[1].ID, files[2].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: triageResp},
		{needle: "evidence analysis agent", text: domainResponse(1)},
		{needle: "financial analysis agent", text: domainResponse(1)},
		{needle: "legal analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	if _, err := o.RunWorkflow(context.Background(), c.ID, "analyst"); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}

	if store.runningAtSynthesis != 0 {
		t.Errorf("%d executions still RUNNING at SYNTHESIZING", store.runningAtSynthesis)
	}
}

func TestEmptyRoutingSkipsToSynthesis(t *testing.T) {
	store := newFakeStore()
	c, _ := seedCase(store, 1)

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: "```json\n{\"routing\": {}}\n```"},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	w, err := o.RunWorkflow(context.Background(), c.ID, "analyst")
	if err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
	if w.Stage != db.StageDone {
		t.Errorf("stage = %s, want DONE", w.Stage)
	}

	/* Only the triage execution, synthesis short-circuits */
	if len(store.executions) != 1 {
		t.Errorf("executions = %d, want 1", len(store.executions))
	}
	if len(store.verdicts) != 1 {
		t.Fatalf("verdicts = %d, want 1", len(store.verdicts))
	}
	if store.verdicts[0].Assessment != "inconclusive" {
		t.Errorf("default verdict assessment = %q", store.verdicts[0].Assessment)
	}
}

func TestTriageFailureIsWorkflowFatal(t *testing.T) {
	store := newFakeStore()
	c, _ := seedCase(store, 1)

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: "I cannot decide how to route these files."},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	w, err := o.RunWorkflow(context.Background(), c.ID, "analyst")
	if err == nil {
		t.Fatal("workflow succeeded, want TRIAGE_PARSE_ERROR")
	}
	if reliability.KindOf(err) != reliability.KindTriageParseError {
		t.Errorf("error kind = %v, want TRIAGE_PARSE_ERROR", reliability.KindOf(err))
	}
	if w.Stage != db.StageFailed {
		t.Errorf("stage = %s, want FAILED", w.Stage)
	}
	if w.ErrorKind == nil || *w.ErrorKind != string(reliability.KindTriageParseError) {
		t.Error("workflow error kind not recorded")
	}
	if c.Status != db.CaseError {
		t.Errorf("case status = %q, want error", c.Status)
	}

	/* Retried once: two triage executions, both failed */
	if len(store.executions) != 2 {
		t.Errorf("executions = %d, want 2 (original + retry)", len(store.executions))
	}
}

func TestTriageRetrySucceeds(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 1)

	goodResp := "```json\n" + fmt.Sprintf(`{"routing": {"evidence": ["%s"]}}`, files[0].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		/* The stricter re-prompt carries this marker, match it first */
		{needle: "could not be parsed", text: goodResp},
		{needle: "triage agent", text: "not json at all, sorry about that"},
		{needle: "evidence analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	w, err := o.RunWorkflow(context.Background(), c.ID, "analyst")
	if err != nil {
		t.Fatalf("workflow failed after retry: %v", err)
	}
	if w.Stage != db.StageDone {
		t.Errorf("stage = %s, want DONE", w.Stage)
	}
}

func TestDuplicateFilesExcludedFromAnalysis(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 2)

	/* Mark the second file a duplicate of the first */
	orig := files[0].ID
	store.files[c.ID][1].DuplicateOf = &orig

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: "```json\n{\"routing\": {}}\n```"},
		{needle: "synthesis agent", text: synthesisResponse},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	if _, err := o.RunWorkflow(context.Background(), c.ID, "analyst"); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}

	for _, e := range store.executions {
		if e.Role == agent.RoleTriage && e.Status != db.ExecutionSuccess {
			t.Errorf("triage execution status = %s", e.Status)
		}
	}
}

func (b *fakeBackend) instructionFor(needle string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, in := range b.instructions {
		if strings.Contains(in, needle) {
			return in
		}
	}
	return ""
}

func TestPriorHypothesesReachDomainPrompts(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 1)

	/* An earlier run left a hypothesis behind */
	priorID := uuid.New()
	store.workflows[priorID] = &db.Workflow{ID: priorID, CaseID: c.ID, Stage: db.StageDone}
	c.LatestWorkflowID = &priorID
	store.hypotheses = append(store.hypotheses, db.Hypothesis{
		ID:         uuid.New(),
		CaseID:     c.ID,
		WorkflowID: priorID,
		Statement:  "funds were routed through a shell company",
		Confidence: 0.8,
	})

	triageResp := "```json\n" + fmt.Sprintf(
		`{"routing": {"evidence": ["%s"]}, "notes": "prioritize the wire transfer records"}`,
		files[0].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: triageResp},
		{needle: "evidence analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	if _, err := o.RunWorkflow(context.Background(), c.ID, "analyst"); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}

	instruction := backend.instructionFor("evidence analysis agent")
	if instruction == "" {
		t.Fatal("evidence agent was never invoked")
	}
	if !strings.Contains(instruction, "funds were routed through a shell company") {
		t.Error("prior hypothesis missing from domain prompt")
	}
	if !strings.Contains(instruction, "prioritize the wire transfer records") {
		t.Error("triage notes missing from domain prompt")
	}
}

func TestFirstRunHasNoPriorHypotheses(t *testing.T) {
	store := newFakeStore()
	c, files := seedCase(store, 1)

	triageResp := "```json\n" + fmt.Sprintf(`{"routing": {"evidence": ["%s"]}}`, files[0].ID) + "\n```"

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: triageResp},
		{needle: "evidence analysis agent", text: domainResponse(1)},
		{needle: "synthesis agent", text: synthesisResponse},
	}}

	o := newTestOrchestrator(store, backend, &fakePublisher{})
	if _, err := o.RunWorkflow(context.Background(), c.ID, "analyst"); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}

	instruction := backend.instructionFor("evidence analysis agent")
	if strings.Contains(instruction, "Working hypotheses") {
		t.Error("first run's domain prompt carries a hypothesis section")
	}
}

func TestFailedWorkflowEventCarriesStageAndSummary(t *testing.T) {
	store := newFakeStore()
	c, _ := seedCase(store, 1)

	backend := &fakeBackend{rules: []fakeRule{
		{needle: "triage agent", text: "I cannot decide how to route these files."},
	}}
	pub := &fakePublisher{}

	o := newTestOrchestrator(store, backend, pub)
	if _, err := o.RunWorkflow(context.Background(), c.ID, "analyst"); err == nil {
		t.Fatal("workflow succeeded, want triage failure")
	}

	payload := pub.payloadFor("workflow_failed")
	if payload == nil {
		t.Fatal("workflow_failed event not published")
	}
	if payload["stage"] != db.StageTriaging {
		t.Errorf("stage = %v, want %s", payload["stage"], db.StageTriaging)
	}
	if payload["error_kind"] != string(reliability.KindTriageParseError) {
		t.Errorf("error_kind = %v", payload["error_kind"])
	}
	summary, _ := payload["error_summary"].(string)
	if summary == "" {
		t.Error("error_summary missing from workflow_failed event")
	}
}

func TestFatalDomainErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{
			name:  "agent state violation",
			err:   reliability.New(reliability.KindAgentStateViolation, "handle reused", nil),
			fatal: true,
		},
		{
			name:  "wrapped state violation",
			err:   fmt.Errorf("domain task: %w", reliability.New(reliability.KindAgentStateViolation, "handle reused", nil)),
			fatal: true,
		},
		{
			name:  "model unavailable",
			err:   reliability.New(reliability.KindModelUnavailable, "backend down", nil),
			fatal: false,
		},
		{
			name:  "plain persistence error",
			err:   errors.New("insert failed"),
			fatal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fatalDomainError(tt.err); got != tt.fatal {
				t.Errorf("fatalDomainError = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestCancelUnknownWorkflow(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeBackend{}, &fakePublisher{})
	if o.Cancel(context.Background(), uuid.New(), uuid.New(), "nope") {
		t.Error("cancel of unknown workflow returned true")
	}
}
