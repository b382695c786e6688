/*-------------------------------------------------------------------------
 *
 * client.go
 *    HTTP client for CaseTrace API
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/client/client.go
 *
 *-------------------------------------------------------------------------
 */

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Case struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	LatestWorkflowID string `json:"latest_workflow_id,omitempty"`
	CreatedBy        string `json:"created_by,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

type CaseList struct {
	Cases []Case `json:"cases"`
	Count int    `json:"count"`
}

type CaseFile struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	MIMEType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

type FileList struct {
	Files []CaseFile `json:"files"`
	Count int        `json:"count"`
}

type Workflow struct {
	ID           string `json:"id"`
	CaseID       string `json:"case_id"`
	Stage        string `json:"stage"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorSummary string `json:"error_summary,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

type WorkflowList struct {
	Workflows []Workflow `json:"workflows"`
	Count     int        `json:"count"`
}

type StartWorkflowResult struct {
	JobID  int64  `json:"job_id"`
	CaseID string `json:"case_id"`
	Status string `json:"status"`
}

type Finding struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"`
	Title           string  `json:"title"`
	Narrative       string  `json:"narrative"`
	Confidence      float64 `json:"confidence"`
	CitationFlagged bool    `json:"citation_flagged"`
	FlagReason      string  `json:"flag_reason,omitempty"`
}

type FindingList struct {
	Findings []Finding `json:"findings"`
	Count    int       `json:"count"`
}

type Verdict struct {
	ID         string  `json:"id"`
	Summary    string  `json:"summary"`
	Assessment string  `json:"assessment"`
	Confidence float64 `json:"confidence"`
}

type Confirmation struct {
	ID                string `json:"id"`
	CaseID            string `json:"case_id"`
	WorkflowID        string `json:"workflow_id"`
	ActionDescription string `json:"action_description"`
	CreatedAt         string `json:"created_at"`
}

type ConfirmationList struct {
	Confirmations []Confirmation `json:"confirmations"`
	Count         int            `json:"count"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreateCase(title string) (*Case, error) {
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out Case
	if err := c.doJSON("POST", "/api/cases", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCase(caseID string) (*Case, error) {
	var out Case
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCases(limit, offset int) (*CaseList, error) {
	var out CaseList
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases?limit=%d&offset=%d", limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCase(caseID string) error {
	return c.doJSON("DELETE", fmt.Sprintf("/api/cases/%s", caseID), nil, nil)
}

func (c *Client) UploadFile(caseID, path string) (*CaseFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+fmt.Sprintf("/api/cases/%s/files", caseID), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out CaseFile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) ListFiles(caseID string) (*FileList, error) {
	var out FileList
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s/files", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartWorkflow(caseID string) (*StartWorkflowResult, error) {
	var out StartWorkflowResult
	if err := c.doJSON("POST", fmt.Sprintf("/api/cases/%s/workflows", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWorkflows(caseID string) (*WorkflowList, error) {
	var out WorkflowList
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s/workflows", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetWorkflow(workflowID string) (*Workflow, error) {
	var out Workflow
	if err := c.doJSON("GET", fmt.Sprintf("/api/workflows/%s", workflowID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelWorkflow(workflowID, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doJSON("POST", fmt.Sprintf("/api/workflows/%s/cancel", workflowID), bytes.NewReader(body), nil)
}

func (c *Client) ListFindings(caseID string) (*FindingList, error) {
	var out FindingList
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s/findings", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVerdict(caseID string) (*Verdict, error) {
	var out Verdict
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s/verdict", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPendingConfirmations(caseID string) (*ConfirmationList, error) {
	var out ConfirmationList
	if err := c.doJSON("GET", fmt.Sprintf("/api/cases/%s/confirmations/pending", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolveConfirmation(caseID, requestID string, approved bool, reason string) error {
	body, err := json.Marshal(map[string]interface{}{
		"approved": approved,
		"reason":   reason,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doJSON("POST", fmt.Sprintf("/api/cases/%s/confirmations/%s", caseID, requestID), bytes.NewReader(body), nil)
}

/* DownloadFile fetches stored evidence content. The caller closes the
 * returned body. */
func (c *Client) DownloadFile(fileID string) (io.ReadCloser, error) {
	req, err := http.NewRequest("GET", c.baseURL+fmt.Sprintf("/api/files/%s/content", fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

/* StreamEvents opens the SSE stream for a case. The caller reads and
 * closes the body. */
func (c *Client) StreamEvents(caseID string) (io.ReadCloser, error) {
	req, err := http.NewRequest("GET", c.baseURL+fmt.Sprintf("/api/cases/%s/events", caseID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	/* No client timeout: the stream stays open until cancelled */
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

func (c *Client) doJSON(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
