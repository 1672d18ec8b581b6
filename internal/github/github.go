// Package github is the source-control collaborator: a thin REST client for
// the workflow re-run and issue endpoints the action handler drives.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.github.com"

// Client calls the GitHub REST API with a personal access token.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// New creates a client. An empty token yields an unconfigured client; callers
// should check Configured before invoking side effects.
func New(token string) *Client {
	return NewWithBase(token, defaultAPIBase)
}

// NewWithBase creates a client against a custom API base (used in tests).
func NewWithBase(token, baseURL string) *Client {
	return &Client{
		token:   token,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether a token is available.
func (c *Client) Configured() bool { return c.token != "" }

// Issue is the subset of the created-issue response the callers use.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// RerunWorkflow triggers a re-run of an entire workflow run.
func (c *Client) RerunWorkflow(ctx context.Context, repo, runID string) error {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%s/rerun", c.baseURL, repo, runID)
	return c.do(ctx, http.MethodPost, url, nil, nil)
}

// RerunFailedJobs re-runs only the failed jobs of a workflow run.
func (c *Client) RerunFailedJobs(ctx context.Context, repo, runID string) error {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%s/rerun-failed-jobs", c.baseURL, repo, runID)
	return c.do(ctx, http.MethodPost, url, nil, nil)
}

// CreateIssue opens an issue labeled ci-failure and returns it.
func (c *Client) CreateIssue(ctx context.Context, repo, title, body string) (*Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/issues", c.baseURL, repo)
	payload := map[string]any{
		"title":  title,
		"body":   body,
		"labels": []string{"ci-failure"},
	}
	var issue Issue
	if err := c.do(ctx, http.MethodPost, url, payload, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetWorkflowRun fetches run details as a raw document.
func (c *Client) GetWorkflowRun(ctx context.Context, repo, runID string) (map[string]any, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/runs/%s", c.baseURL, repo, runID)
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload, out any) error {
	if !c.Configured() {
		return fmt.Errorf("github token not configured")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("github returned %d: %s", resp.StatusCode, apiError(resp.Body))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// apiError extracts the message field from a GitHub error response.
func apiError(r io.Reader) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Message == "" {
		return "unknown error"
	}
	return e.Message
}
