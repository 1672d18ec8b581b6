package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CliqClient posts messages and interactive cards to a Cliq incoming webhook.
type CliqClient struct {
	webhookURL string
	client     *http.Client
}

// Result is the structured outcome of an outbound chat call. Delivery is
// best-effort: failures are captured here, never raised past the caller.
type Result struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewCliqClient creates a client for the given webhook URL. An empty URL
// produces a client whose calls report a not-configured result.
func NewCliqClient(webhookURL string) *CliqClient {
	return &CliqClient{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether a webhook URL is set.
func (c *CliqClient) Configured() bool { return c.webhookURL != "" }

// PostCard sends an interactive card message.
func (c *CliqClient) PostCard(ctx context.Context, msg *CardMessage) Result {
	if !c.Configured() {
		return Result{Success: false, Reason: "webhook URL not set"}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return c.post(ctx, payload)
}

// PostMessage sends a plain text message.
func (c *CliqClient) PostMessage(ctx context.Context, text string) Result {
	if !c.Configured() {
		return Result{Success: false, Reason: "webhook URL not set"}
	}
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return c.post(ctx, payload)
}

func (c *CliqClient) post(ctx context.Context, payload []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Success: false, Status: resp.StatusCode,
			Error: fmt.Sprintf("cliq returned %d", resp.StatusCode)}
	}
	return Result{Success: true, Status: resp.StatusCode}
}
