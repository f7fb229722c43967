// Package scoring calls the external team-compatibility oracle. The oracle is
// a black box: it returns a 0-100 score (possibly absent) and a free-text
// rationale for a candidate grouping.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Result is the oracle's verdict. Score is nil when the oracle declined to
// produce a number; callers must tolerate that.
type Result struct {
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
}

type Request struct {
	ProjectName    string   `json:"projectName"`
	ProjectContext string   `json:"projectContext"`
	Candidates     []string `json:"candidates"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the scoring service, or nil when no URL is
// configured (callers treat a nil client as "suggestions disabled").
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Score submits a candidate grouping for evaluation.
func (c *Client) Score(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshal scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("scoring service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode scoring response: %w", err)
	}
	if result.Score != nil && (*result.Score < 0 || *result.Score > 100) {
		// Out-of-range scores are treated as absent rather than rejected.
		result.Score = nil
	}
	return result, nil
}
