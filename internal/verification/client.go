package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const clientTimeout = 10 * time.Second

// Client calls the verification service over HTTP. It is the disburser-side
// view of the verifier contract.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a verification client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

// Verify submits a verification request and returns the verdict.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (Verdict, error) {
	var verdict Verdict
	if err := c.post(ctx, "/verify", req, &verdict); err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

// RecordPayout reports a confirmed payout back to the verification service.
func (c *Client) RecordPayout(ctx context.Context, githubUserID int64) error {
	return c.post(ctx, "/record-payout", RecordPayoutRequest{GithubUserID: githubUserID}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("verification service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verification service returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
