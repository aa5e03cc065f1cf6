package verifier

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the external zero-knowledge proof verifier over HTTP. The
// settlement engine treats any non-nil error as a verification failure, so the
// client only needs to distinguish success from everything else.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient constructs a verifier client for the given endpoint.
func NewClient(endpoint string) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("verifier: endpoint required")
	}
	return &Client{
		endpoint:   trimmed,
		httpClient: &http.Client{},
		timeout:    10 * time.Second,
	}, nil
}

type verifyRequest struct {
	Seal        string `json:"seal"`
	ProgramID   string `json:"programId"`
	ClaimDigest string `json:"claimDigest"`
}

// Verify implements the settlement engine's verifier port.
func (c *Client) Verify(seal []byte, programID [32]byte, claimDigest [32]byte) error {
	payload, err := json.Marshal(verifyRequest{
		Seal:        hex.EncodeToString(seal),
		ProgramID:   hex.EncodeToString(programID[:]),
		ClaimDigest: hex.EncodeToString(claimDigest[:]),
	})
	if err != nil {
		return fmt.Errorf("verifier: encode request: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("verifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verifier: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verifier: verification rejected with status %d", resp.StatusCode)
	}
	return nil
}
