package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Receipt is the backend's answer to an accepted submission.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Sender delivers a submission.
type Sender interface {
	Submit(ctx context.Context, sub Submission) (*Receipt, error)
}

// Submitter posts submissions as JSON to an endpoint.
type Submitter struct {
	endpoint string
	client   *http.Client
}

// NewSubmitter creates a Submitter for an absolute endpoint URL. A nil
// client gets a 10 second timeout.
func NewSubmitter(endpoint string, client *http.Client) *Submitter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Submitter{endpoint: endpoint, client: client}
}

// Endpoint returns the URL submissions are posted to.
func (s *Submitter) Endpoint() string { return s.endpoint }

// Submit validates sub locally then posts it.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("posting to %s: %s: %s", s.endpoint, resp.Status, bytes.TrimSpace(msg))
	}

	var rc Receipt
	if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	return &rc, nil
}
