// Package notify provides the outbound HTTP delivery implementations
// behind the outbound message action.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPPoster delivers JSON payloads to external endpoints. Responses are
// discarded; any non-2xx status is a delivery failure.
type HTTPPoster struct {
	client *http.Client
}

func NewHTTPPoster(timeout time.Duration) *HTTPPoster {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPPoster{
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPoster) Post(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", url, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("posting to %s: unexpected status %d", url, resp.StatusCode)
	}

	return nil
}
