package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts event batches to a gateway events endpoint. It is the
// Sender used by Go-side widget hosts.
type HTTPSender struct {
	endpoint string
	tenantID string
	origin   string
	client   *http.Client
}

// NewHTTPSender creates a sender for the given gateway base URL and tenant.
// origin is sent as the Origin header so the gateway's domain authentication
// sees the embedding site.
func NewHTTPSender(baseURL, tenantID, origin string, client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{
		endpoint: baseURL + "/api/v1/events",
		tenantID: tenantID,
		origin:   origin,
		client:   client,
	}
}

// Send delivers one batch.
func (s *HTTPSender) Send(ctx context.Context, events []Event) error {
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("marshaling event batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", s.tenantID)
	req.Header.Set("Origin", s.origin)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending event batch: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events endpoint returned %d", resp.StatusCode)
	}
	return nil
}
