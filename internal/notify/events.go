package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Event names, one per notification kind.
const (
	EventTransactionsSummary = "transactions-summary"
	EventDisconnected        = "disconnected-notification"
	EventExpiring            = "expiring-notification"
	EventReconnectAlert      = "reconnect-alert"
)

// Event is one outbound message to the external messaging/email service.
// Payload is a free-form JSON template-data bag.
type Event struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// EventSender delivers events to the messaging service.
type EventSender interface {
	Send(ctx context.Context, event Event) error
}

// HTTPSender posts events to the messaging service's ingest endpoint.
type HTTPSender struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPSender creates an event sender. httpClient may be nil.
func NewHTTPSender(endpoint, apiKey string, httpClient *http.Client) *HTTPSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPSender{endpoint: endpoint, apiKey: apiKey, http: httpClient}
}

func (s *HTTPSender) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send event %s: %w", event.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send event %s: service returned %d: %s", event.Name, resp.StatusCode, data)
	}
	return nil
}

var _ EventSender = (*HTTPSender)(nil)
