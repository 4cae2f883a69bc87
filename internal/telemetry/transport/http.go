package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response body is kept in StatusError.
const maxErrorBody = 512

// ErrRejected is returned when the endpoint answers 2xx with success=false.
var ErrRejected = errors.New("transport: batch rejected by endpoint")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: request failed status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPTransport posts batches as JSON to the ingestion endpoint.
type HTTPTransport struct {
	Endpoint   string
	AuthToken  string
	HTTPClient *http.Client
}

// NewHTTPTransport returns a transport for endpoint. timeout <= 0 uses defaultTimeout.
// authToken is sent as a bearer token when non-empty.
func NewHTTPTransport(endpoint, authToken string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPTransport{
		Endpoint:   endpoint,
		AuthToken:  authToken,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send posts the batch and decodes the ingestion response.
func (t *HTTPTransport) Send(ctx context.Context, batch domain.Batch) (*domain.BatchResult, error) {
	if strings.TrimSpace(t.Endpoint) == "" {
		return nil, fmt.Errorf("transport: endpoint not configured")
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("transport: encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AuthToken)
	}
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: send batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	var result domain.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// A 2xx with no body (e.g. 204) carries no badge data but is still a success.
		if errors.Is(err, io.EOF) {
			return &domain.BatchResult{Success: true}, nil
		}
		return nil, fmt.Errorf("transport: decode response: %w", err)
	}
	if !result.Success {
		return &result, ErrRejected
	}
	return &result, nil
}
