// Package crm contains the outbound adapters for the supported CRM
// backends. Each adapter implements the domain ProviderClient port against
// one provider's HTTP API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/signaldesk/backend/internal/domain/crm"
)

const (
	// maxResponseSize limits response bodies to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024
	// defaultTimeout bounds every provider API call
	defaultTimeout = 15 * time.Second
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// apiError is the normalized failure from a provider API call
type apiError struct {
	provider crm.Provider
	status   int
	body     string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.provider.DisplayName(), e.status, e.body)
}

// doJSON performs one JSON request against a provider API. A non-2xx status
// becomes an apiError carrying the response body. out may be nil when the
// caller ignores the response.
func doJSON(ctx context.Context, client *http.Client, provider crm.Provider, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", provider, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{provider: provider, status: resp.StatusCode, body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: failed to parse response: %w", provider, err)
		}
	}
	return nil
}

// failedOutcome wraps an adapter-side failure into a failed sync outcome
func failedOutcome(err error) *crm.SyncOutcome {
	return &crm.SyncOutcome{Success: false, Error: err.Error()}
}
