// Package httpclient is a small generic helper for JSON REST APIs.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxErrorBody = 4096

// StatusError is returned for non-2xx responses so callers can branch on the
// upstream status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Retryable reports whether the status indicates a transient upstream
// condition: server errors and rate limiting.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// GetJSON fetches baseURL+endpoint and decodes the JSON response into T.
// Query and headers may be nil. Non-2xx responses yield a *StatusError.
func GetJSON[T any](ctx context.Context, client *http.Client, baseURL, endpoint string, query url.Values, headers http.Header) (T, error) {
	var zero T

	u := baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, fmt.Errorf("couldn't build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("couldn't call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, fmt.Errorf("couldn't decode response from %s: %w", endpoint, err)
	}
	return out, nil
}
