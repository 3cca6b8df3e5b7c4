// Package backend is the HTTP client for the external café API (base path /api).
//
// Every call resolves to a Result, the {ok, data, status} triple the storefront
// branches on. Transport failures never escape as panics or raw errors from
// Call: they become a Result with OK=false and Status=0. The typed helpers in
// this package convert failed results into ErrNetwork or *APIError.
package backend

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

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 10 * time.Second

	genericFailure = "Request failed"
	connectionFail = "Connection error"
)

// ErrNetwork marks a call that never produced an HTTP response.
var ErrNetwork = errors.New("backend: connection error")

// APIError is a response the server answered with a non-2xx status.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Detail)
}

// Message returns the text to show a user for err: the server detail for API
// errors, a connection message for network failures.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.Is(err, ErrNetwork):
		return connectionFail
	default:
		return genericFailure
	}
}

// Result is the outcome of a single API call.
type Result struct {
	OK     bool
	Status int
	Data   json.RawMessage
}

// Err converts a failed result into ErrNetwork or *APIError. It returns nil for OK results.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Status == 0 {
		return ErrNetwork
	}
	return &APIError{Status: r.Status, Detail: r.detail()}
}

// Decode unmarshals the payload of an OK result into out.
func (r Result) Decode(out any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if out == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("backend: failed to decode response: %w", err)
	}
	return nil
}

// detail pulls the server message from {"detail": "..."} or {"message": "..."}.
// FastAPI validation errors carry a list in detail; those fall back to the generic text.
func (r Result) detail() string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(r.Data, &body); err == nil {
		var s string
		if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &s) == nil && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return genericFailure
}

// Client talks to the café API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Call performs one request and never returns a Go error.
func (c *Client) Call(ctx context.Context, method, path string, body any) Result {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("backend: failed to encode request body")
			return failed()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("backend: failed to build request")
		return failed()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-ID", id.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend: request failed")
		return failed()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("backend: failed to read response body")
		return failed()
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !json.Valid(data) {
		if ok && len(bytes.TrimSpace(data)) == 0 {
			data = []byte("{}")
		} else {
			// Non-JSON bodies (proxy error pages) are treated like the browser's
			// failed response.json(): a connection-level failure.
			log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("backend: response is not JSON")
			return failed()
		}
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("backend: call completed")
	return Result{OK: ok, Status: resp.StatusCode, Data: data}
}

// Do performs a call and decodes the OK payload into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.Call(ctx, method, path, body).Decode(out)
}

func failed() Result {
	return Result{OK: false, Status: 0, Data: json.RawMessage(`{"detail":"` + connectionFail + `"}`)}
}
