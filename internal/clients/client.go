// Package clients talks to the platform services over HTTP. Requests are made once;
// failures are returned to the caller without retry.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"praid/internal/logger"
	"strings"
	"time"
)

const errorBodyLimit = 512

// ErrNotFound is matched by HTTPError values carrying a 404.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx response from a platform service.
type HTTPError struct {
	Service    string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s %s: HTTP %d", e.Service, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s %s: HTTP %d: %s", e.Service, e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Detail pulls the FastAPI style {"detail": ...} message out of the body when present.
func (e *HTTPError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return e.Body
}

// service holds what every platform client shares.
type service struct {
	name    string
	baseURL string
	http    *http.Client
	log     logger.Logger
}

func newService(name, baseURL string, timeout time.Duration) service {
	return service{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.New("clients").File(name),
	}
}

// newStreamingService omits the client timeout; streams end when the producer finishes
// or the request context is cancelled.
func newStreamingService(name, baseURL string) service {
	return service{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		log:     logger.New("clients").File(name),
	}
}

func (s service) url(path string) string {
	return s.baseURL + path
}

// doJSON sends body as JSON (when non-nil) and decodes the response into out (when non-nil).
func (s service) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := s.send(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode %s %s response: %w", s.name, method, path, err)
	}
	return nil
}

// send issues the request and returns the response for 2xx statuses. The caller owns
// the body.
func (s service) send(ctx context.Context, method, path string, body any, accept string) (*http.Response, error) {
	log := s.log.TraceFromContext(ctx).Function("send")

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", s.name, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", s.name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	s.traceHeader(ctx, req)

	return s.do(log, req)
}

func (s service) do(log logger.Logger, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, log.Err("Request failed", fmt.Errorf("%s %s %s: %w", s.name, req.Method, req.URL, err))
	}

	log.Debug("Request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &HTTPError{
			Service:    s.name,
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}
	return resp, nil
}

func (s service) traceHeader(ctx context.Context, req *http.Request) {
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}
}
