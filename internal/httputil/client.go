// Package httputil holds the JSON response helpers shared by handlers and the
// HTTP client abstraction used to pull exports from a running server.
package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the subset of *http.Client the export commands use.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c, or http.DefaultClient when c is nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// maxBody caps how much of a response Fetch will read.
const maxBody = 64 << 20

// Fetch GETs url and returns the body and its content type. Non-2xx responses
// are errors carrying the start of the body.
func Fetch(ctx context.Context, c HTTPClient, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, "", fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// MockHTTPClient returns queued responses and records requests.
type MockHTTPClient struct {
	mu        sync.Mutex
	Requests  []*http.Request
	responses []MockResponse
	next      int
}

// MockResponse is a canned response. A non-nil Error is returned instead.
type MockResponse struct {
	StatusCode  int
	Body        string
	ContentType string
	Error       error
}

func NewMockHTTPClient(responses ...MockResponse) *MockHTTPClient {
	return &MockHTTPClient{responses: responses}
}

// AddResponse queues a response.
func (m *MockHTTPClient) AddResponse(statusCode int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{StatusCode: statusCode, Body: body})
	return m
}

// Do records req and returns the next queued response, or an empty 200 once
// the queue is exhausted.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	r := MockResponse{StatusCode: http.StatusOK}
	if m.next < len(m.responses) {
		r = m.responses[m.next]
		m.next++
	}
	if r.Error != nil {
		return nil, r.Error
	}
	header := make(http.Header)
	if r.ContentType != "" {
		header.Set("Content-Type", r.ContentType)
	}
	return &http.Response{
		StatusCode: r.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(r.Body)),
		Header:     header,
		Request:    req,
	}, nil
}

// RequestCount returns the number of recorded requests.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
