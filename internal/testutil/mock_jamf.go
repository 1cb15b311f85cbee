// Package testutil provides testing utilities for the Jamf client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Test credentials accepted by the mock token endpoint.
const (
	Username = "api-user"
	Password = "s3cret"
	Token    = "test-token"
)

const tokenPath = "/api/auth/tokens"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockJamf is a configurable mock Jamf Pro server for testing.
type MockJamf struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	tokenResponse *MockResponse
	requests      []RecordedRequest
	authCount     int
	inFlight      int
	maxInFlight   int
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

// NewMockJamf creates a new mock server.
func NewMockJamf() *MockJamf {
	mock := &MockJamf{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockJamf) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	if r.URL.Path == tokenPath {
		m.authCount++
	} else {
		m.requests = append(m.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Header: r.Header.Clone(),
		})
	}
	handler, exists := m.handlers[r.URL.EscapedPath()]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if r.URL.Path == tokenPath {
		m.tokenHandler(w, r)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+Token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if exists {
		handler(w, r)
		return
	}

	m.defaultHandler(w, r)
}

// URL returns the mock server URL.
func (m *MockJamf) URL() string {
	return m.server.URL
}

// Client returns an HTTP client wired to the mock server.
func (m *MockJamf) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockJamf) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockJamf) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.authCount = 0
	m.maxInFlight = 0
}

// SetHandler sets a custom handler for a specific path.
func (m *MockJamf) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockJamf) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, responseHandler(resp))
}

// SetTokenResponse overrides the token endpoint.
func (m *MockJamf) SetTokenResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenResponse = &resp
}

// AuthCount returns the number of token requests.
func (m *MockJamf) AuthCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authCount
}

// RequestCount returns the number of non-token requests.
func (m *MockJamf) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of the recorded non-token requests.
func (m *MockJamf) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Paths returns the recorded request paths in arrival order.
func (m *MockJamf) Paths() []string {
	reqs := m.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Path
	}
	return out
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockJamf) MaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

func (m *MockJamf) tokenHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	override := m.tokenResponse
	m.mu.RUnlock()

	if override != nil {
		responseHandler(*override)(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":   Token,
		"expires": time.Now().Add(30 * time.Minute).Unix(),
	})
}

// defaultHandler echoes the requested path in the negotiated format.
func (m *MockJamf) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"path":%q}`, r.URL.EscapedPath())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<response><path>%s</path></response>", r.URL.EscapedPath())
}

func responseHandler(resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// NewOKResponse creates a 200 response with the given body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/xml"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "<error>Internal server error</error>",
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "<error>The server has not found anything matching the request URI</error>",
	}
}

// NewExpiredTokenResponse creates a token payload that expired a minute ago.
func NewExpiredTokenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"token":%q,"expires":%d}`, Token, time.Now().Add(-time.Minute).Unix()),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
