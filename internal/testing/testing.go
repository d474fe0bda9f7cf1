// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// Call is a request recorded by [FakeBackend].
type Call struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// Reply is a canned [FakeBackend] response.
type Reply struct {
	Status int
	Body   any
}

// FakeBackend is an httptest server that records every request and answers from a route table.
//
// Routes are keyed by "METHOD /path". Unrouted requests get a 404 with a detail body.
type FakeBackend struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]Reply
	calls  []Call
}

// NewFakeBackend starts a [FakeBackend] that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{routes: make(map[string]Reply)}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

// Handle sets the reply for method and path.
func (fb *FakeBackend) Handle(method, path string, status int, body any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = Reply{Status: status, Body: body}
}

// Calls returns a copy of every recorded request.
func (fb *FakeBackend) Calls() []Call {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Call(nil), fb.calls...)
}

// Count returns how many requests hit method and path.
func (fb *FakeBackend) Count(method, path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &call.Body)
	}

	fb.mu.Lock()
	fb.calls = append(fb.calls, call)
	reply, ok := fb.routes[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()

	if !ok {
		reply = Reply{Status: http.StatusNotFound, Body: map[string]string{"detail": "Not Found"}}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	if reply.Body != nil {
		_ = json.NewEncoder(w).Encode(reply.Body)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error

	mu       sync.Mutex
	requests int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests++
	m.mu.Unlock()
	return m.response, m.err
}

// Requests returns how many times RoundTrip was called.
func (m *MockRoundTripper) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
