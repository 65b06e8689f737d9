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
	"sync/atomic"
	"testing"
)

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
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// ScanBackend is a fake scanning backend serving GET /health and POST /scan.
//
// Zero value answers healthy and returns no matches.
type ScanBackend struct {
	Unhealthy bool
	// Status and Body override the /scan response. Body is JSON encoded unless it is a string.
	Status int
	Body   any
	// Release, when set, holds every /scan request until it is closed.
	Release chan struct{}
	// Started receives once per /scan request that reached the handler.
	Started chan struct{}

	healthCalls atomic.Int32
	scanCalls   atomic.Int32

	mu       sync.Mutex
	requests []map[string]any
}

// NewScanBackend starts b on an httptest server closed at cleanup.
func NewScanBackend(t *testing.T, b *ScanBackend) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", b.health)
	mux.HandleFunc("POST /scan", b.scan)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (b *ScanBackend) health(w http.ResponseWriter, r *http.Request) {
	b.healthCalls.Add(1)
	if b.Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}

func (b *ScanBackend) scan(w http.ResponseWriter, r *http.Request) {
	b.scanCalls.Add(1)

	var req map[string]any
	json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.Started != nil {
		b.Started <- struct{}{}
	}
	if b.Release != nil {
		<-b.Release
	}

	status := b.Status
	if status == 0 {
		status = http.StatusOK
	}

	var body []byte
	switch v := b.Body.(type) {
	case nil:
		body = []byte(`{"matching_images":[]}`)
	case string:
		body = []byte(v)
	default:
		body, _ = json.Marshal(v)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// HealthCalls returns the number of /health requests served.
func (b *ScanBackend) HealthCalls() int { return int(b.healthCalls.Load()) }

// ScanCalls returns the number of /scan requests received.
func (b *ScanBackend) ScanCalls() int { return int(b.scanCalls.Load()) }

// Requests returns the decoded /scan request bodies.
func (b *ScanBackend) Requests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.requests...)
}

// PNGHeader is the 8-byte PNG signature, enough for content sniffing.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// WriteFile writes data to name under a temp dir and returns its path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
