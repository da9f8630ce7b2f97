// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/podspot/internal/fetch"
	"github.com/desertthunder/podspot/internal/models"
)

// MockMetadata is a test double for [services.MetadataService]
type MockMetadata struct {
	Meta *models.TargetMeta
	Err  error
}

func (m *MockMetadata) ResolveTarget(ctx context.Context, target models.Target) (*models.TargetMeta, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Meta, nil
}

func (m *MockMetadata) Name() string { return "mock" }

// MockFetcher is a test double for [fetch.Fetcher]
type MockFetcher struct {
	CheckErr error
	FetchErr error
	Result   *fetch.FetchResult
	Calls    []fetch.FetchRequest
}

func (m *MockFetcher) Check(ctx context.Context) error { return m.CheckErr }

func (m *MockFetcher) Fetch(ctx context.Context, req fetch.FetchRequest) (*fetch.FetchResult, error) {
	m.Calls = append(m.Calls, req)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &fetch.FetchResult{Format: req.Format, Attempts: 1}, nil
}

// MockConverter is a test double for [fetch.Converter]
type MockConverter struct {
	Err      error
	Requests []fetch.ConvertRequest
}

func (m *MockConverter) Convert(ctx context.Context, req fetch.ConvertRequest) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	return req.SourcePath + fetch.FinalExt, nil
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
