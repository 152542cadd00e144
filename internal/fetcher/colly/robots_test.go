package collyfetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRobotsRetryReturnsAllowAllOnTimeout(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{
		results: []roundTripResult{
			{err: context.DeadlineExceeded},
			{err: context.DeadlineExceeded},
			{err: context.DeadlineExceeded},
			{err: context.DeadlineExceeded},
		},
	}
	transport := newRobotsRetryTransport(base, nil)
	transport.backoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/robots.txt", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}
	t.Cleanup(func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.Fatalf("resp close: %v", cerr)
		}
	})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "User-agent: *\nAllow: /" {
		t.Fatalf("unexpected fallback body: %q", string(body))
	}
	if !transport.FellBack() {
		t.Fatal("expected fallback to be recorded")
	}
	if base.callCount() != 4 {
		t.Fatalf("expected 4 attempts, got %d", base.callCount())
	}
}

func TestRobotsRetryStopsAfterSuccess(t *testing.T) {
	t.Parallel()

	base := &stubRoundTripper{
		results: []roundTripResult{
			{err: context.DeadlineExceeded},
			{resp: httptest.NewRecorder().Result()},
		},
	}
	transport := newRobotsRetryTransport(base, nil)
	transport.backoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/robots.txt", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}
	if cerr := resp.Body.Close(); cerr != nil {
		t.Fatalf("resp close: %v", cerr)
	}
	if base.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", base.callCount())
	}
	if transport.FellBack() {
		t.Fatal("expected no fallback after a successful retry")
	}
}

func TestRobotsRetrySkipsOtherPaths(t *testing.T) {
	t.Parallel()

	boom := errors.New("tls: handshake timeout")
	base := &stubRoundTripper{results: []roundTripResult{{err: boom}}}
	transport := newRobotsRetryTransport(base, nil)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
	_, err := transport.RoundTrip(req)
	if !errors.Is(err, boom) {
		t.Fatalf("expected base error, got %v", err)
	}
	if base.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", base.callCount())
	}
}

func TestRobotsRetryNonTransientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("certificate signed by unknown authority")
	base := &stubRoundTripper{results: []roundTripResult{{err: boom}}}
	transport := newRobotsRetryTransport(base, nil)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/robots.txt", nil)
	if _, err := transport.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("expected non-transient error to surface, got %v", err)
	}
	if base.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", base.callCount())
	}
}

type roundTripResult struct {
	resp *http.Response
	err  error
}

type stubRoundTripper struct {
	mu      sync.Mutex
	results []roundTripResult
	calls   int
}

func (s *stubRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.calls++ }()
	if len(s.results) == 0 {
		return nil, context.DeadlineExceeded
	}
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	res := s.results[idx]
	return res.resp, res.err
}

func (s *stubRoundTripper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
