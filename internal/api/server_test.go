package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

type fakeStatus struct {
	status RunStatus
}

func (f *fakeStatus) Status() RunStatus {
	return f.status
}

func newTestServer(status StatusProvider) *Server {
	return NewServer(status, nil, prometheus.NewRegistry(), zap.NewNop())
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	status := &fakeStatus{status: RunStatus{State: StatePending}}
	server := newTestServer(status)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	status.status.State = StateRunning
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	status := &fakeStatus{status: RunStatus{
		RunID:     "run-1",
		State:     StateRunning,
		StartURL:  "https://example.com/",
		Domain:    "example.com",
		Records:   4,
		Skipped:   1,
		Errors:    2,
		Completed: 7,
		Frontier:  crawler.FrontierStats{Queued: 3, InFlight: 2, Seen: 12},
		Events:    EventCounts{Emitted: 9},
	}}
	server := newTestServer(status)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, status.status.RunID, got.RunID)
	assert.Equal(t, 4, got.Records)
	assert.Equal(t, 12, got.Frontier.Seen)
	assert.EqualValues(t, 9, got.Events.Emitted)
}

func TestServer_StatusUnavailable(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metacrawler_test_total",
		Help: "test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	server := NewServer(nil, nil, reg, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "metacrawler_test_total 3")
}

func TestServer_EventsRouteRequiresHandler(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	server := newTestServer(panicStatus{})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ListenAndServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := newTestServer(&fakeStatus{status: RunStatus{State: StateRunning}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type panicStatus struct{}

func (panicStatus) Status() RunStatus {
	panic("boom")
}

func TestServer_InstrumentsRequests(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, prometheus.NewRegistry(), nil)
	server.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `metacrawler_http_requests_total{code="200",method="GET"} 1`)
	require.Contains(t, rec.Body.String(), `route="/healthz"`)
}
