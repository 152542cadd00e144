package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/metacrawler/internal/progress"
	"github.com/JakeFAU/metacrawler/internal/progress/sinks"
)

func newEventServer(t *testing.T, events []progress.Event) *Server {
	t.Helper()
	recent := sinks.NewRecentSink(16)
	require.NoError(t, recent.Consume(context.Background(), events))
	return NewServer(nil, NewProgressHandler(recent, nil), prometheus.NewRegistry(), nil)
}

func sampleEvents() []progress.Event {
	runID := uuid.New()
	var out []progress.Event
	stages := []progress.Stage{progress.StageFetchDone, progress.StageFetchError, progress.StageFetchSkip}
	for i, stage := range stages {
		out = append(out, progress.Event{
			RunID:       runID,
			TS:          time.Unix(int64(i), 0).UTC(),
			Stage:       stage,
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Status:      200,
			StatusClass: progress.Status2xx,
			Dur:         1500 * time.Millisecond,
		})
	}
	return out
}

func TestProgressHandler_ListEvents(t *testing.T) {
	t.Parallel()

	server := newEventServer(t, sampleEvents())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []eventDTO `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, "FETCH_SKIP", body.Events[0].Stage)
	assert.Equal(t, "https://example.com/2", body.Events[0].URL)
	assert.EqualValues(t, 1500, body.Events[0].DurationMS)
}

func TestProgressHandler_FilterByStage(t *testing.T) {
	t.Parallel()

	server := newEventServer(t, sampleEvents())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events?stage=error", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []eventDTO `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "FETCH_ERROR", body.Events[0].Stage)
}

func TestProgressHandler_BadQuery(t *testing.T) {
	t.Parallel()

	server := newEventServer(t, nil)
	for _, target := range []string{
		"/v1/events?limit=0",
		"/v1/events?limit=abc",
		"/v1/events?offset=-1",
		"/v1/events?stage=bogus",
	} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestProgressHandler_NoSource(t *testing.T) {
	t.Parallel()

	h := NewProgressHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseLimitOffsetClamps(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/events?limit=100000&offset=3", nil)
	limit, offset, err := parseLimitOffset(req, defaultEventLimit, maxEventLimit)
	require.NoError(t, err)
	assert.Equal(t, maxEventLimit, limit)
	assert.Equal(t, 3, offset)
}
