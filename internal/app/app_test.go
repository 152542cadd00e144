package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/metacrawler/internal/api"
	"github.com/JakeFAU/metacrawler/internal/app"
	"github.com/JakeFAU/metacrawler/internal/config"
	"github.com/JakeFAU/metacrawler/internal/crawler"
	"github.com/JakeFAU/metacrawler/internal/export"
	memorypublisher "github.com/JakeFAU/metacrawler/internal/publisher/memory"
	memorystore "github.com/JakeFAU/metacrawler/internal/storage/memory"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
<a href="/about">About</a><a href="/feed">Feed</a><a href="/gone">Gone</a>
<a href="https://elsewhere.example/">Off</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta name="description" content="About us"></head></html>`))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(startURL string) config.Config {
	return config.Config{
		Crawl: config.CrawlSection{
			StartURL:    startURL,
			Concurrency: 2,
			Timeout:     5 * time.Second,
			UserAgent:   "metacrawler-test",
		},
		Output: config.OutputConfig{Dir: "unused"},
		Notify: config.NotifyConfig{PubSub: config.PubSubConfig{ProjectID: "proj", Topic: "runs"}},
	}
}

func TestAppRunExportsAndNotifies(t *testing.T) {
	site := newSite(t)
	store := memorystore.NewStore()
	pub := memorypublisher.New()
	runID := uuid.MustParse("0190d6a4-8f3b-7c1e-9a2b-3c4d5e6f7a8b")

	a, err := app.New(context.Background(), testConfig(site.URL+"/"), zaptest.NewLogger(t),
		app.WithStore(store),
		app.WithPublisher(pub),
		app.WithRegistry(prometheus.NewRegistry()),
		app.WithRunID(runID),
	)
	require.NoError(t, err)
	assert.Equal(t, api.StatePending, a.Status().State)

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	assert.Equal(t, runID, result.RunID)
	assert.False(t, result.Interrupted)
	assert.Equal(t, 2, result.Summary.Records)
	assert.Equal(t, 1, result.Summary.Skipped)
	assert.Equal(t, 1, result.Summary.Errors)
	require.Len(t, result.Artifacts, 4)

	assert.Equal(t, []string{export.ErrorsCSV, export.ResultsCSV, export.ResultsJSON, export.SkippedCSV}, store.Paths())
	errorsCSV, ok := store.Get(export.ErrorsCSV)
	require.True(t, ok)
	assert.Contains(t, string(errorsCSV), `/gone","404","404"`)

	var records []crawler.MetadataRecord
	raw, ok := store.Get(export.ResultsJSON)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Home", records[0].Title)

	status := a.Status()
	assert.Equal(t, api.StateDone, status.State)
	assert.Equal(t, runID.String(), status.RunID)
	assert.Equal(t, int64(4), status.Completed)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "runs", msgs[0].Topic)
	notice, ok := msgs[0].Payload.(app.CompletionNotice)
	require.True(t, ok)
	assert.Equal(t, runID.String(), notice.RunID)
	assert.Equal(t, 2, notice.Records)
	assert.Equal(t, "memory://"+export.ResultsJSON, notice.Artifacts[export.ResultsJSON])
}

func TestAppRunCanceledStillExports(t *testing.T) {
	site := newSite(t)
	store := memorystore.NewStore()

	a, err := app.New(context.Background(), testConfig(site.URL+"/"), zaptest.NewLogger(t),
		app.WithStore(store),
		app.WithPublisher(memorypublisher.New()),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := a.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, result.Interrupted)
	assert.Len(t, store.Paths(), 4)
	assert.Equal(t, api.StateInterrupted, a.Status().State)
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, &crawler.FetchError{Kind: crawler.FetchErrorClient, ClientCode: "ECONNREFUSED"}
}

func TestAppRunWithInjectedFetcher(t *testing.T) {
	store := memorystore.NewStore()
	a, err := app.New(context.Background(), testConfig("https://example.test/"), zaptest.NewLogger(t),
		app.WithFetcher(failingFetcher{}),
		app.WithStore(store),
		app.WithPublisher(memorypublisher.New()),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Errors)
	raw, ok := store.Get(export.ErrorsCSV)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"client:ECONNREFUSED",""`)
}

func TestAppStatusHandler(t *testing.T) {
	a, err := app.New(context.Background(), testConfig("https://example.test/"), zaptest.NewLogger(t),
		app.WithFetcher(failingFetcher{}),
		app.WithStore(memorystore.NewStore()),
		app.WithPublisher(memorypublisher.New()),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status api.RunStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, api.StatePending, status.State)
	assert.Equal(t, "example.test", status.Domain)
}

func TestNewRejectsInvalidSeed(t *testing.T) {
	cfg := testConfig("ftp://example.test/")
	_, err := app.New(context.Background(), cfg, zaptest.NewLogger(t),
		app.WithStore(memorystore.NewStore()),
		app.WithPublisher(memorypublisher.New()),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrInvalidSeed)
}

func TestAppDryRunDiscardsArtifacts(t *testing.T) {
	cfg := testConfig("https://example.test/")
	cfg.Output.DryRun = true

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t),
		app.WithFetcher(failingFetcher{}),
		app.WithPublisher(memorypublisher.New()),
		app.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 4)
	assert.Equal(t, "noop://"+export.ResultsJSON, result.Artifacts[0].URI)
}
