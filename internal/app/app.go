// Package app initializes and holds the services for one crawl run, acting as
// a dependency injection container for the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/api"
	"github.com/JakeFAU/metacrawler/internal/config"
	"github.com/JakeFAU/metacrawler/internal/crawler"
	"github.com/JakeFAU/metacrawler/internal/export"
	"github.com/JakeFAU/metacrawler/internal/extract"
	collyfetcher "github.com/JakeFAU/metacrawler/internal/fetcher/colly"
	"github.com/JakeFAU/metacrawler/internal/logging"
	"github.com/JakeFAU/metacrawler/internal/progress"
	"github.com/JakeFAU/metacrawler/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/metacrawler/internal/publisher/pubsub"
	"github.com/JakeFAU/metacrawler/internal/storage"
	"github.com/JakeFAU/metacrawler/internal/storage/gcs"
	"github.com/JakeFAU/metacrawler/internal/storage/local"
)

const recentEventCapacity = 512

// Publisher sends the run-completion notice.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
	Close() error
}

// Option overrides a default dependency.
type Option func(*options)

type options struct {
	fetcher   crawler.Fetcher
	store     storage.ArtifactStore
	publisher Publisher
	registry  *prometheus.Registry
	runID     uuid.UUID
}

// WithFetcher replaces the colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithStore replaces the store derived from output.dir.
func WithStore(s storage.ArtifactStore) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher replaces the Pub/Sub publisher derived from notify.pubsub.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithRegistry sets the Prometheus registry metrics are registered on.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithRunID fixes the run identifier.
func WithRunID(id uuid.UUID) Option {
	return func(o *options) { o.runID = id }
}

// Result summarizes a finished run.
type Result struct {
	RunID       uuid.UUID
	Summary     crawler.Summary
	Artifacts   []export.Artifact
	Interrupted bool
}

// CompletionNotice is the payload published when a run finishes.
type CompletionNotice struct {
	RunID       string            `json:"run_id"`
	StartURL    string            `json:"start_url"`
	Domain      string            `json:"domain"`
	Records     int               `json:"records"`
	Skipped     int               `json:"skipped"`
	Errors      int               `json:"errors"`
	Interrupted bool              `json:"interrupted"`
	DurationMS  int64             `json:"duration_ms"`
	Artifacts   map[string]string `json:"artifacts"`
}

// App holds the long-lived services of one crawl run.
type App struct {
	cfg       config.Config
	crawlCfg  crawler.CrawlConfig
	runID     uuid.UUID
	logger    *zap.Logger
	store     storage.ArtifactStore
	publisher Publisher
	collector *export.Collector
	exporter  *export.Exporter
	hub       *progress.Hub
	recent    *sinks.RecentSink
	registry  *prometheus.Registry
	scheduler *crawler.Scheduler
	server    *api.Server
	closers   []func() error

	mu        sync.Mutex
	state     string
	startedAt time.Time
	elapsed   time.Duration
}

// New builds every service a run needs. It fails fast on configuration or
// connection problems so nothing is crawled with a broken setup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	crawlCfg, err := cfg.CrawlConfig()
	if err != nil {
		return nil, err
	}

	runID := o.runID
	if runID == uuid.Nil {
		runID, err = uuid.NewV7()
		if err != nil {
			runID = uuid.New()
		}
	}
	logger = logging.ForRun(logger, runID)

	a := &App{
		cfg:       cfg,
		crawlCfg:  crawlCfg,
		runID:     runID,
		logger:    logger,
		collector: export.NewCollector(),
		registry:  o.registry,
		state:     api.StatePending,
	}

	a.store = o.store
	switch {
	case a.store != nil:
	case cfg.Output.DryRun:
		a.store = storage.NoOpStore{}
		logger.Info("dry run: artifacts are discarded")
	default:
		if a.store, err = a.openStore(ctx, cfg.Output.Dir); err != nil {
			return nil, err
		}
	}

	a.publisher = o.publisher
	if a.publisher == nil && cfg.Notify.PubSub.Enabled() {
		pub, err := pubsubpublisher.Dial(ctx, cfg.Notify.PubSub.ProjectID, cfg.Notify.PubSub.Topic)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = pub
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	a.recent = sinks.NewRecentSink(recentEventCapacity)
	progressLogger := logger.Named("progress")
	a.hub = progress.NewHub(
		progress.Config{Logger: progressLogger},
		sinks.NewLogSink(progressLogger),
		promSink,
		a.recent,
	)

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     crawlCfg.UserAgent,
			RespectRobots: crawlCfg.RespectRobots,
			Timeout:       crawlCfg.Timeout,
		}, logger.Named("fetcher"))
	}

	a.exporter = export.NewExporter(a.store, logger.Named("export"))
	a.scheduler = crawler.NewScheduler(
		crawlCfg,
		fetcher,
		extract.New(),
		a.collector,
		progress.NewReporter(runID, a.hub),
		logger.Named("scheduler"),
	)
	apiLogger := logger.Named("api")
	a.server = api.NewServer(a, api.NewProgressHandler(a.recent, apiLogger), a.registry, apiLogger)
	return a, nil
}

func (a *App) openStore(ctx context.Context, dir string) (storage.ArtifactStore, error) {
	if gcs.IsURI(dir) {
		store, err := gcs.Open(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("writing artifacts to gcs", zap.String("location", dir))
		return store, nil
	}
	store, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}
	a.logger.Info("writing artifacts to local directory", zap.String("dir", store.BaseDir()))
	return store, nil
}

// RunID returns the identifier stamped on logs, events and the notice.
func (a *App) RunID() uuid.UUID {
	return a.runID
}

// Handler exposes the status HTTP routes.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run crawls, exports whatever was collected, and publishes the completion
// notice. Cancellation of ctx stops the crawl early but still exports partial
// results; the returned error then wraps ctx.Err().
func (a *App) Run(ctx context.Context) (Result, error) {
	stopServer := a.startStatusServer(ctx)
	defer stopServer()

	a.setState(api.StateRunning)
	summary, crawlErr := a.scheduler.Run(ctx)
	interrupted := crawlErr != nil && ctx.Err() != nil
	if crawlErr != nil && !interrupted {
		a.setState(api.StateDone)
		return Result{RunID: a.runID}, fmt.Errorf("run crawl: %w", crawlErr)
	}

	result := Result{RunID: a.runID, Summary: summary, Interrupted: interrupted}
	flushCtx := context.WithoutCancel(ctx)
	artifacts, err := a.exporter.Flush(flushCtx, a.collector.Snapshot())
	if err != nil {
		a.setState(api.StateDone)
		return result, fmt.Errorf("export results: %w", err)
	}
	result.Artifacts = artifacts
	a.notify(flushCtx, result)

	if interrupted {
		a.setState(api.StateInterrupted)
		return result, crawlErr
	}
	a.setState(api.StateDone)
	return result, nil
}

func (a *App) startStatusServer(ctx context.Context) func() {
	if a.cfg.Status.Addr == "" {
		return func() {}
	}
	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.server.ListenAndServe(serverCtx, a.cfg.Status.Addr); err != nil {
			a.logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *App) notify(ctx context.Context, result Result) {
	if a.publisher == nil {
		return
	}
	notice := CompletionNotice{
		RunID:       a.runID.String(),
		StartURL:    a.crawlCfg.StartURL,
		Domain:      a.crawlCfg.Domain,
		Records:     result.Summary.Records,
		Skipped:     result.Summary.Skipped,
		Errors:      result.Summary.Errors,
		Interrupted: result.Interrupted,
		DurationMS:  result.Summary.Duration.Milliseconds(),
		Artifacts:   make(map[string]string, len(result.Artifacts)),
	}
	for _, artifact := range result.Artifacts {
		notice.Artifacts[artifact.Name] = artifact.URI
	}
	id, err := a.publisher.Publish(ctx, a.cfg.Notify.PubSub.Topic, notice)
	if err != nil {
		a.logger.Warn("completion notice not published", zap.Error(err))
		return
	}
	a.logger.Info("completion notice published", zap.String("message_id", id))
}

// Status implements api.StatusProvider.
func (a *App) Status() api.RunStatus {
	a.mu.Lock()
	state := a.state
	startedAt := a.startedAt
	elapsed := a.elapsed
	a.mu.Unlock()
	if state == api.StateRunning {
		elapsed = time.Since(startedAt)
	}

	counts := a.collector.Counts()
	return api.RunStatus{
		RunID:     a.runID.String(),
		State:     state,
		StartURL:  a.crawlCfg.StartURL,
		Domain:    a.crawlCfg.Domain,
		StartedAt: startedAt,
		Elapsed:   elapsed.Round(time.Millisecond).String(),
		Records:   counts.Records,
		Skipped:   counts.Skipped,
		Errors:    counts.Errors,
		Completed: a.scheduler.Completed(),
		Frontier:  a.scheduler.Frontier().Stats(),
		Events: api.EventCounts{
			Emitted: a.hub.Emitted(),
			Dropped: a.hub.Dropped(),
		},
	}
}

func (a *App) setState(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch state {
	case api.StateRunning:
		a.startedAt = time.Now().UTC()
	case api.StateDone, api.StateInterrupted:
		a.elapsed = time.Since(a.startedAt)
	}
	a.state = state
}

// Close drains the progress hub and releases external clients.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.hub.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, a.closeResources()...)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() []error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
