package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Scheduler drives a bounded pool of workers over the frontier. Workers only
// fetch; a single consumer turns outcomes into records, skips and errors and
// feeds discovered links back into the frontier.
type Scheduler struct {
	cfg       CrawlConfig
	frontier  *Frontier
	fetcher   Fetcher
	extractor Extractor
	collector Collector
	reporter  StatusReporter
	logger    *zap.Logger

	completed atomic.Int64
	records   int
	skipped   int
	failed    int
}

// NewScheduler wires the crawl pipeline. reporter and logger may be nil.
func NewScheduler(
	cfg CrawlConfig,
	fetcher Fetcher,
	extractor Extractor,
	collector Collector,
	reporter StatusReporter,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Scheduler{
		cfg:       cfg,
		frontier:  NewFrontier(NewFilter(cfg.Domain), cfg.MaxDepth),
		fetcher:   fetcher,
		extractor: extractor,
		collector: collector,
		reporter:  reporter,
		logger:    logger,
	}
}

// Frontier exposes the scheduler's frontier for status reporting.
func (s *Scheduler) Frontier() *Frontier {
	return s.frontier
}

// Completed returns the number of outcomes processed so far.
func (s *Scheduler) Completed() int64 {
	return s.completed.Load()
}

// Run crawls until the frontier drains or ctx is canceled. Cancellation stops
// new dispatches; in-flight fetches run to completion or to their timeout.
// Only configuration problems are returned as errors before the crawl starts.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	if err := s.cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("validate crawl config: %w", err)
	}
	if s.fetcher == nil || s.extractor == nil || s.collector == nil {
		return Summary{}, errors.New("scheduler requires a fetcher, extractor and collector")
	}
	if !s.frontier.Enqueue(s.cfg.StartURL, 0, "") {
		return Summary{}, fmt.Errorf("%w: %q", ErrInvalidSeed, s.cfg.StartURL)
	}

	start := time.Now()
	s.reporter.CrawlStarted(s.cfg)
	s.logger.Info("crawl started",
		zap.String("start_url", s.cfg.StartURL),
		zap.String("domain", s.cfg.Domain),
		zap.Int("max_depth", s.cfg.MaxDepth),
		zap.Int("concurrency", s.cfg.Concurrency),
		zap.Duration("interval", s.cfg.Interval),
	)

	stop := context.AfterFunc(ctx, s.frontier.Close)
	defer stop()

	outcomes := make(chan Outcome, s.cfg.Concurrency)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for outcome := range outcomes {
			s.handle(outcome)
		}
	}()

	var g errgroup.Group
	for i := 0; i < s.cfg.Concurrency; i++ {
		g.Go(func() error {
			s.work(ctx, i, outcomes)
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	<-consumed

	summary := Summary{
		Records:  s.records,
		Skipped:  s.skipped,
		Errors:   s.failed,
		Seen:     s.frontier.Stats().Seen,
		Duration: time.Since(start),
	}
	err := ctx.Err()
	s.reporter.CrawlFinished(summary, err)
	if err != nil {
		return summary, fmt.Errorf("crawl interrupted: %w", err)
	}
	return summary, nil
}

// work pulls entries until the frontier drains. Successive dispatches on one
// worker are at least cfg.Interval apart.
func (s *Scheduler) work(ctx context.Context, worker int, outcomes chan<- Outcome) {
	pacer := rate.NewLimiter(rate.Every(s.cfg.Interval), 1)
	logger := s.logger.With(zap.Int("worker", worker))
	for {
		entry, ok := s.frontier.Next()
		if !ok {
			return
		}
		if err := pacer.Wait(ctx); err != nil {
			logger.Debug("dispatch abandoned", zap.String("url", entry.URL), zap.Error(err))
			s.frontier.Done(entry)
			return
		}
		outcomes <- s.fetch(ctx, entry)
	}
}

func (s *Scheduler) fetch(ctx context.Context, entry FrontierEntry) Outcome {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	resp, err := s.fetcher.Fetch(fetchCtx, entry.URL)
	if err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Kind != FetchErrorTimeout {
			err = &FetchError{Kind: FetchErrorTimeout, Err: err}
		}
	}
	return Outcome{Entry: entry, Response: resp, Err: err}
}

// handle runs on the single consumer goroutine. Every outcome except a
// robots.txt refusal bumps the completed counter and writes one info line.
func (s *Scheduler) handle(outcome Outcome) {
	entry := outcome.Entry
	resp := outcome.Response
	defer s.frontier.Done(entry)

	if outcome.Err != nil {
		if errors.Is(outcome.Err, ErrDisallowed) {
			s.logger.Debug("robots.txt disallows url", zap.String("url", entry.URL))
			s.reporter.FetchCompleted(OutcomeDisallowed, entry, resp, "")
			return
		}
		errEntry := ErrorEntryFor(entry.URL, outcome.Err)
		s.collector.Error(errEntry)
		s.failed++
		s.reporter.FetchCompleted(OutcomeError, entry, resp, errEntry.Code)
		s.statusLine("fetch failed", entry, resp,
			zap.String("code", errEntry.Code),
			zap.Error(outcome.Err),
		)
		return
	}

	base := resp.FinalURL
	if base == "" {
		base = entry.URL
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Location != "" {
		admitted := s.frontier.ReportDiscovered(entry, base, []string{resp.Location})
		s.reporter.FetchCompleted(OutcomeRedirect, entry, resp, resp.Location)
		s.statusLine("redirected", entry, resp,
			zap.String("location", resp.Location),
			zap.Int("admitted", admitted),
		)
		return
	}

	extraction := s.extractor.Extract(entry.URL, resp.Body, resp.ContentType)
	switch {
	case extraction.Skip != nil:
		s.collector.Skip(*extraction.Skip)
		s.skipped++
		s.reporter.FetchCompleted(OutcomeSkip, entry, resp, extraction.Skip.Reason)
		s.statusLine("skipped", entry, resp, zap.String("reason", extraction.Skip.Reason))
		return
	case extraction.Record != nil:
		s.collector.Record(*extraction.Record)
		s.records++
		s.reporter.FetchCompleted(OutcomeRecord, entry, resp, "")
	}

	admitted := s.frontier.ReportDiscovered(entry, base, extraction.Links)
	s.statusLine("fetched", entry, resp,
		zap.Int("bytes", len(resp.Body)),
		zap.Int("discovered", len(extraction.Links)),
		zap.Int("admitted", admitted),
	)
}

func (s *Scheduler) statusLine(msg string, entry FrontierEntry, resp FetchResponse, extra ...zap.Field) {
	completed := s.completed.Add(1)
	fields := make([]zap.Field, 0, 5+len(extra))
	fields = append(fields,
		zap.Int64("completed", completed),
		zap.String("url", entry.URL),
		zap.Int("depth", entry.Depth),
	)
	if resp.StatusCode > 0 {
		fields = append(fields, zap.Int("status", resp.StatusCode))
	}
	if resp.Duration > 0 {
		fields = append(fields, zap.Duration("dur", resp.Duration))
	}
	s.logger.Info(msg, append(fields, extra...)...)
}

type nopReporter struct{}

func (nopReporter) CrawlStarted(CrawlConfig) {}

func (nopReporter) FetchCompleted(OutcomeKind, FrontierEntry, FetchResponse, string) {}

func (nopReporter) CrawlFinished(Summary, error) {}
