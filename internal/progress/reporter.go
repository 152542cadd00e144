package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

var fetchStages = map[crawler.OutcomeKind]Stage{
	crawler.OutcomeRecord:     StageFetchDone,
	crawler.OutcomeSkip:       StageFetchSkip,
	crawler.OutcomeError:      StageFetchError,
	crawler.OutcomeRedirect:   StageFetchRedirect,
	crawler.OutcomeDisallowed: StageFetchDisallowed,
}

// Reporter adapts scheduler callbacks into Events for one crawl run. It
// satisfies crawler.StatusReporter.
type Reporter struct {
	runID   uuid.UUID
	emitter Emitter
	now     func() time.Time
}

// NewReporter returns a Reporter emitting events tagged with runID.
func NewReporter(runID uuid.UUID, emitter Emitter) *Reporter {
	return &Reporter{
		runID:   runID,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunID returns the run identifier stamped on every event.
func (r *Reporter) RunID() uuid.UUID {
	return r.runID
}

// CrawlStarted emits CRAWL_START.
func (r *Reporter) CrawlStarted(cfg crawler.CrawlConfig) {
	r.emit(Event{
		Stage: StageCrawlStart,
		URL:   cfg.StartURL,
		Note:  cfg.Domain,
	})
}

// FetchCompleted emits one fetch-stage event per processed outcome.
func (r *Reporter) FetchCompleted(
	kind crawler.OutcomeKind,
	entry crawler.FrontierEntry,
	resp crawler.FetchResponse,
	detail string,
) {
	stage, ok := fetchStages[kind]
	if !ok {
		return
	}
	r.emit(Event{
		Stage:       stage,
		URL:         entry.URL,
		Depth:       entry.Depth,
		Status:      resp.StatusCode,
		StatusClass: ClassifyStatus(resp.StatusCode),
		Bytes:       int64(len(resp.Body)),
		Dur:         resp.Duration,
		Note:        detail,
	})
}

// CrawlFinished emits CRAWL_DONE, or CRAWL_ERROR when err is set.
func (r *Reporter) CrawlFinished(summary crawler.Summary, err error) {
	evt := Event{
		Stage:   StageCrawlDone,
		Dur:     summary.Duration,
		Records: summary.Records,
		Skipped: summary.Skipped,
		Errors:  summary.Errors,
	}
	if err != nil {
		evt.Stage = StageCrawlError
		evt.Note = err.Error()
	}
	r.emit(evt)
}

func (r *Reporter) emit(evt Event) {
	if r == nil || r.emitter == nil {
		return
	}
	evt.RunID = r.runID
	evt.TS = r.now()
	r.emitter.Emit(evt)
}
