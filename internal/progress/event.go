// Package progress defines the status events emitted during a crawl run.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart      Stage = "CRAWL_START"
	StageCrawlDone       Stage = "CRAWL_DONE"
	StageCrawlError      Stage = "CRAWL_ERROR"
	StageFetchDone       Stage = "FETCH_DONE"
	StageFetchSkip       Stage = "FETCH_SKIP"
	StageFetchError      Stage = "FETCH_ERROR"
	StageFetchRedirect   Stage = "FETCH_REDIRECT"
	StageFetchDisallowed Stage = "FETCH_DISALLOWED"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single component of crawl progress.
type Event struct {
	// RunID identifies the crawl run.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or fetch milestone occurred.
	Stage Stage
	// URL is the frontier URL for fetch events and the seed for CRAWL_START.
	URL string
	// Depth is the frontier depth of URL.
	Depth int
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// StatusClass groups Status (2xx, 3xx, etc).
	StatusClass StatusClass
	// Bytes is the response body size.
	Bytes int64
	// Dur is the fetch latency, or the crawl wall time for CRAWL_DONE and
	// CRAWL_ERROR.
	Dur time.Duration
	// Note carries the skip reason, error code, redirect target or crawl error.
	Note string

	// Run totals, set on CRAWL_DONE and CRAWL_ERROR.
	Records int
	Skipped int
	Errors  int
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCrawlStart, StageCrawlDone, StageCrawlError:
	case StageFetchDone, StageFetchSkip, StageFetchError, StageFetchRedirect, StageFetchDisallowed:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
		if e.StatusClass == "" {
			return fmt.Errorf("%s requires status class", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// IsFetch reports whether the event describes a single fetch.
func (e Event) IsFetch() bool {
	switch e.Stage {
	case StageFetchDone, StageFetchSkip, StageFetchError, StageFetchRedirect, StageFetchDisallowed:
		return true
	default:
		return false
	}
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
