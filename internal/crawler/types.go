package crawler

import (
	"time"
)

// FrontierEntry is a URL waiting for, or undergoing, a fetch.
type FrontierEntry struct {
	URL            string
	Depth          int
	DiscoveredFrom string
}

// MetadataRecord is the page-level metadata extracted from one HTML page.
// Missing values are empty strings so every field is always exported.
type MetadataRecord struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OGType      string `json:"ogType"`
	Canonical   string `json:"canonical"`
	OGURL       string `json:"ogUrl"`
	Image       string `json:"image"`
	TwitterCard string `json:"twitterCard"`
	Keywords    string `json:"keywords"`
	Robots      string `json:"robots"`
}

// SkipEntry records a fetched resource that was excluded after the fetch.
type SkipEntry struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// ErrorEntry records a failed fetch. Status is zero when unknown.
type ErrorEntry struct {
	URL    string `json:"url"`
	Code   string `json:"code"`
	Status int    `json:"status,omitempty"`
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Location    string
	Body        []byte
	Duration    time.Duration
}

// Extraction is the outcome of running the metadata extractor on a fetched
// document. Exactly one of Record or Skip is set.
type Extraction struct {
	Record *MetadataRecord
	Skip   *SkipEntry
	Links  []string
}

// OutcomeKind classifies a completed fetch.
type OutcomeKind string

// Outcome kinds produced by the scheduler.
const (
	OutcomeRecord     OutcomeKind = "record"
	OutcomeSkip       OutcomeKind = "skip"
	OutcomeError      OutcomeKind = "error"
	OutcomeRedirect   OutcomeKind = "redirect"
	OutcomeDisallowed OutcomeKind = "disallowed"
)

// Outcome is sent from a worker to the outcome consumer once a fetch finishes.
type Outcome struct {
	Entry    FrontierEntry
	Response FetchResponse
	Err      error
}

// Summary describes a finished crawl.
type Summary struct {
	Records  int
	Skipped  int
	Errors   int
	Seen     int
	Duration time.Duration
}
