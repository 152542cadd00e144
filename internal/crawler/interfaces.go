package crawler

import (
	"context"
)

// Fetcher fetches a URL and returns the body plus metadata. Failures should be
// reported as *FetchError, or ErrDisallowed when robots.txt forbids the URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}

// Extractor turns a fetched document into a metadata record or a skip entry.
type Extractor interface {
	Extract(pageURL string, body []byte, contentType string) Extraction
}

// Collector accumulates crawl output. Implementations must be safe for
// concurrent use.
type Collector interface {
	Record(rec MetadataRecord)
	Skip(entry SkipEntry)
	Error(entry ErrorEntry)
}

// StatusReporter receives one call per completed fetch and one per crawl
// lifecycle transition.
type StatusReporter interface {
	CrawlStarted(cfg CrawlConfig)
	FetchCompleted(kind OutcomeKind, entry FrontierEntry, resp FetchResponse, detail string)
	CrawlFinished(summary Summary, err error)
}
