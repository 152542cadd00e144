// Package crawler implements single-domain crawling: the admission filter,
// the deduplicating frontier, and the scheduler that runs a bounded worker
// pool over it. Fetching and extraction are injected through the Fetcher and
// Extractor interfaces.
package crawler
