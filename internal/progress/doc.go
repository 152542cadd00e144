// Package progress provides the status events, non-blocking hub, and reporter
// that turn scheduler callbacks into a stream of crawl milestones. The hub
// batches events on a background goroutine and fans them out to pluggable
// sinks such as Prometheus metrics or structured logs.
package progress
