// Package api hosts the optional status HTTP server for a crawl run. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for counts and frontier gauges.
//   - GET /v1/events for the most recent progress events.
package api
