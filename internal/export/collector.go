// Package export accumulates crawl results and serializes them to the output
// artifacts.
package export

import (
	"sync"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// Counts summarizes what a Collector holds.
type Counts struct {
	Records int `json:"records"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Snapshot is a copy of everything collected so far, in arrival order.
type Snapshot struct {
	Records []crawler.MetadataRecord
	Skipped []crawler.SkipEntry
	Errors  []crawler.ErrorEntry
}

// Collector is an append-only, concurrency-safe accumulator for crawl output.
type Collector struct {
	mu      sync.Mutex
	records []crawler.MetadataRecord
	skipped []crawler.SkipEntry
	errors  []crawler.ErrorEntry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends a metadata record.
func (c *Collector) Record(rec crawler.MetadataRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

// Skip appends a skip entry.
func (c *Collector) Skip(entry crawler.SkipEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped = append(c.skipped, entry)
}

// Error appends an error entry.
func (c *Collector) Error(entry crawler.ErrorEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, entry)
}

// Counts returns the current sizes of the three accumulators.
func (c *Collector) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counts{Records: len(c.records), Skipped: len(c.skipped), Errors: len(c.errors)}
}

// Snapshot copies the accumulators.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Records: append([]crawler.MetadataRecord(nil), c.records...),
		Skipped: append([]crawler.SkipEntry(nil), c.skipped...),
		Errors:  append([]crawler.ErrorEntry(nil), c.errors...),
	}
}
