package crawler

import (
	"sync"
)

// Frontier is the deduplicated, depth-bounded work queue shared by all
// workers. A normalized URL is handed out at most once per crawl.
type Frontier struct {
	filter   Filter
	maxDepth int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []FrontierEntry
	seen     map[string]struct{}
	inFlight int
	closed   bool
}

// FrontierStats is a point-in-time view of the frontier gauges.
type FrontierStats struct {
	Queued   int `json:"queued"`
	InFlight int `json:"in_flight"`
	Seen     int `json:"seen"`
}

// NewFrontier builds an empty frontier. maxDepth of zero means unbounded.
func NewFrontier(filter Filter, maxDepth int) *Frontier {
	f := &Frontier{
		filter:   filter,
		maxDepth: maxDepth,
		seen:     make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue inserts url if its normalized form has never been seen. It does not
// consult the admission filter; discovered links go through ReportDiscovered.
func (f *Frontier) Enqueue(rawURL string, depth int, parent string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(FrontierEntry{URL: normalized, Depth: depth, DiscoveredFrom: parent})
}

// ReportDiscovered offers the raw links found on parent's page. Links are
// resolved against base (parent.URL when empty), depth-checked, filtered and
// deduplicated. It returns the number of links admitted.
func (f *Frontier) ReportDiscovered(parent FrontierEntry, base string, links []string) int {
	if len(links) == 0 {
		return 0
	}
	if base == "" {
		base = parent.URL
	}
	depth := parent.Depth + 1
	if f.maxDepth > 0 && depth > f.maxDepth {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	admitted := 0
	for _, href := range links {
		candidate, err := ResolveReference(base, href)
		if err != nil {
			continue
		}
		decision := f.filter.Eligible(candidate)
		if !decision.Eligible {
			continue
		}
		normalized, err := NormalizeURL(decision.URL)
		if err != nil {
			continue
		}
		if f.insertLocked(FrontierEntry{URL: normalized, Depth: depth, DiscoveredFrom: parent.URL}) {
			admitted++
		}
	}
	return admitted
}

func (f *Frontier) insertLocked(entry FrontierEntry) bool {
	if f.closed {
		return false
	}
	if _, ok := f.seen[entry.URL]; ok {
		return false
	}
	f.seen[entry.URL] = struct{}{}
	f.queue = append(f.queue, entry)
	f.cond.Broadcast()
	return true
}

// Next blocks until an entry is available. It returns false once the queue is
// empty and nothing is in flight, or after Close. The returned entry stays in
// flight until Done is called.
func (f *Frontier) Next() (FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.queue) == 0 && f.inFlight > 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed || len(f.queue) == 0 {
		return FrontierEntry{}, false
	}
	entry := f.queue[0]
	f.queue[0] = FrontierEntry{}
	f.queue = f.queue[1:]
	if len(f.queue) == 0 {
		f.queue = nil
	}
	f.inFlight++
	return entry, true
}

// Done releases an entry obtained from Next.
func (f *Frontier) Done(FrontierEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.cond.Broadcast()
}

// Close stops handing out entries. In-flight entries may still call Done.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Stats returns the current gauges.
func (f *Frontier) Stats() FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FrontierStats{
		Queued:   len(f.queue),
		InFlight: f.inFlight,
		Seen:     len(f.seen),
	}
}
