package sinks

import (
	"context"
	"sync"

	"github.com/JakeFAU/metacrawler/internal/progress"
)

const defaultRecentCapacity = 512

// RecentSink keeps the most recent events in a fixed-size ring so the status
// API can show what the crawler has been doing.
type RecentSink struct {
	mu    sync.Mutex
	ring  []progress.Event
	next  int
	count int
}

// NewRecentSink returns a RecentSink holding at most capacity events.
func NewRecentSink(capacity int) *RecentSink {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &RecentSink{ring: make([]progress.Event, capacity)}
}

// Consume appends the batch, overwriting the oldest events when full.
func (s *RecentSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.ring[s.next] = evt
		s.next = (s.next + 1) % len(s.ring)
		if s.count < len(s.ring) {
			s.count++
		}
	}
	return nil
}

// Recent returns up to limit events, newest first, skipping the first offset
// matches. A non-empty stage restricts the result to that stage.
func (s *RecentSink) Recent(stage progress.Stage, limit, offset int) []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]progress.Event, 0, min(limit, s.count))
	for i := 0; i < s.count && len(out) < limit; i++ {
		idx := (s.next - 1 - i + len(s.ring)) % len(s.ring)
		evt := s.ring[idx]
		if stage != "" && evt.Stage != stage {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Len returns the number of retained events.
func (s *RecentSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close implements the Sink interface; it performs no action.
func (s *RecentSink) Close(context.Context) error {
	return nil
}
