package progress

import "context"

// Sink receives batches of crawl events from a Hub. Consume and Close are
// called from the hub goroutine, one at a time and in order. The batch is
// shared by every sink and must not be modified.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter accepts single events. Hub implements it; Reporter writes to it.
type Emitter interface {
	Emit(evt Event)
}
