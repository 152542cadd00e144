package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/metacrawler/internal/progress"
)

// LogSink writes one structured line per event. Lifecycle events go to info
// and crawl errors to warn. Fetch events are logged at debug since the
// scheduler already writes the per-fetch status line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if ce := s.logger.Check(levelFor(evt.Stage), messageFor(evt.Stage)); ce != nil {
			ce.Write(fields(evt)...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func levelFor(stage progress.Stage) zapcore.Level {
	switch stage {
	case progress.StageCrawlStart, progress.StageCrawlDone:
		return zapcore.InfoLevel
	case progress.StageCrawlError:
		return zapcore.WarnLevel
	default:
		return zapcore.DebugLevel
	}
}

var stageMessages = map[progress.Stage]string{
	progress.StageCrawlStart:      "crawl started",
	progress.StageCrawlDone:       "crawl finished",
	progress.StageCrawlError:      "crawl interrupted",
	progress.StageFetchDone:       "fetch event",
	progress.StageFetchSkip:       "skip event",
	progress.StageFetchError:      "fetch error event",
	progress.StageFetchRedirect:   "redirect event",
	progress.StageFetchDisallowed: "disallowed event",
}

func messageFor(stage progress.Stage) string {
	if msg, ok := stageMessages[stage]; ok {
		return msg
	}
	return "progress event"
}

func fields(evt progress.Event) []zap.Field {
	out := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.URL != "" {
		out = append(out, zap.String("url", evt.URL))
	}
	if evt.IsFetch() {
		out = append(out,
			zap.Int("depth", evt.Depth),
			zap.Int("status", evt.Status),
			zap.String("status_class", string(evt.StatusClass)),
			zap.Int64("bytes", evt.Bytes),
		)
	} else if evt.Stage != progress.StageCrawlStart {
		out = append(out,
			zap.Int("records", evt.Records),
			zap.Int("skipped", evt.Skipped),
			zap.Int("errors", evt.Errors),
		)
	}
	if evt.Dur > 0 {
		out = append(out, zap.Duration("dur", evt.Dur))
	}
	if evt.Note != "" {
		out = append(out, zap.String("note", evt.Note))
	}
	return out
}
