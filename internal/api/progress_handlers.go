package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/progress"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventSource returns recent progress events, newest first.
type EventSource interface {
	Recent(stage progress.Stage, limit, offset int) []progress.Event
}

// ProgressHandler exposes read-only progress endpoints.
type ProgressHandler struct {
	events EventSource
	logger *zap.Logger
}

// NewProgressHandler wires the event source and logger.
func NewProgressHandler(events EventSource, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{
		events: events,
		logger: logger,
	}
}

// ListEvents handles GET /v1/events?stage=&limit=&offset=. It returns a JSON
// object {"events": [...]} on success, 400 for invalid filters, or 503 when no
// event source is configured.
func (h *ProgressHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event source unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultEventLimit, maxEventLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stage, err := parseStage(r.URL.Query().Get("stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": toEventDTOs(h.events.Recent(stage, limit, offset)),
	})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStage(input string) (progress.Stage, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return "", nil
	case "record", "done":
		return progress.StageFetchDone, nil
	case "skip":
		return progress.StageFetchSkip, nil
	case "error":
		return progress.StageFetchError, nil
	case "redirect":
		return progress.StageFetchRedirect, nil
	case "disallowed":
		return progress.StageFetchDisallowed, nil
	case "crawl":
		return progress.StageCrawlStart, nil
	default:
		return "", errors.New("invalid stage")
	}
}

func toEventDTOs(in []progress.Event) []eventDTO {
	out := make([]eventDTO, 0, len(in))
	for _, evt := range in {
		out = append(out, eventDTO{
			TS:          evt.TS,
			Stage:       string(evt.Stage),
			URL:         evt.URL,
			Depth:       evt.Depth,
			Status:      evt.Status,
			StatusClass: string(evt.StatusClass),
			Bytes:       evt.Bytes,
			DurationMS:  evt.Dur.Milliseconds(),
			Note:        evt.Note,
		})
	}
	return out
}

type eventDTO struct {
	TS          time.Time `json:"ts"`
	Stage       string    `json:"stage"`
	URL         string    `json:"url,omitempty"`
	Depth       int       `json:"depth"`
	Status      int       `json:"status,omitempty"`
	StatusClass string    `json:"status_class,omitempty"`
	Bytes       int64     `json:"bytes,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	Note        string    `json:"note,omitempty"`
}
