package crawler

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidSeed is returned when the start URL cannot seed a crawl.
	ErrInvalidSeed = errors.New("invalid seed url")
	// ErrDisallowed is returned by fetchers when robots.txt forbids a URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// FetchErrorKind distinguishes the fetch failure sub-kinds.
type FetchErrorKind string

// Supported fetch failure kinds.
const (
	FetchErrorGeneric  FetchErrorKind = "fetcherror"
	FetchErrorClient   FetchErrorKind = "client"
	FetchErrorNotFound FetchErrorKind = "notfound"
	FetchErrorTimeout  FetchErrorKind = "timeout"
)

// FetchError describes a failed fetch. Status is the HTTP status when known;
// ClientCode carries the network error code for client failures.
type FetchError struct {
	Kind       FetchErrorKind
	Status     int
	ClientCode string
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Code()
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Code returns the taxonomy tag written to errors.csv.
func (e *FetchError) Code() string {
	switch e.Kind {
	case FetchErrorNotFound:
		return strconv.Itoa(404)
	case FetchErrorTimeout:
		return "timeout"
	case FetchErrorClient:
		code := e.ClientCode
		if code == "" {
			code = "unknown"
		}
		return "client:" + code
	default:
		return string(FetchErrorGeneric)
	}
}

// ErrorEntryFor converts a fetch failure into the record persisted for url.
// Errors that are not *FetchError are treated as generic fetch errors.
func ErrorEntryFor(url string, err error) ErrorEntry {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return ErrorEntry{URL: url, Code: string(FetchErrorGeneric)}
	}
	entry := ErrorEntry{URL: url, Code: fe.Code()}
	switch fe.Kind {
	case FetchErrorNotFound:
		entry.Status = 404
	case FetchErrorGeneric:
		entry.Status = fe.Status
	}
	return entry
}
