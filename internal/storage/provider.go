// Package storage defines where crawl artifacts are written.
// The exporter only depends on ArtifactStore, so runs can target the local
// filesystem or stay in memory for tests and dry runs.
package storage

import (
	"context"
	"io"
)

// ArtifactStore persists a named artifact and returns a URI describing where
// it ended up.
type ArtifactStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// NoOpStore discards artifacts. It is useful for dry runs where results are
// only inspected through logs.
type NoOpStore struct{}

// PutObject for NoOpStore drains nothing and always succeeds.
func (NoOpStore) PutObject(_ context.Context, path string, _ string, _ io.Reader) (string, error) {
	return "noop://" + path, nil
}
