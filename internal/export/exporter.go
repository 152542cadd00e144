package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/crawler"
	"github.com/JakeFAU/metacrawler/internal/storage"
)

// Artifact file names written by Flush.
const (
	ResultsJSON = "results.json"
	ResultsCSV  = "results.csv"
	SkippedCSV  = "skipped.csv"
	ErrorsCSV   = "errors.csv"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// Artifact describes one written output file.
type Artifact struct {
	Name string
	URI  string
	Rows int
}

// Exporter serializes collected results into the artifact store.
type Exporter struct {
	store  storage.ArtifactStore
	logger *zap.Logger
}

// NewExporter builds an Exporter writing into store.
func NewExporter(store storage.ArtifactStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger}
}

// Flush writes results.json, results.csv, skipped.csv and errors.csv. It stops
// at the first artifact that cannot be written.
func (e *Exporter) Flush(ctx context.Context, snap Snapshot) ([]Artifact, error) {
	resultsJSON, err := MarshalRecords(snap.Records)
	if err != nil {
		return nil, err
	}

	outputs := []struct {
		name        string
		contentType string
		payload     []byte
		rows        int
	}{
		{ResultsJSON, contentTypeJSON, resultsJSON, len(snap.Records)},
		{ResultsCSV, contentTypeCSV, Table(ResultColumns, recordRows(snap.Records)), len(snap.Records)},
		{SkippedCSV, contentTypeCSV, Table(SkipColumns, skipRows(snap.Skipped)), len(snap.Skipped)},
		{ErrorsCSV, contentTypeCSV, Table(ErrorColumns, errorRows(snap.Errors)), len(snap.Errors)},
	}

	artifacts := make([]Artifact, 0, len(outputs))
	for _, out := range outputs {
		uri, err := e.store.PutObject(ctx, out.name, out.contentType, bytes.NewReader(out.payload))
		if err != nil {
			return artifacts, fmt.Errorf("write %s: %w", out.name, err)
		}
		e.logger.Debug("artifact written", zap.String("name", out.name), zap.String("uri", uri), zap.Int("rows", out.rows))
		artifacts = append(artifacts, Artifact{Name: out.name, URI: uri, Rows: out.rows})
	}
	return artifacts, nil
}

// MarshalRecords renders records as a two-space indented JSON array without
// HTML escaping and without a trailing newline.
func MarshalRecords(records []crawler.MetadataRecord) ([]byte, error) {
	if records == nil {
		records = []crawler.MetadataRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
