package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"go.uber.org/zap"
)

// ErrLiveSourceUnavailable is returned when a source is asked for live data
// but only mock data is wired.
var ErrLiveSourceUnavailable = errors.New("live source integration is not enabled")

// Record is a raw, source-shaped upstream record
type Record interface {
	RecordID() string
}

// Enrichable records can be handed to the extraction service for enrichment
type Enrichable interface {
	Record
	ExternalRecord() models.ExternalRecord
}

// Pending is a first-pass draft plus the raw record it came from
type Pending struct {
	Draft models.Draft
	Raw   Record
}

// Source fetches raw records from one upstream system and transforms them into drafts
type Source interface {
	Name() models.Source
	Fetch(ctx context.Context) ([]Record, error)
	ToDrafts(records []Record) []Pending
}

// Loader returns the raw JSON array a source reads from
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileLoader reads mock data from a local file. A missing file yields no data.
type FileLoader struct {
	Path   string
	Logger *zap.Logger
}

// Load reads the file
func (l FileLoader) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		logger.OrNop(l.Logger).Warn("mock_data_file_missing", zap.String("path", logger.SanitizePath(l.Path)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mock data %s: %w", l.Path, err)
	}
	return data, nil
}

// LiveUnavailable stands in for a real upstream API client
type LiveUnavailable struct {
	Source models.Source
}

// Load always fails with ErrLiveSourceUnavailable
func (l LiveUnavailable) Load(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("%s: %w", l.Source, ErrLiveSourceUnavailable)
}

// NewLoader returns a FileLoader in mock mode and LiveUnavailable otherwise
func NewLoader(source models.Source, useMock bool, path string, log *zap.Logger) Loader {
	if useMock {
		return FileLoader{Path: path, Logger: log}
	}
	return LiveUnavailable{Source: source}
}

// decodeRecords decodes a JSON array of T. Empty input yields no records.
func decodeRecords[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return out, nil
}

// RecordID is an upstream identifier that may arrive as a JSON string or number
type RecordID string

// UnmarshalJSON accepts strings and numbers
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// ExternalID derives the deduplication key for a record id
func ExternalID(prefix, recordID string) string {
	return prefix + "_" + recordID
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
