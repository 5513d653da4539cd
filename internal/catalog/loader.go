// Package catalog ingests assessment data into a store and carries the
// built-in seed catalog that mock mode serves.
//
// Scraped catalog exports are messy: list-valued cells arrive as JSON
// arrays, Python-style literals, or bare comma-separated strings, and the
// odd row is broken outright. The loader is tolerant by contract; it
// normalizes what it can, counts and skips what it cannot, and never lets
// one bad row abort an import.
package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/storage"
)

// DefaultSource tags imported rows when neither the CSV nor the caller
// names an origin.
const DefaultSource = "shl_individual_assessments.csv"

// ImportResult counts per-row outcomes of a best-effort load.
type ImportResult struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// Loader parses catalog CSV documents and upserts their rows into a store.
type Loader struct {
	store  storage.Store
	logger *slog.Logger
}

// NewLoader returns a loader writing to the given store.
func NewLoader(store storage.Store, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// LoadCSV ingests one CSV document. Rows are upserted one at a time: a
// malformed row or a failed write is logged, counted, and skipped. Only an
// unreadable header or a missing name column fails the load as a whole.
//
// The source argument tags rows whose source cell is empty; pass "" to
// fall back to DefaultSource.
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader, source string) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // scraped exports have ragged rows

	header, err := cr.Read()
	if err != nil {
		return res, fmt.Errorf("catalog: read csv header: %w", err)
	}
	cols := headerIndex(header)
	if _, ok := cols["name"]; !ok {
		return res, fmt.Errorf("catalog: csv has no name column")
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.ErrorCount++
			l.logger.Warn("skipping unreadable catalog row", "error", err)
			continue
		}

		a, err := l.assessmentFromRow(cols, row, source)
		if err != nil {
			res.ErrorCount++
			l.logger.Warn("skipping invalid catalog row", "error", err)
			continue
		}

		if _, err := l.store.UpsertAssessment(ctx, a); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.ErrorCount++
			l.logger.Warn("failed to store catalog row", "name", a.Name, "error", err)
			continue
		}
		res.SuccessCount++
	}

	l.logger.Info("catalog import finished",
		"success_count", res.SuccessCount,
		"error_count", res.ErrorCount)
	return res, nil
}

func (l *Loader) assessmentFromRow(cols columnIndex, row []string, source string) (model.Assessment, error) {
	name := cols.get(row, "name")
	if name == "" {
		return model.Assessment{}, fmt.Errorf("catalog: row has no name")
	}

	testTypes := model.NormalizeTestTypes(parseList(cols.get(row, "test_types")))
	for _, t := range testTypes {
		if !model.KnownTestType(t) {
			l.logger.Warn("unknown test type in catalog row", "name", name, "test_type", t)
		}
	}

	if s := cols.get(row, "source"); s != "" {
		source = s
	}
	if source == "" {
		source = DefaultSource
	}

	id := cols.get(row, "id")
	if id == "" {
		id = MintID(name)
	}

	d := model.ParseDuration(cols.get(row, "duration"))
	return model.Assessment{
		ID:                 id,
		Name:               name,
		Description:        cols.get(row, "description"),
		URL:                cols.get(row, "url"),
		RemoteTesting:      parseBool(cols.get(row, "remote_testing")),
		AdaptiveIRT:        parseBool(cols.get(row, "adaptive_irt")),
		TestTypes:          testTypes,
		JobLevels:          model.NormalizeList(parseList(cols.get(row, "job_levels"))),
		Languages:          model.NormalizeList(parseList(cols.get(row, "languages"))),
		KeyFeatures:        model.NormalizeList(parseList(cols.get(row, "key_features"))),
		DurationText:       d.Text,
		DurationMinMinutes: d.MinMinutes,
		DurationMaxMinutes: d.MaxMinutes,
		IsUntimed:          d.IsUntimed,
		IsVariable:         d.IsVariable,
		Source:             source,
	}, nil
}

// MintID derives a stable UUID from the assessment name. Name-keyed ids
// make reloading the same catalog an update rather than a duplication.
func MintID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("assessment:"+name)).String()
}

// columnIndex maps lowercased header names to their positions.
type columnIndex map[string]int

func headerIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff") // Excel exports lead with a BOM
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseList accepts the list encodings catalog exports actually contain:
// a JSON array, a Python-style bracketed literal with single quotes, or a
// bare comma- or semicolon-separated string.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var vals []string
		if err := json.Unmarshal([]byte(s), &vals); err == nil {
			return vals
		}
		s = s[1 : len(s)-1]
	}

	sep := ","
	if strings.Contains(s, ";") && !strings.Contains(s, ",") {
		sep = ";"
	}

	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool accepts the truthy spellings found in catalog exports.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "t":
		return true
	}
	return false
}
