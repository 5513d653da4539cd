package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ashita-ai/mekiki/internal/model"
)

// csvHeader is the column order WriteCSV emits. LoadCSV consumes the same
// columns by name, so a written file reloads without loss.
var csvHeader = []string{
	"id", "name", "url", "remote_testing", "adaptive_irt", "test_types",
	"description", "job_levels", "duration", "languages", "key_features",
	"source",
}

// WriteCSV serializes assessments in the loader's column format. Lists are
// written as JSON arrays, the unambiguous encoding among those the loader
// accepts.
func WriteCSV(w io.Writer, items []model.Assessment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("catalog: write csv header: %w", err)
	}
	for _, a := range items {
		row := []string{
			a.ID,
			a.Name,
			a.URL,
			strconv.FormatBool(a.RemoteTesting),
			strconv.FormatBool(a.AdaptiveIRT),
			encodeList(a.TestTypes),
			a.Description,
			encodeList(a.JobLevels),
			a.DurationText,
			encodeList(a.Languages),
			encodeList(a.KeyFeatures),
			a.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("catalog: write csv row %q: %w", a.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeList(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(vals)
	return string(b)
}
