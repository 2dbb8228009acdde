package export

import (
	"context"
	"encoding/csv"
	"io"

	"medqc-hq/medqc/pkg/report"
)

// CSVExporter exports report entries to CSV format, one row per rule.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Header is the CSV column list.
var Header = []string{"rule_id", "title", "status", "severity", "order", "where", "evidence", "source"}

// Export writes violations, then passes. Diagnostics are not part of the CSV.
func (e *CSVExporter) Export(ctx context.Context, r *report.Report, w io.Writer) error {
	entries := r.Entries()
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return newError("csv", len(entries), err)
		}
	}

	for i, entry := range entries {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := writer.Write(entryToRow(entry)); err != nil {
			return newError("csv", len(entries), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return newError("csv", len(entries), err)
	}
	return nil
}

// entryToRow converts an entry to a CSV row.
func entryToRow(e report.Entry) []string {
	return []string{
		e.RuleID,
		e.Title,
		string(e.Status),
		string(e.Severity),
		e.Order,
		e.Where,
		e.Evidence,
		string(e.Source),
	}
}
