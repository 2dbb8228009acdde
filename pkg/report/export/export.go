package export

import (
	"context"
	"fmt"
	"io"

	"medqc-hq/medqc/pkg/report"
)

// Exporter writes a report in one format.
type Exporter interface {
	Export(ctx context.Context, r *report.Report, w io.Writer) error
}

// New returns the exporter for format ("json" or "csv").
func New(format string, pretty bool) (Exporter, error) {
	switch format {
	case "", "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (valid: json, csv)", format)
	}
}

// Error represents a failure while writing a report.
type Error struct {
	Format string // Export format ("json", "csv")
	Rows   int    // Number of rows being exported
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("export error [format=%s, rows=%d]: %v", e.Format, e.Rows, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(format string, rows int, cause error) *Error {
	return &Error{Format: format, Rows: rows, Cause: cause}
}
