package export

import (
	"context"
	"encoding/json"
	"io"

	"medqc-hq/medqc/pkg/report"
)

// JSONExporter exports reports to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes the report as one JSON object followed by a newline.
// Non-ASCII text is written as is.
func (e *JSONExporter) Export(ctx context.Context, r *report.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := len(r.Violations) + len(r.Passes)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return newError("json", rows, err)
	}
	return nil
}
