package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"medqc-hq/medqc/pkg/audit"
	"medqc-hq/medqc/pkg/report"
	"medqc-hq/medqc/pkg/verdict"
)

func testReport() *report.Report {
	return &report.Report{
		AuditID:    "3f1c",
		DocName:    "case.pdf",
		RulesTotal: 2,
		Violations: []report.Entry{{
			RuleID: "A", Title: "Admission time", Status: verdict.StatusFail, Severity: verdict.SeverityMajor,
			Order: "timeline", Where: "история болезни", Evidence: `нет времени, "ПО"`, Source: verdict.SourceLLM,
		}},
		Passes: []report.Entry{{
			RuleID: "B", Title: "Consent", Status: verdict.StatusPass, Severity: verdict.SeverityMinor, Source: verdict.SourceDeterministic,
		}},
		Diagnostics: audit.Diagnostics{Chunks: 1, Mode: "schema", RepairStages: map[string]int{"direct": 1}},
	}
}

func TestJSONExporter(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).Export(context.Background(), testReport(), &buf); err != nil {
			t.Fatalf("Export(pretty=%v) error = %v", pretty, err)
		}

		out := buf.String()
		if !strings.Contains(out, "история болезни") {
			t.Errorf("non-ASCII text should not be escaped:\n%s", out)
		}
		if pretty != strings.Contains(out, "\n  ") {
			t.Errorf("pretty=%v output:\n%s", pretty, out)
		}

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		for _, key := range []string{"audit_id", "ok", "rules_total", "violations", "passes", "diagnostics"} {
			if _, ok := got[key]; !ok {
				t.Errorf("missing key %q", key)
			}
		}
		diag := got["diagnostics"].(map[string]any)
		if diag["mode"] != "schema" || diag["chunks"] != float64(1) {
			t.Errorf("diagnostics = %v", diag)
		}
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), testReport(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	want := [][]string{
		Header,
		{"A", "Admission time", "FAIL", "major", "timeline", "история болезни", `нет времени, "ПО"`, "llm"},
		{"B", "Consent", "PASS", "minor", "", "", "", "deterministic"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), &report.Report{}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty report without header wrote %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriteError(t *testing.T) {
	for _, exp := range []Exporter{NewJSONExporter(false), NewCSVExporter(true)} {
		err := exp.Export(context.Background(), testReport(), failingWriter{})
		var exportErr *Error
		if !errors.As(err, &exportErr) {
			t.Errorf("%T: error = %v, want *Error", exp, err)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"", "*export.JSONExporter", false},
		{"json", "*export.JSONExporter", false},
		{"csv", "*export.CSVExporter", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := New(tt.format, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v", tt.format, err)
			}
			if tt.wantErr {
				return
			}
			if got := typeName(exp); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *JSONExporter:
		return "*export.JSONExporter"
	case *CSVExporter:
		return "*export.CSVExporter"
	default:
		return "unknown"
	}
}
