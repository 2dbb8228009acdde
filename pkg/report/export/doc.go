// Package export writes audit reports as JSON or CSV.
//
// JSON carries the whole report, diagnostics included:
//
//	exp := export.NewJSONExporter(true)
//	err := exp.Export(ctx, report.FromResult(res, catalog), os.Stdout)
//
// CSV has one row per rule with the columns in Header, violations first.
package export
