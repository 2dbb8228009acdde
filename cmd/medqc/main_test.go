package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	mock "medqc-hq/medqc/internal/providers"
	"medqc-hq/medqc/pkg/cli"
	"medqc-hq/medqc/pkg/report"
)

const testCatalog = `
defaults:
  order_domain: [timeline]
  where_domain: [history]
rules:
  - id: R1
    title: Admission time recorded
    severity: minor
  - id: R2
    title: Discharge summary signed
    severity: critical
`

// execute runs the root command with args and returns stdout. Flag values
// and their Changed marks are reset first since commands are package state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}

// writeConfig writes a config pointing at baseURL and a two-rule catalog.
func writeConfig(t *testing.T, dir, baseURL, extra string) string {
	t.Helper()
	catalog := writeFile(t, dir, "rules.yaml", testCatalog)
	return writeFile(t, dir, "medqc.yaml", `
backend:
  type: ollama
  base_url: `+baseURL+`
  model: test-model
  retry_backoff: 1ms
catalog:
  path: `+catalog+`
document:
  strategy: full
telemetry:
  logging:
    level: error
`+extra)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "medqc "+Version+"\n") {
		t.Errorf("output = %q", out)
	}
	for _, want := range []string{"Git Commit:", "Build Date:", "Go Version:", "OS/Arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestAuditCommand(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	reply := `{"viol":[{"r":"R2","s":"major","o":"timeline","w":"history","e":"summary not signed"}],"assessed":["R1","R2"]}`
	server.SetResponse("/api/chat", mock.MockResponse{Body: mock.MockOllamaResponse(reply, "test-model")})

	dir := t.TempDir()
	cfg := writeConfig(t, dir, server.URL(), "")
	doc := writeFile(t, dir, "case-17.txt", "Поступил 12.03 в 10:40. Выписной эпикриз без подписи.")
	out := filepath.Join(dir, "report.json")
	prom := filepath.Join(dir, "medqc.prom")

	if _, err := execute(t, "audit", "--config", cfg, "--document", doc, "--mode", "plain_json",
		"--output", out, "--metrics-file", prom); err != nil {
		t.Fatalf("audit error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}

	if rep.OK || rep.RulesTotal != 2 || rep.DocName != "case-17.txt" {
		t.Errorf("report = %+v", rep)
	}
	want := []report.Entry{{
		RuleID:   "R2",
		Title:    "Discharge summary signed",
		Status:   "FAIL",
		Severity: "major",
		Order:    "timeline",
		Where:    "history",
		Evidence: "summary not signed",
		Source:   "llm",
	}}
	if diff := cmp.Diff(want, rep.Violations); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Passes) != 1 || rep.Passes[0].RuleID != "R1" {
		t.Errorf("passes = %+v", rep.Passes)
	}
	if server.GetRequestCount() != 1 {
		t.Errorf("backend requests = %d, want 1 (no probing with --mode)", server.GetRequestCount())
	}

	metrics, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("metrics snapshot not written: %v", err)
	}
	if !strings.Contains(string(metrics), `medqc_audit_audits_total{mode="plain_json"} 1`) {
		t.Errorf("metrics snapshot missing audit counter:\n%s", metrics)
	}
}

func TestAuditCommand_CSV(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/api/chat", mock.MockResponse{Body: mock.MockOllamaResponse(`{"viol":[],"assessed":["R1"]}`, "test-model")})

	dir := t.TempDir()
	cfg := writeConfig(t, dir, server.URL(), "")
	doc := writeFile(t, dir, "case.txt", "Клинический диагноз: ОИМ.")

	out, err := execute(t, "audit", "--config", cfg, "--document", doc, "--mode", "schema",
		"--format", "csv", "--chunk-size", "1", "--concurrency", "2")
	if err != nil {
		t.Fatalf("audit error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header and two rows:\n%s", len(lines), out)
	}
	if lines[0] != "rule_id,title,status,severity,order,where,evidence,source" {
		t.Errorf("header = %q", lines[0])
	}
	// R2 is never assessed by the backend: it fails, violations first.
	if !strings.HasPrefix(lines[1], "R2,") || !strings.Contains(lines[1], "not confirmed by inference") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "R1,") || !strings.Contains(lines[2], ",PASS,") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestAuditCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "http://127.0.0.1:1", "")
	doc := writeFile(t, dir, "case.txt", "text")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "missing document flag", args: []string{"audit", "--config", cfg}, code: cli.ExitFailure},
		{name: "unreadable document", args: []string{"audit", "--config", cfg, "--document", filepath.Join(dir, "nope.txt")}, code: cli.ExitFailure},
		{name: "unknown format", args: []string{"audit", "--config", cfg, "--document", doc, "--format", "xml"}, code: cli.ExitConfig},
		{name: "bad timeout", args: []string{"audit", "--config", cfg, "--document", doc, "--timeout", "soon"}, code: cli.ExitConfig},
		{name: "bad mode", args: []string{"audit", "--config", cfg, "--document", doc, "--mode", "xml"}, code: cli.ExitConfig},
		{name: "missing config", args: []string{"audit", "--config", filepath.Join(dir, "none.yaml"), "--document", doc}, code: cli.ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := cli.ExitCode(err); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d (err = %v)", got, tt.code, err)
			}
		})
	}
}

func TestProbeCommand(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/api/tags", mock.MockResponse{Body: `{"models":[]}`})
	server.SetResponse("/api/chat", mock.MockResponse{Body: mock.MockOllamaResponse(`{"ok": true}`, "test-model")})

	dir := t.TempDir()
	cfg := writeConfig(t, dir, server.URL(), "")

	out, err := execute(t, "probe", "--config", cfg, "--format", "json")
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	var got probeResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("probe output is not JSON: %v\n%s", err, out)
	}
	if got.Mode != "schema" || got.Override || !got.Reachable || got.Model != "test-model" {
		t.Errorf("probe = %+v", got)
	}
}

func TestProbeCommand_Unreachable(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/api/tags", mock.MockResponse{StatusCode: 503, Body: `{"error":"loading"}`})

	dir := t.TempDir()
	cfg := writeConfig(t, dir, server.URL(), "")

	out, err := execute(t, "probe", "--config", cfg)
	var ce *cli.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("probe error = %v, want *cli.CommandError", err)
	}
	if !strings.Contains(out, "Backend unreachable") {
		t.Errorf("output = %q", out)
	}
	for _, req := range server.Requests() {
		if req.Path == "/api/chat" {
			t.Error("smoke tests must not run against an unreachable backend")
		}
	}
}

func TestProbeCommand_Override(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	dir := t.TempDir()
	cfg := writeConfig(t, dir, server.URL(), "")
	t.Setenv("MEDQC_BACKEND_OUTPUT_MODE", "grammar")

	out, err := execute(t, "probe", "--config", cfg)
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if !strings.Contains(out, "Mode: grammar (configured override)") {
		t.Errorf("output = %q", out)
	}
	if server.GetRequestCount() != 0 {
		t.Errorf("backend requests = %d, want none", server.GetRequestCount())
	}
}

func TestCatalogIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", testCatalog)

	out, err := execute(t, "catalog", "ids", "--path", path)
	if err != nil {
		t.Fatalf("catalog ids error = %v", err)
	}
	want := "R1\tminor\tAdmission time recorded\nR2\tcritical\tDischarge summary signed\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = execute(t, "catalog", "ids", "--path", path, "--format", "json")
	if err != nil {
		t.Fatalf("catalog ids --format json error = %v", err)
	}
	var list []ruleLine
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(list) != 2 || list[1].Severity != "critical" {
		t.Errorf("list = %+v", list)
	}
}

func TestCatalogLint(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yaml", testCatalog)
	dup := writeFile(t, dir, "dup.yaml", "- id: R1\n- id: R1\n")

	out, err := execute(t, "catalog", "lint", "--path", valid)
	if err != nil {
		t.Fatalf("lint error = %v", err)
	}
	if !strings.Contains(out, "2 rules valid") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "catalog", "lint", "--path", dup)
	var ce *cli.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("lint error = %v, want *cli.CommandError", err)
	}
	if !strings.HasPrefix(out, "✗ ") {
		t.Errorf("output = %q", out)
	}
}
