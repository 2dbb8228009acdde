package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"medqc-hq/medqc/pkg/config"
)

// decodeLines parses every JSON log line written to buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "text debug", cfg: Config{Level: "debug", Format: "text"}},
		{name: "redaction with custom pattern", cfg: Config{
			RedactPII:      true,
			RedactPatterns: []config.RedactPattern{{Name: "mrn", Pattern: `MRN-\d+`}},
		}},
		{name: "invalid level", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", cfg: Config{Format: "xml"}, wantErr: true},
		{name: "invalid custom pattern", cfg: Config{
			RedactPII:      true,
			RedactPatterns: []config.RedactPattern{{Name: "bad", Pattern: `(`}},
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("expected non-nil logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v", lines)
	}
}

func TestLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("chunk done", "rules", 3)

	out := buf.String()
	if !strings.Contains(out, `msg="chunk done"`) || !strings.Contains(out, "rules=3") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithAuditID(context.Background(), "audit-abc")
	ctx = WithChunk(ctx, 4)
	logger.InfoContext(ctx, "chunk accepted")
	logger.Info("no context")

	lines := decodeLines(t, &buf)
	if lines[0]["audit_id"] != "audit-abc" {
		t.Errorf("audit_id = %v", lines[0]["audit_id"])
	}
	if lines[0]["chunk"] != float64(4) {
		t.Errorf("chunk = %v", lines[0]["chunk"])
	}
	if _, ok := lines[1]["audit_id"]; ok {
		t.Error("record without context should carry no audit_id")
	}
}

func TestLogger_PIIRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		RedactPII:      true,
		RedactPatterns: []config.RedactPattern{{Name: "mrn", Pattern: `MRN-\d+`, Replacement: "MRN-***"}},
		Writer:         &buf,
	})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("component", "gateway").Warn("backend rejected sk-abcdef123456",
		"api_key", "secret-value-123",
		"contact", "ivanov@clinic.ru",
		"err", errors.New("patient MRN-4411 phone +7 (912) 345-67-89"),
		slog.Group("doc", slog.String("id", "123456789012")),
		"rules", 6,
	)

	line := decodeLines(t, &buf)[0]
	if line["msg"] != "backend rejected sk-***" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["api_key"] != "secr***" {
		t.Errorf("api_key = %v", line["api_key"])
	}
	if line["contact"] != "***@clinic.ru" {
		t.Errorf("contact = %v", line["contact"])
	}
	if e := line["err"].(string); strings.Contains(e, "4411") || strings.Contains(e, "345-67-89") {
		t.Errorf("err not redacted: %v", e)
	}
	if doc := line["doc"].(map[string]any); doc["id"] != "************" {
		t.Errorf("doc.id = %v", doc["id"])
	}
	if line["rules"] != float64(6) || line["component"] != "gateway" {
		t.Errorf("non-sensitive fields changed: %v", line)
	}
}

func TestLogger_NoRedactionWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FromConfig(config.LoggingConfig{DisableRedaction: true}, &buf))
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("contact", "email", "ivanov@clinic.ru")

	if line := decodeLines(t, &buf)[0]; line["email"] != "ivanov@clinic.ru" {
		t.Errorf("email = %v, want unredacted", line["email"])
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Nop logger should be disabled")
	}
	logger.Error("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
