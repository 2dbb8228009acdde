package gateway_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"medqc-hq/medqc/pkg/gateway"
	"medqc-hq/medqc/pkg/scheduler"
)

func TestDomains(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name       string
		ids        []string
		wantOrders []string
		wantWheres []string
	}{
		{"union of chunk rules", []string{"A", "B"}, []string{"203n", "1n"}, []string{"diagnosis", "plan"}},
		{"single rule", []string{"B"}, []string{"1n"}, []string{"plan"}},
		{"catalog fallback", []string{"C"}, []string{"203n", "1n"}, []string{"diagnosis", "plan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, wheres := gateway.Domains(catalog, scheduler.ChunkRequest{RuleIDs: tt.ids})
			if diff := cmp.Diff(tt.wantOrders, orders); diff != "" {
				t.Errorf("orders mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantWheres, wheres); diff != "" {
				t.Errorf("wheres mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	catalog := testCatalog(t)
	req := testRequest()

	prompt := gateway.BuildPrompt("", catalog, req, "Discharge summary.")

	wants := []string{
		gateway.DefaultInstruction,
		`{"viol":[{"r":"<rule_id>"`,
		"Assess ONLY: A, B.",
		"- A: Is the diagnosis justified?",
		"Field o must be one of: 203n, 1n.",
		"Field w must be one of: diagnosis, plan.",
		"Field s must be one of: critical, major, minor.",
		"Report at most 10 violations in total; evidence at most 90 characters.",
		`"assessed"`,
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "- B:") {
		t.Error("rules without a hint should not get a hint line")
	}
	if !strings.HasSuffix(prompt, "\n\n"+gateway.DocumentMarker+"\nDischarge summary.") {
		t.Errorf("document section must come last:\n%s", prompt)
	}
}

func TestBuildPrompt_Variants(t *testing.T) {
	catalog := testCatalog(t)

	custom := gateway.BuildPrompt("Audit strictly.", catalog, scheduler.ChunkRequest{RuleIDs: []string{"C"}}, "")
	if !strings.HasPrefix(custom, "Audit strictly.\n") {
		t.Errorf("custom instruction not used:\n%s", custom)
	}
	if strings.Contains(custom, gateway.DocumentMarker) {
		t.Error("empty document should omit the document section")
	}
	if strings.Contains(custom, "Report at most") {
		t.Error("zero budget should omit the limits line")
	}
}
