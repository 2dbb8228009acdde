package outputmode

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeTester answers smoke tests per mode and counts calls.
type fakeTester struct {
	answers map[Mode]string
	errs    map[Mode]error
	calls   atomic.Int32
}

func (f *fakeTester) Smoke(ctx context.Context, c Constraint) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.errs[c.Mode]; err != nil {
		return "", err
	}
	return f.answers[c.Mode], nil
}

func TestNegotiator_Selection(t *testing.T) {
	tests := []struct {
		name     string
		tester   *fakeTester
		override Mode
		want     Mode
		calls    int32
	}{
		{
			name:   "schema supported",
			tester: &fakeTester{answers: map[Mode]string{ModeSchema: ` {"ok": true}`}},
			want:   ModeSchema,
			calls:  1,
		},
		{
			name: "schema ignored, grammar supported",
			tester: &fakeTester{answers: map[Mode]string{
				ModeSchema:  "Sure! Here is some JSON",
				ModeGrammar: `{"ok":true}`,
			}},
			want:  ModeGrammar,
			calls: 2,
		},
		{
			name: "both fail",
			tester: &fakeTester{
				answers: map[Mode]string{ModeGrammar: `{"ok": false}`},
				errs:    map[Mode]error{ModeSchema: errors.New("HTTP 500")},
			},
			want:  ModePlainJSON,
			calls: 2,
		},
		{
			name: "replies mentioning ok without a boolean member",
			tester: &fakeTester{answers: map[Mode]string{
				ModeSchema:  `{"status": "ok"}`,
				ModeGrammar: `{"ok": "true"}`,
			}},
			want:  ModePlainJSON,
			calls: 2,
		},
		{
			name: "schema reply inside prose",
			tester: &fakeTester{answers: map[Mode]string{
				ModeSchema:  `{"ok": true} is my answer`,
				ModeGrammar: `{"ok": true}`,
			}},
			want:  ModeGrammar,
			calls: 2,
		},
		{
			name:     "override wins without probing",
			tester:   &fakeTester{answers: map[Mode]string{ModeSchema: `{"ok": true}`}},
			override: ModeGrammar,
			want:     ModeGrammar,
			calls:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNegotiator(tt.tester, tt.override, 0, nil)
			if got := n.Mode(context.Background()); got != tt.want {
				t.Errorf("Mode() = %s, want %s", got, tt.want)
			}
			if got := tt.tester.calls.Load(); got != tt.calls {
				t.Errorf("smoke calls = %d, want %d", got, tt.calls)
			}
		})
	}
}

func TestNegotiator_Memoized(t *testing.T) {
	tester := &fakeTester{answers: map[Mode]string{ModeSchema: `{"ok": true}`}}
	n := NewNegotiator(tester, ModeUnprobed, 0, nil)

	if rep := n.Report(); rep.Selected != ModeUnprobed {
		t.Errorf("Report() before Mode = %s, want unprobed", rep.Selected)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := n.Mode(context.Background()); got != ModeSchema {
				t.Errorf("Mode() = %s", got)
			}
		}()
	}
	wg.Wait()

	if got := tester.calls.Load(); got != 1 {
		t.Errorf("smoke calls = %d, want 1", got)
	}
	if rep := n.Report(); rep.Selected != ModeSchema {
		t.Errorf("Report().Selected = %s, want schema", rep.Selected)
	}
}

func TestNegotiator_InterruptedNotMemoized(t *testing.T) {
	tester := &fakeTester{answers: map[Mode]string{ModeSchema: `{"ok": true}`}}
	n := NewNegotiator(tester, ModeUnprobed, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := n.Mode(ctx); got != ModePlainJSON {
		t.Errorf("Mode(cancelled) = %s, want plain_json", got)
	}
	if got := n.Report(); got.Selected != ModeUnprobed {
		t.Errorf("Report() after interrupted negotiation = %+v, want zero value", got)
	}

	if got := n.Mode(context.Background()); got != ModeSchema {
		t.Errorf("Mode() after interruption = %s, want schema", got)
	}
	calls := tester.calls.Load()
	if got := n.Mode(ctx); got != ModeSchema {
		t.Errorf("memoized Mode(cancelled) = %s, want schema", got)
	}
	if tester.calls.Load() != calls {
		t.Error("memoized negotiation probed again")
	}
}

func TestNegotiator_ProbeReportsErrors(t *testing.T) {
	cause := errors.New("connection refused")
	tester := &fakeTester{errs: map[Mode]error{ModeSchema: cause, ModeGrammar: cause}}
	rep := NewNegotiator(tester, ModeUnprobed, 0, nil).Probe(context.Background())

	if rep.Selected != ModePlainJSON {
		t.Errorf("Selected = %s, want plain_json", rep.Selected)
	}
	var ue *UnsupportedError
	if !errors.As(rep.SchemaErr, &ue) || ue.Mode != ModeSchema {
		t.Errorf("SchemaErr = %v, want *UnsupportedError for schema", rep.SchemaErr)
	}
	if !errors.Is(rep.GrammarErr, cause) {
		t.Errorf("GrammarErr = %v, want wrapped cause", rep.GrammarErr)
	}
}

func TestNegotiator_NilTester(t *testing.T) {
	n := NewNegotiator(nil, ModeUnprobed, 0, nil)
	if got := n.Mode(context.Background()); got != ModePlainJSON {
		t.Errorf("Mode() = %s, want plain_json", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeUnprobed, false},
		{"auto", ModeUnprobed, false},
		{"Schema", ModeSchema, false},
		{"gbnf", ModeGrammar, false},
		{"plain_json", ModePlainJSON, false},
		{"xml", ModeUnprobed, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestContract_Schema(t *testing.T) {
	c := Contract(ModeSchema, []string{"A", "B"}, []string{"D0"}, nil, Limits{MaxItems: 10, EvidenceMaxChars: 90})
	if c.Mode != ModeSchema || c.SchemaName != CompactSchemaName {
		t.Fatalf("unexpected constraint: %+v", c)
	}

	// Round-trip through JSON to inspect the schema as a backend would see it.
	data, err := json.Marshal(c.Schema)
	if err != nil {
		t.Fatal(err)
	}
	var schema struct {
		Required   []string `json:"required"`
		Properties struct {
			Viol struct {
				MaxItems int `json:"maxItems"`
				Items    struct {
					Properties map[string]struct {
						Enum      []string `json:"enum"`
						MaxLength int      `json:"maxLength"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"viol"`
			Assessed struct {
				Items struct {
					Enum []string `json:"enum"`
				} `json:"items"`
			} `json:"assessed"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"viol", "assessed"}, schema.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}
	props := schema.Properties.Viol.Items.Properties
	if diff := cmp.Diff([]string{"A", "B"}, props["r"].Enum); diff != "" {
		t.Errorf("r enum mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"D0"}, props["o"].Enum); diff != "" {
		t.Errorf("o enum mismatch (-want +got):\n%s", diff)
	}
	if props["w"].Enum != nil {
		t.Errorf("w should be unconstrained, got enum %v", props["w"].Enum)
	}
	if props["e"].MaxLength != 90 {
		t.Errorf("e maxLength = %d, want 90", props["e"].MaxLength)
	}
	if schema.Properties.Viol.MaxItems != 10 {
		t.Errorf("viol maxItems = %d, want 10", schema.Properties.Viol.MaxItems)
	}
	if diff := cmp.Diff([]string{"A", "B"}, schema.Properties.Assessed.Items.Enum); diff != "" {
		t.Errorf("assessed enum mismatch (-want +got):\n%s", diff)
	}
}

func TestContract_Grammar(t *testing.T) {
	c := Contract(ModeGrammar, []string{"A-1", `Q"X`}, nil, []string{"история болезни"}, Limits{})
	if c.Mode != ModeGrammar {
		t.Fatalf("mode = %s", c.Mode)
	}
	for _, want := range []string{
		`rid      ::= "\"A-1\"" | "\"Q\\\"X\""`,
		`whr      ::= "\"история болезни\""`,
		`ord      ::= jstring`,
		`sev      ::= "\"critical\"" | "\"major\"" | "\"minor\""`,
	} {
		if !strings.Contains(c.Grammar, want) {
			t.Errorf("grammar missing %q\n%s", want, c.Grammar)
		}
	}
}

func TestContract_PlainJSON(t *testing.T) {
	c := Contract(ModePlainJSON, []string{"A"}, nil, nil, Limits{})
	if c.Mode != ModePlainJSON || c.Schema != nil || c.Grammar != "" {
		t.Errorf("plain contract carries a constraint: %+v", c)
	}
}
