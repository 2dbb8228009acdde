package scheduler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"medqc-hq/medqc/pkg/outputmode"
)

type idList []string

func (l idList) IDs() []string { return l }

func TestSplit_Partition(t *testing.T) {
	budget := Budget{MaxViolations: 10, MaxEvidenceChars: 90, MaxOutputTokens: 768}
	chunks, err := Split(idList{"A", "B", "C", "D", "E"}, 2, budget)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	var got [][]string
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Budget != budget {
			t.Errorf("chunk %d budget = %+v", i, c.Budget)
		}
		got = append(got, c.RuleIDs)
	}

	want := [][]string{{"A", "B"}, {"C", "D"}, {"E"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_Properties(t *testing.T) {
	for n := 0; n <= 13; n++ {
		for k := 1; k <= 7; k++ {
			t.Run(fmt.Sprintf("N%d_K%d", n, k), func(t *testing.T) {
				ids := make(idList, n)
				for i := range ids {
					ids[i] = fmt.Sprintf("R%02d", i)
				}

				chunks, err := Split(ids, k, Budget{})
				if err != nil {
					t.Fatal(err)
				}
				if want := (n + k - 1) / k; len(chunks) != want {
					t.Fatalf("got %d chunks, want %d", len(chunks), want)
				}

				var flat []string
				for _, c := range chunks {
					if len(c.RuleIDs) == 0 || len(c.RuleIDs) > k {
						t.Errorf("chunk size %d out of range", len(c.RuleIDs))
					}
					flat = append(flat, c.RuleIDs...)
				}
				if diff := cmp.Diff([]string(ids), flat, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("concatenated chunks differ from catalog (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestSplit_InvalidChunkSize(t *testing.T) {
	for _, k := range []int{0, -1} {
		if _, err := Split(idList{"A"}, k, Budget{}); !errors.Is(err, ErrInvalidChunkSize) {
			t.Errorf("Split(k=%d) error = %v, want ErrInvalidChunkSize", k, err)
		}
	}
}

func TestSplit_DoesNotAliasCatalog(t *testing.T) {
	ids := idList{"A", "B", "C"}
	chunks, _ := Split(ids, 2, Budget{})
	chunks[0].RuleIDs[0] = "X"
	if ids[0] != "A" {
		t.Error("mutating a chunk changed the catalog slice")
	}
}

func TestHalve(t *testing.T) {
	req := ChunkRequest{
		Index:   3,
		RuleIDs: []string{"A", "B", "C", "D", "E"},
		Mode:    outputmode.ModeSchema,
		Budget:  Budget{MaxViolations: 10, MaxEvidenceChars: 90, MaxOutputTokens: 768},
	}

	left, right, ok := Halve(req, 0.5)
	if !ok {
		t.Fatal("Halve() returned ok=false")
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, left.RuleIDs); diff != "" {
		t.Errorf("left mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"D", "E"}, right.RuleIDs); diff != "" {
		t.Errorf("right mismatch (-want +got):\n%s", diff)
	}

	wantBudget := Budget{MaxViolations: 5, MaxEvidenceChars: 90, MaxOutputTokens: 384}
	for _, half := range []ChunkRequest{left, right} {
		if half.Budget != wantBudget {
			t.Errorf("half budget = %+v, want %+v", half.Budget, wantBudget)
		}
		if half.Index != 3 || half.Mode != outputmode.ModeSchema {
			t.Errorf("half lost parent metadata: %+v", half)
		}
	}
}

func TestHalve_Floors(t *testing.T) {
	req := ChunkRequest{RuleIDs: []string{"A", "B"}, Budget: Budget{MaxViolations: 1, MaxOutputTokens: 200}}
	left, _, ok := Halve(req, 0.1)
	if !ok {
		t.Fatal("Halve() returned ok=false")
	}
	if left.Budget.MaxViolations != 1 {
		t.Errorf("MaxViolations = %d, want floor 1", left.Budget.MaxViolations)
	}
	if left.Budget.MaxOutputTokens != MinOutputTokens {
		t.Errorf("MaxOutputTokens = %d, want floor %d", left.Budget.MaxOutputTokens, MinOutputTokens)
	}
}

func TestHalve_NeverExceedsParentBudget(t *testing.T) {
	tests := []struct {
		parent int
		want   int
	}{
		{parent: 100, want: 100},
		{parent: MinOutputTokens, want: MinOutputTokens},
		{parent: 300, want: 150},
	}
	for _, tt := range tests {
		req := ChunkRequest{RuleIDs: []string{"A", "B"}, Budget: Budget{MaxViolations: 4, MaxOutputTokens: tt.parent}}
		left, right, ok := Halve(req, 0.5)
		if !ok {
			t.Fatal("Halve() returned ok=false")
		}
		for _, half := range []ChunkRequest{left, right} {
			if half.Budget.MaxOutputTokens != tt.want {
				t.Errorf("parent %d: half MaxOutputTokens = %d, want %d", tt.parent, half.Budget.MaxOutputTokens, tt.want)
			}
		}
	}
}

func TestHalve_SingleID(t *testing.T) {
	req := ChunkRequest{RuleIDs: []string{"A"}}
	if _, _, ok := Halve(req, 0.5); ok {
		t.Error("Halve() of a single-id chunk should return ok=false")
	}
}
