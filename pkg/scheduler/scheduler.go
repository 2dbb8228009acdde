// Package scheduler partitions a rule catalog into bounded chunks of work.
package scheduler

import (
	"errors"
	"fmt"
	"math"

	"medqc-hq/medqc/pkg/outputmode"
)

// ErrInvalidChunkSize is returned when the chunk size is not positive.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// MinOutputTokens is the floor applied when an escalation shrinks the budget.
const MinOutputTokens = 128

// Budget bounds a single backend response.
type Budget struct {
	// MaxViolations is the maximum number of violations the backend may report.
	MaxViolations int

	// MaxEvidenceChars is the per-violation evidence limit communicated to the backend.
	MaxEvidenceChars int

	// MaxOutputTokens caps generated tokens for the call.
	MaxOutputTokens int
}

// Limits converts the budget into the limits used by an output contract.
func (b Budget) Limits() outputmode.Limits {
	return outputmode.Limits{MaxItems: b.MaxViolations, EvidenceMaxChars: b.MaxEvidenceChars}
}

// ChunkRequest is one unit of backend work.
type ChunkRequest struct {
	// Index is the chunk position in the schedule. Escalation halves keep
	// the index of their parent.
	Index int

	// RuleIDs is the ordered, non-empty list of ids to assess.
	RuleIDs []string

	// Mode is the negotiated output mode, set by the orchestrator.
	Mode outputmode.Mode

	// Budget bounds the response.
	Budget Budget
}

// IDLister is the part of the rule catalog the scheduler needs.
type IDLister interface {
	IDs() []string
}

// Split partitions the catalog into contiguous chunks of at most chunkSize
// ids. Catalog order is preserved, chunks are disjoint and their union is
// the whole catalog.
func Split(catalog IDLister, chunkSize int, budget Budget) ([]ChunkRequest, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}

	ids := catalog.IDs()
	chunks := make([]ChunkRequest, 0, (len(ids)+chunkSize-1)/chunkSize)
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ChunkRequest{
			Index:   len(chunks),
			RuleIDs: append([]string(nil), ids[start:end]...),
			Budget:  budget,
		})
	}
	return chunks, nil
}

// Halve splits req into two requests covering the first and second half of
// its ids, each with the budget scaled by shrink (0 < shrink <= 1; other
// values mean 0.5). It returns ok=false when req has fewer than two ids.
func Halve(req ChunkRequest, shrink float64) (left, right ChunkRequest, ok bool) {
	if len(req.RuleIDs) < 2 {
		return req, ChunkRequest{}, false
	}
	if shrink <= 0 || shrink > 1 {
		shrink = 0.5
	}

	mid := (len(req.RuleIDs) + 1) / 2
	b := shrinkBudget(req.Budget, shrink)

	left = ChunkRequest{Index: req.Index, RuleIDs: append([]string(nil), req.RuleIDs[:mid]...), Mode: req.Mode, Budget: b}
	right = ChunkRequest{Index: req.Index, RuleIDs: append([]string(nil), req.RuleIDs[mid:]...), Mode: req.Mode, Budget: b}
	return left, right, true
}

func shrinkBudget(b Budget, f float64) Budget {
	out := b
	out.MaxViolations = int(math.Ceil(float64(b.MaxViolations) * f))
	if out.MaxViolations < 1 {
		out.MaxViolations = 1
	}
	if b.MaxOutputTokens > 0 {
		scaled := max(MinOutputTokens, int(math.Ceil(float64(b.MaxOutputTokens)*f)))
		out.MaxOutputTokens = min(b.MaxOutputTokens, scaled)
	}
	return out
}
