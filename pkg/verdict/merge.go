package verdict

import "sync"

// Merge folds incoming verdicts into existing and returns the same map
// (allocated when existing is nil).
//
// The conflict law is FAIL dominates PASS:
//   - no entry for the id: insert
//   - existing PASS, incoming FAIL: replace
//   - existing FAIL: keep, whatever arrives
//   - equal status: keep existing (first writer wins for evidence and metadata)
//
// On the status lattice the operation is commutative, associative and
// idempotent, so results from any number of sources may be folded in any order.
func Merge(existing map[string]Verdict, incoming []Verdict) map[string]Verdict {
	if existing == nil {
		existing = make(map[string]Verdict, len(incoming))
	}
	for _, v := range incoming {
		if v.RuleID == "" {
			continue
		}
		cur, ok := existing[v.RuleID]
		if !ok || v.Status.Rank() > cur.Status.Rank() {
			existing[v.RuleID] = v
		}
	}
	return existing
}

// Accumulator is a mutex-guarded verdict map used when chunk results are
// folded from several goroutines.
type Accumulator struct {
	mu       sync.Mutex
	verdicts map[string]Verdict
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{verdicts: make(map[string]Verdict)}
}

// Fold merges incoming verdicts under the accumulator lock.
func (a *Accumulator) Fold(incoming []Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verdicts = Merge(a.verdicts, incoming)
}

// Has reports whether a verdict exists for id.
func (a *Accumulator) Has(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.verdicts[id]
	return ok
}

// Len returns the number of rule ids with a verdict.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.verdicts)
}

// Snapshot returns a copy of the accumulated verdicts.
func (a *Accumulator) Snapshot() map[string]Verdict {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]Verdict, len(a.verdicts))
	for id, v := range a.verdicts {
		out[id] = v
	}
	return out
}
