// Package verdict defines the per-rule PASS/FAIL verdict and the merge law
// that combines verdicts from deterministic checks and inference calls.
//
// # Merge Law
//
// Verdicts live on the two-element lattice PASS < FAIL. Once any source has
// recorded a FAIL for a rule, no later PASS may replace it:
//
//	merged := verdict.Merge(nil, deterministic)
//	merged = verdict.Merge(merged, chunkVerdicts)
//
// Because the merge is commutative and idempotent on status, chunk results may
// be folded in completion order. Accumulator wraps the map with a mutex for
// parallel folding.
package verdict
