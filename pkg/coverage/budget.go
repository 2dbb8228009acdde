package coverage

import "sync/atomic"

// RetryBudget is the per-audit allowance of escalations, shared by every
// chunk of one audit. The first chunks to need an escalation get it.
//
// RetryBudget is lock-free and safe for concurrent use:
//
//	budget := coverage.NewRetryBudget(cfg.Audit.RetryBudget)
//	if budget.Take() {
//	    // escalate this chunk
//	}
type RetryBudget struct {
	remaining int64
	used      int64
}

// NewRetryBudget creates a budget of n escalations. Negative values mean none.
func NewRetryBudget(n int) *RetryBudget {
	if n < 0 {
		n = 0
	}
	return &RetryBudget{remaining: int64(n)}
}

// Take consumes one escalation. It returns false when the budget is spent.
func (b *RetryBudget) Take() bool {
	if b == nil {
		return false
	}
	if atomic.AddInt64(&b.remaining, -1) < 0 {
		atomic.AddInt64(&b.remaining, 1)
		return false
	}
	atomic.AddInt64(&b.used, 1)
	return true
}

// Remaining returns the number of escalations left.
func (b *RetryBudget) Remaining() int {
	if b == nil {
		return 0
	}
	if r := atomic.LoadInt64(&b.remaining); r > 0 {
		return int(r)
	}
	return 0
}

// Used returns the number of escalations taken.
func (b *RetryBudget) Used() int {
	if b == nil {
		return 0
	}
	return int(atomic.LoadInt64(&b.used))
}
