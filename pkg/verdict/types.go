package verdict

import "strings"

// Status is the PASS/FAIL outcome for one rule.
// The two values form a lattice where PASS < FAIL.
type Status string

const (
	// StatusPass means the rule was assessed and satisfied.
	StatusPass Status = "PASS"

	// StatusFail means the rule was violated or could not be confirmed.
	StatusFail Status = "FAIL"
)

// Rank returns the lattice position of the status. Unknown values rank as PASS.
func (s Status) Rank() int {
	if s == StatusFail {
		return 1
	}
	return 0
}

// Severity is the impact class of a rule violation.
type Severity string

const (
	// SeverityCritical marks violations that invalidate the document.
	SeverityCritical Severity = "critical"

	// SeverityMajor marks violations that require correction.
	SeverityMajor Severity = "major"

	// SeverityMinor marks formal defects.
	SeverityMinor Severity = "minor"
)

// ParseSeverity normalizes a severity string. It returns false for values
// outside the critical/major/minor set.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityMajor:
		return SeverityMajor, true
	case SeverityMinor:
		return SeverityMinor, true
	default:
		return "", false
	}
}

// Source identifies which component produced a verdict.
type Source string

const (
	// SourceDeterministic is used for verdicts from rule-based text checks.
	SourceDeterministic Source = "deterministic"

	// SourceLLM is used for verdicts derived from inference backend output,
	// including synthetic FAIL verdicts for unconfirmed rules.
	SourceLLM Source = "llm"
)

// Verdict is the PASS/FAIL determination and metadata for one rule id.
type Verdict struct {
	// RuleID is the catalog identifier of the rule.
	RuleID string `json:"rule_id"`

	// Status is PASS or FAIL.
	Status Status `json:"status"`

	// Severity is the violation severity (or the rule default for PASS).
	Severity Severity `json:"severity"`

	// Order is the regulatory stage the finding refers to.
	Order string `json:"order"`

	// Where is the document section the finding refers to.
	Where string `json:"where"`

	// Evidence is a short excerpt or marker supporting the verdict.
	Evidence string `json:"evidence"`

	// Source is the producer of the verdict.
	Source Source `json:"source"`
}

// Failed reports whether the verdict is a FAIL.
func (v Verdict) Failed() bool {
	return v.Status == StatusFail
}
