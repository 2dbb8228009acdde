// Package report turns an audit result into the external report view.
package report

import (
	"medqc-hq/medqc/pkg/audit"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/verdict"
)

// Entry is one rule verdict with its catalog title.
type Entry struct {
	RuleID   string           `json:"rule_id"`
	Title    string           `json:"title"`
	Status   verdict.Status   `json:"status"`
	Severity verdict.Severity `json:"severity"`
	Order    string           `json:"order"`
	Where    string           `json:"where"`
	Evidence string           `json:"evidence"`
	Source   verdict.Source   `json:"source"`
}

// Report is the serialized form of one audit.
type Report struct {
	AuditID     string            `json:"audit_id"`
	DocName     string            `json:"doc_name,omitempty"`
	OK          bool              `json:"ok"`
	RulesTotal  int               `json:"rules_total"`
	Violations  []Entry           `json:"violations"`
	Passes      []Entry           `json:"passes"`
	Diagnostics audit.Diagnostics `json:"diagnostics"`
}

// FromResult builds the report. Both lists follow catalog order; OK is true
// when no rule failed.
func FromResult(res *audit.Result, catalog *rules.Catalog) *Report {
	r := &Report{
		AuditID:     res.AuditID,
		DocName:     res.DocName,
		Violations:  []Entry{},
		Passes:      []Entry{},
		Diagnostics: res.Diagnostics,
	}
	for _, id := range catalog.IDs() {
		v, ok := res.VerdictByRule[id]
		if !ok {
			continue
		}
		e := Entry{
			RuleID:   v.RuleID,
			Title:    id,
			Status:   v.Status,
			Severity: v.Severity,
			Order:    v.Order,
			Where:    v.Where,
			Evidence: v.Evidence,
			Source:   v.Source,
		}
		if spec, ok := catalog.Spec(id); ok && spec.Title != "" {
			e.Title = spec.Title
		}
		if v.Failed() {
			r.Violations = append(r.Violations, e)
		} else {
			r.Passes = append(r.Passes, e)
		}
	}
	r.RulesTotal = len(r.Violations) + len(r.Passes)
	r.OK = len(r.Violations) == 0
	return r
}

// Entries returns violations followed by passes.
func (r *Report) Entries() []Entry {
	out := make([]Entry, 0, len(r.Violations)+len(r.Passes))
	out = append(out, r.Violations...)
	return append(out, r.Passes...)
}
