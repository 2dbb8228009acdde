package rules

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"medqc-hq/medqc/pkg/verdict"
)

// DefaultEvidenceMaxChars is applied to rules that do not set a limit.
const DefaultEvidenceMaxChars = 90

// Spec is the immutable description of one compliance rule.
type Spec struct {
	// ID is the unique catalog key (for example "STAC-07").
	ID string `yaml:"id" json:"id"`

	// Title is the human-readable rule name used in reports.
	Title string `yaml:"title" json:"title"`

	// DefaultSeverity is used when a verdict carries no valid severity.
	DefaultSeverity verdict.Severity `yaml:"severity" json:"severity"`

	// OrderDomain lists the regulatory stages a finding may reference.
	OrderDomain []string `yaml:"order_domain" json:"order_domain,omitempty"`

	// WhereDomain lists the document sections a finding may reference.
	WhereDomain []string `yaml:"where_domain" json:"where_domain,omitempty"`

	// EvidenceMaxChars bounds the stored evidence length in runes.
	EvidenceMaxChars int `yaml:"evidence_max_chars" json:"evidence_max_chars"`

	// Hint is a short question passed to the backend alongside the id.
	Hint string `yaml:"hint" json:"hint,omitempty"`
}

// Catalog is the closed set of rules an audit must cover.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	ids    []string
	specs  map[string]Spec
	orders []string
	wheres []string
}

// New builds a catalog from specs, preserving their order.
// Missing severities default to major and missing evidence limits to
// DefaultEvidenceMaxChars.
func New(specs []Spec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, &LoadError{Message: "no rules defined", Cause: ErrEmptyCatalog}
	}

	c := &Catalog{
		ids:   make([]string, 0, len(specs)),
		specs: make(map[string]Spec, len(specs)),
	}
	seenOrder := make(map[string]bool)
	seenWhere := make(map[string]bool)

	for i, s := range specs {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, &LoadError{Message: fmt.Sprintf("rule #%d has no id", i), Cause: ErrInvalidRule}
		}
		if _, dup := c.specs[s.ID]; dup {
			return nil, &LoadError{RuleID: s.ID, Message: "id declared more than once", Cause: ErrDuplicateID}
		}

		if s.DefaultSeverity == "" {
			s.DefaultSeverity = verdict.SeverityMajor
		}
		sev, ok := verdict.ParseSeverity(string(s.DefaultSeverity))
		if !ok {
			return nil, &LoadError{RuleID: s.ID, Message: fmt.Sprintf("unknown severity %q", s.DefaultSeverity), Cause: ErrInvalidRule}
		}
		s.DefaultSeverity = sev

		if s.EvidenceMaxChars < 0 {
			return nil, &LoadError{RuleID: s.ID, Message: "evidence_max_chars must not be negative", Cause: ErrInvalidRule}
		}
		if s.EvidenceMaxChars == 0 {
			s.EvidenceMaxChars = DefaultEvidenceMaxChars
		}
		if s.Title == "" {
			s.Title = s.ID
		}

		s.OrderDomain = append([]string(nil), s.OrderDomain...)
		s.WhereDomain = append([]string(nil), s.WhereDomain...)
		for _, o := range s.OrderDomain {
			if !seenOrder[o] {
				seenOrder[o] = true
				c.orders = append(c.orders, o)
			}
		}
		for _, w := range s.WhereDomain {
			if !seenWhere[w] {
				seenWhere[w] = true
				c.wheres = append(c.wheres, w)
			}
		}

		c.ids = append(c.ids, s.ID)
		c.specs[s.ID] = s
	}

	return c, nil
}

// IDs returns the rule ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Contains reports whether id belongs to the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.specs[id]
	return ok
}

// Spec returns the rule with the given id.
func (c *Catalog) Spec(id string) (Spec, bool) {
	s, ok := c.specs[id]
	return s, ok
}

// OrderDomain returns the union of all rules' order domains, first-seen order.
func (c *Catalog) OrderDomain() []string {
	return append([]string(nil), c.orders...)
}

// WhereDomain returns the union of all rules' where domains, first-seen order.
func (c *Catalog) WhereDomain() []string {
	return append([]string(nil), c.wheres...)
}

// Admit normalizes an incoming verdict against the catalog. It returns false
// for ids outside the catalog. Evidence is truncated to the rule's limit, an
// invalid severity is replaced by the rule default, and an order or where
// value outside the rule's domain becomes the first declared value.
func (c *Catalog) Admit(v verdict.Verdict) (verdict.Verdict, bool) {
	s, ok := c.specs[v.RuleID]
	if !ok {
		return verdict.Verdict{}, false
	}
	if sev, ok := verdict.ParseSeverity(string(v.Severity)); ok {
		v.Severity = sev
	} else {
		v.Severity = s.DefaultSeverity
	}
	v.Order = withinDomain(v.Order, s.OrderDomain)
	v.Where = withinDomain(v.Where, s.WhereDomain)
	v.Evidence = Truncate(v.Evidence, s.EvidenceMaxChars)
	return v, true
}

// withinDomain returns value when domain allows it. An empty domain allows
// anything.
func withinDomain(value string, domain []string) string {
	if len(domain) == 0 || slices.Contains(domain, value) {
		return value
	}
	return domain[0]
}

// AdmitAll applies Admit to every verdict, dropping unknown ids.
func (c *Catalog) AdmitAll(in []verdict.Verdict) []verdict.Verdict {
	out := make([]verdict.Verdict, 0, len(in))
	for _, v := range in {
		if adm, ok := c.Admit(v); ok {
			out = append(out, adm)
		}
	}
	return out
}

// Truncate shortens s to at most max runes, never splitting a code point.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
