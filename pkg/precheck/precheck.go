// Package precheck connects the deterministic text checks that run before
// any inference call. Their findings seed the audit's verdict map.
package precheck

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"medqc-hq/medqc/pkg/verdict"
)

// Item is one finding of a deterministic check.
type Item struct {
	RuleID   string `json:"rule_id"`
	Title    string `json:"title,omitempty"`
	Severity string `json:"severity,omitempty"`
	Order    string `json:"order,omitempty"`
	Where    string `json:"where,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// Result is the output of a deterministic check over the full document.
type Result struct {
	Passes     []Item `json:"passes"`
	Violations []Item `json:"violations"`
}

// Verdicts converts the result into deterministic verdicts: passes first,
// then violations. Items without a rule id are skipped. Severities are not
// validated here; the catalog defaults invalid ones on admission.
func (r Result) Verdicts() []verdict.Verdict {
	out := make([]verdict.Verdict, 0, len(r.Passes)+len(r.Violations))
	add := func(items []Item, status verdict.Status) {
		for _, it := range items {
			if it.RuleID == "" {
				continue
			}
			out = append(out, verdict.Verdict{
				RuleID:   it.RuleID,
				Status:   status,
				Severity: verdict.Severity(it.Severity),
				Order:    it.Order,
				Where:    it.Where,
				Evidence: it.Evidence,
				Source:   verdict.SourceDeterministic,
			})
		}
	}
	add(r.Passes, verdict.StatusPass)
	add(r.Violations, verdict.StatusFail)
	return out
}

// Checker runs deterministic checks over a document.
type Checker interface {
	Check(ctx context.Context, text string) (Result, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, text string) (Result, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// FileChecker returns a result computed ahead of time by the external
// validators and stored as JSON. The document text is ignored.
type FileChecker struct {
	Path string
}

// NewFileChecker creates a checker reading path.
func NewFileChecker(path string) *FileChecker {
	return &FileChecker{Path: path}
}

// Check reads and decodes the result file.
func (c *FileChecker) Check(ctx context.Context, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read precheck result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("failed to parse precheck result %q: %w", c.Path, err)
	}
	return r, nil
}
