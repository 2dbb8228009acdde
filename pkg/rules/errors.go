package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCatalog is returned when no rules were found.
	ErrEmptyCatalog = errors.New("rule catalog is empty")

	// ErrDuplicateID is returned when two rules share an id.
	ErrDuplicateID = errors.New("duplicate rule id")

	// ErrInvalidRule is returned when a rule is missing required fields or
	// carries values outside the allowed sets.
	ErrInvalidRule = errors.New("invalid rule")
)

// LoadError describes a catalog load or validation failure.
// It is fatal at startup; a process never audits with a partial catalog.
type LoadError struct {
	// Path is the file or directory that failed (empty for New).
	Path string

	// RuleID is the offending rule, if known.
	RuleID string

	// Message describes the failure.
	Message string

	// Cause is the underlying error (one of the sentinels or an I/O/YAML error).
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var where string
	switch {
	case e.Path != "" && e.RuleID != "":
		where = fmt.Sprintf(" in %q (rule %q)", e.Path, e.RuleID)
	case e.Path != "":
		where = fmt.Sprintf(" in %q", e.Path)
	case e.RuleID != "":
		where = fmt.Sprintf(" (rule %q)", e.RuleID)
	}

	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule catalog%s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule catalog%s: %s", where, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
