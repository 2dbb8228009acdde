package audit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned when the document has no text to audit.
var ErrEmptyDocument = errors.New("document is empty")

// CoverageGapError reports catalog rules left without a verdict. Coverage
// enforcement closes every chunk, so this error indicates a defect, not a
// runtime condition.
type CoverageGapError struct {
	// AuditID identifies the audit.
	AuditID string

	// Missing lists the ids without a verdict, in catalog order.
	Missing []string
}

// Error implements the error interface.
func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("audit %s: %d rules without a verdict: %s",
		e.AuditID, len(e.Missing), strings.Join(e.Missing, ", "))
}
