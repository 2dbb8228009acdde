package gateway

import (
	"fmt"
	"strings"

	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/scheduler"
)

// DefaultInstruction opens every chunk prompt unless the operator sets
// audit.system_prompt.
const DefaultInstruction = "You are an auditor of clinical records. Check ONLY the rule ids listed below and return ONLY valid JSON of the form:"

// DocumentMarker separates the instructions from the document text.
const DocumentMarker = "=== DOCUMENT ==="

// compactShape is the wire format the backend must produce.
const compactShape = `{"viol":[{"r":"<rule_id>","s":"critical|major|minor","o":"<order>","w":"<where>","e":"<short evidence>"}],"assessed":["<rule_id>","..."]}`

// RuleLookup is the part of the catalog the gateway needs.
type RuleLookup interface {
	Spec(id string) (rules.Spec, bool)
	OrderDomain() []string
	WhereDomain() []string
}

// Domains returns the order and where values allowed for req: the ordered
// union of the chunk's rule domains, or the catalog-wide domains when the
// chunk's rules declare none.
func Domains(lookup RuleLookup, req scheduler.ChunkRequest) (orders, wheres []string) {
	seenOrder := make(map[string]bool)
	seenWhere := make(map[string]bool)
	for _, id := range req.RuleIDs {
		spec, ok := lookup.Spec(id)
		if !ok {
			continue
		}
		for _, o := range spec.OrderDomain {
			if !seenOrder[o] {
				seenOrder[o] = true
				orders = append(orders, o)
			}
		}
		for _, w := range spec.WhereDomain {
			if !seenWhere[w] {
				seenWhere[w] = true
				wheres = append(wheres, w)
			}
		}
	}
	if len(orders) == 0 {
		orders = lookup.OrderDomain()
	}
	if len(wheres) == 0 {
		wheres = lookup.WhereDomain()
	}
	return orders, wheres
}

// BuildPrompt renders the user message for one chunk: instruction, output
// shape, the explicit rule ids with their hints, the allowed order and where
// values, the limits, and finally the document.
func BuildPrompt(instruction string, lookup RuleLookup, req scheduler.ChunkRequest, document string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	orders, wheres := Domains(lookup, req)

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteByte('\n')
	b.WriteString(compactShape)
	b.WriteByte('\n')

	fmt.Fprintf(&b, "Assess ONLY: %s.\n", strings.Join(req.RuleIDs, ", "))
	for _, id := range req.RuleIDs {
		if spec, ok := lookup.Spec(id); ok && spec.Hint != "" {
			fmt.Fprintf(&b, "- %s: %s\n", id, spec.Hint)
		}
	}

	if len(orders) > 0 {
		fmt.Fprintf(&b, "Field o must be one of: %s. ", strings.Join(orders, ", "))
	}
	if len(wheres) > 0 {
		fmt.Fprintf(&b, "Field w must be one of: %s. ", strings.Join(wheres, ", "))
	}
	fmt.Fprintf(&b, "Field s must be one of: %s.\n", strings.Join(outputmode.Severities, ", "))

	if req.Budget.MaxViolations > 0 {
		fmt.Fprintf(&b, "Report at most %d violations in total", req.Budget.MaxViolations)
		if req.Budget.MaxEvidenceChars > 0 {
			fmt.Fprintf(&b, "; evidence at most %d characters", req.Budget.MaxEvidenceChars)
		}
		b.WriteString(".\n")
	}

	b.WriteString(`List every rule you checked in "assessed", whether violated or not. `)
	b.WriteString("No comments or text outside the JSON. Write evidence in the language of the document.")

	if document != "" {
		b.WriteString("\n\n")
		b.WriteString(DocumentMarker)
		b.WriteByte('\n')
		b.WriteString(document)
	}
	return b.String()
}
