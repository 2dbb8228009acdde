package outputmode

import (
	"encoding/json"
	"strings"
)

// Severities is the closed severity set allowed in the compact wire format.
var Severities = []string{"critical", "major", "minor"}

// CompactSchemaName is the schema name sent to backends that require one.
const CompactSchemaName = "compact_audit"

// Limits bounds one compact response.
type Limits struct {
	// MaxItems is the maximum number of violations.
	MaxItems int

	// EvidenceMaxChars is the maximum evidence length per violation.
	EvidenceMaxChars int
}

// Contract builds the output constraint for one chunk. ids, orders and wheres
// become enums (empty orders or wheres leave the field unconstrained).
func Contract(mode Mode, ids, orders, wheres []string, limits Limits) Constraint {
	switch mode {
	case ModeSchema:
		return Constraint{Mode: ModeSchema, SchemaName: CompactSchemaName, Schema: CompactSchema(ids, orders, wheres, limits)}
	case ModeGrammar:
		return Constraint{Mode: ModeGrammar, Grammar: CompactGrammar(ids, orders, wheres)}
	default:
		return Constraint{Mode: ModePlainJSON}
	}
}

// CompactSchema returns the JSON schema of
// {"viol":[{"r","s","o","w","e"}...],"assessed":[...]}.
func CompactSchema(ids, orders, wheres []string, limits Limits) map[string]any {
	evidence := map[string]any{"type": "string", "minLength": 1}
	if limits.EvidenceMaxChars > 0 {
		evidence["maxLength"] = limits.EvidenceMaxChars
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"r": enumString(ids),
			"s": enumString(Severities),
			"o": enumString(orders),
			"w": enumString(wheres),
			"e": evidence,
		},
		"required":             []string{"r", "s", "o", "w", "e"},
		"additionalProperties": false,
	}

	viol := map[string]any{"type": "array", "items": item, "uniqueItems": true}
	if limits.MaxItems > 0 {
		viol["maxItems"] = limits.MaxItems
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"viol": viol,
			"assessed": map[string]any{
				"type":        "array",
				"items":       enumString(ids),
				"uniqueItems": true,
				"minItems":    1,
			},
		},
		"required":             []string{"viol", "assessed"},
		"additionalProperties": false,
	}
}

func enumString(values []string) map[string]any {
	s := map[string]any{"type": "string"}
	if len(values) > 0 {
		s["enum"] = append([]string(nil), values...)
	}
	return s
}

// CompactGrammar returns a GBNF grammar producing the compact shape with the
// same enums as CompactSchema. Item and length limits are left to the coercer.
func CompactGrammar(ids, orders, wheres []string) string {
	var b strings.Builder
	b.WriteString(`root     ::= ws "{" ws "\"viol\"" ws ":" ws viol ws "," ws "\"assessed\"" ws ":" ws assessed ws "}" ws` + "\n")
	b.WriteString(`viol     ::= "[" ws (item (ws "," ws item)*)? ws "]"` + "\n")
	b.WriteString(`assessed ::= "[" ws rid (ws "," ws rid)* ws "]"` + "\n")
	b.WriteString(`item     ::= "{" ws "\"r\"" ws ":" ws rid ws "," ws "\"s\"" ws ":" ws sev ws "," ws "\"o\"" ws ":" ws ord ws "," ws "\"w\"" ws ":" ws whr ws "," ws "\"e\"" ws ":" ws evid ws "}"` + "\n")
	b.WriteString("rid      ::= " + alternatives(ids) + "\n")
	b.WriteString("sev      ::= " + alternatives(Severities) + "\n")
	b.WriteString("ord      ::= " + alternatives(orders) + "\n")
	b.WriteString("whr      ::= " + alternatives(wheres) + "\n")
	b.WriteString(`evid     ::= "\"" jchar+ "\""` + "\n")
	b.WriteString(`jstring  ::= "\"" jchar* "\""` + "\n")
	b.WriteString(`jchar    ::= [^"\\\n\r] | "\\" ["\\/bfnrt]` + "\n")
	b.WriteString(`ws       ::= ([ \t\n\r])*` + "\n")
	return b.String()
}

// alternatives renders values as GBNF alternatives of JSON string literals,
// falling back to any JSON string when values is empty.
func alternatives(values []string) string {
	if len(values) == 0 {
		return "jstring"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, gbnfLiteral(jsonString(v)))
	}
	return strings.Join(parts, " | ")
}

func jsonString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// gbnfLiteral quotes s as a GBNF terminal.
func gbnfLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// SmokeSchema is the minimal schema used to detect schema support.
func SmokeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"ok": map[string]any{"type": "boolean"}},
		"required":             []string{"ok"},
		"additionalProperties": false,
	}
}

// SmokeGrammar forces the output {"ok": true}.
const SmokeGrammar = `root ::= ws obj ws
obj  ::= "{" ws "\"ok\"" ws ":" ws "true" ws "}"
ws   ::= ([ \t\n\r])*
`
