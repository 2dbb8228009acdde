package outputmode

import (
	"fmt"
	"strings"
)

// Mode is a structured-output mechanism supported by the inference backend.
type Mode string

const (
	// ModeUnprobed is the zero value before negotiation has run.
	ModeUnprobed Mode = ""

	// ModeSchema constrains output with a JSON schema.
	ModeSchema Mode = "schema"

	// ModeGrammar constrains output with a GBNF grammar.
	ModeGrammar Mode = "grammar"

	// ModePlainJSON only asks the backend for JSON.
	ModePlainJSON Mode = "plain_json"
)

// String returns the mode name, "unprobed" for the zero value.
func (m Mode) String() string {
	if m == ModeUnprobed {
		return "unprobed"
	}
	return string(m)
}

// ParseMode parses an operator-supplied mode. The empty string and "auto"
// return ModeUnprobed, meaning no override.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeUnprobed, nil
	case "schema", "json_schema":
		return ModeSchema, nil
	case "grammar", "gbnf":
		return ModeGrammar, nil
	case "plain_json", "plain", "json":
		return ModePlainJSON, nil
	default:
		return ModeUnprobed, fmt.Errorf("unknown output mode %q (valid: auto, schema, grammar, plain_json)", s)
	}
}

// Constraint is the structured-output constraint attached to one backend call.
// Providers translate it to their wire format.
type Constraint struct {
	// Mode selects which of the other fields is meaningful.
	Mode Mode

	// Schema is the JSON schema for ModeSchema.
	Schema map[string]any

	// SchemaName names the schema for backends that require one.
	SchemaName string

	// Grammar is the GBNF grammar for ModeGrammar.
	Grammar string
}
