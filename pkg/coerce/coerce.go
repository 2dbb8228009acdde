package coerce

import (
	"regexp"
	"strings"
)

// Stage identifies the repair step that produced a successful parse.
type Stage int

const (
	// StageNone means no stage succeeded.
	StageNone Stage = iota

	// StageDirect parsed the sanitized text as-is.
	StageDirect

	// StageFence parsed after removing markdown code fences.
	StageFence

	// StageBalanced parsed the longest balanced {...} span.
	StageBalanced

	// StageTrailingComma parsed after removing commas before } or ].
	StageTrailingComma
)

// String returns the stage name used in logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageFence:
		return "fence"
	case StageBalanced:
		return "balanced"
	case StageTrailingComma:
		return "trailing_comma"
	default:
		return "none"
	}
}

// Stages lists the repair steps in the order they are attempted.
var Stages = []Stage{StageDirect, StageFence, StageBalanced, StageTrailingComma}

var fenceRE = regexp.MustCompile("(?im)^```(?:json)?\\s*|\\s*```$")

var invisible = strings.NewReplacer("\r", "", "\ufeff", "", "\u200b", "")

// Sanitize removes carriage returns, byte-order marks and zero-width spaces,
// then trims surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(invisible.Replace(s))
}

// Coerce turns near-valid backend text into a ChunkResponse. Repair steps are
// tried in order and the first successful parse wins. Ids outside requested
// are discarded from both lists.
//
// When every step fails the error is an *UnrepairableError; callers treat
// it the same as an empty response.
func Coerce(raw string, requested []string) (ChunkResponse, Stage, error) {
	txt := Sanitize(raw)
	if txt == "" {
		return ChunkResponse{}, StageNone, &UnrepairableError{Cause: errEmpty}
	}

	allowed := make(map[string]bool, len(requested))
	for _, id := range requested {
		allowed[id] = true
	}

	if resp, err := decode(txt, allowed); err == nil {
		return resp, StageDirect, nil
	}

	unfenced := strings.TrimSpace(fenceRE.ReplaceAllString(txt, ""))
	if resp, err := decode(unfenced, allowed); err == nil {
		return resp, StageFence, nil
	}

	target := unfenced
	if blob := LongestBalanced(unfenced); blob != "" {
		if resp, err := decode(blob, allowed); err == nil {
			return resp, StageBalanced, nil
		}
		target = blob
	}

	fixed := StripTrailingCommas(target)
	resp, err := decode(fixed, allowed)
	if err == nil {
		return resp, StageTrailingComma, nil
	}
	return ChunkResponse{}, StageNone, &UnrepairableError{Snippet: snippet(txt), Cause: err}
}

// LongestBalanced returns the longest {...} span whose braces balance,
// ignoring braces inside quoted strings. It returns "" when none exists.
func LongestBalanced(s string) string {
	best := ""
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := closingBrace(s, i)
		if end < 0 {
			continue
		}
		if end-i+1 > len(best) {
			best = s[i : end+1]
		}
		// Every span starting inside this one ends inside it too.
		i = end
	}
	return best
}

// closingBrace returns the index of the brace that closes s[start], or -1.
func closingBrace(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for j := start; j < len(s); j++ {
		ch := s[j]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// StripTrailingCommas removes commas that are followed only by whitespace
// and a closing } or ]. Commas inside strings are kept.
func StripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '"' {
			inStr = true
		}
		if ch == ',' && closesNext(s, i+1) {
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func closesNext(s string, from int) bool {
	for k := from; k < len(s); k++ {
		switch s[k] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// LikelyTruncated reports whether text opens a JSON object that never
// closes, which usually means the backend hit its output token limit.
func LikelyTruncated(raw string) bool {
	s := Sanitize(raw)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	return closingBrace(s, 0) < 0
}

func snippet(s string) string {
	const limit = 220
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
