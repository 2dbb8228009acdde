package coerce

import (
	"bytes"
	"encoding/json"
	"strings"

	"medqc-hq/medqc/pkg/verdict"
)

// PartialVerdict is one entry of the compact "viol" list. Only R is
// required; the catalog fills in or normalizes the rest.
type PartialVerdict struct {
	R string `json:"r"`
	S string `json:"s"`
	O string `json:"o"`
	W string `json:"w"`
	E string `json:"e"`
}

// Verdict converts the entry into an llm-sourced FAIL verdict. An unknown
// severity is left empty for the catalog to default.
func (p PartialVerdict) Verdict() verdict.Verdict {
	sev, _ := verdict.ParseSeverity(p.S)
	return verdict.Verdict{
		RuleID:   p.R,
		Status:   verdict.StatusFail,
		Severity: sev,
		Order:    p.O,
		Where:    p.W,
		Evidence: p.E,
		Source:   verdict.SourceLLM,
	}
}

// ChunkResponse is the typed form of one compact backend answer,
// restricted to the ids of the chunk that produced it.
type ChunkResponse struct {
	Violations []PartialVerdict `json:"viol"`
	Assessed   []string         `json:"assessed"`

	// Dropped counts entries discarded at the boundary: malformed
	// violations and ids that were not requested.
	Dropped int `json:"-"`
}

// Empty reports whether the response carries no information at all.
func (r ChunkResponse) Empty() bool {
	return len(r.Violations) == 0 && len(r.Assessed) == 0
}

// Reserialize returns the canonical compact JSON form of the response.
// Coercing the result again yields an equal response.
func (r ChunkResponse) Reserialize() string {
	out := struct {
		Violations []PartialVerdict `json:"viol"`
		Assessed   []string         `json:"assessed"`
	}{Violations: r.Violations, Assessed: r.Assessed}
	if out.Violations == nil {
		out.Violations = []PartialVerdict{}
	}
	if out.Assessed == nil {
		out.Assessed = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(out)
	return strings.TrimRight(buf.String(), "\n")
}

// decode parses text as the compact structure and filters it against the
// requested ids. Anything other than a JSON object fails.
func decode(text string, requested map[string]bool) (ChunkResponse, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return ChunkResponse{}, err
	}
	if top == nil {
		return ChunkResponse{}, errNotObject
	}

	var resp ChunkResponse

	var rawViol []json.RawMessage
	if v, ok := top["viol"]; ok && json.Unmarshal(v, &rawViol) != nil {
		rawViol = nil
	}
	for _, raw := range rawViol {
		var pv PartialVerdict
		if err := json.Unmarshal(raw, &pv); err != nil {
			resp.Dropped++
			continue
		}
		pv.R = strings.TrimSpace(pv.R)
		pv.S = strings.ToLower(strings.TrimSpace(pv.S))
		pv.O = strings.TrimSpace(pv.O)
		pv.W = strings.TrimSpace(pv.W)
		pv.E = strings.TrimSpace(pv.E)
		if pv.R == "" || !requested[pv.R] {
			resp.Dropped++
			continue
		}
		resp.Violations = append(resp.Violations, pv)
	}

	var rawAssessed []json.RawMessage
	if v, ok := top["assessed"]; ok && json.Unmarshal(v, &rawAssessed) != nil {
		rawAssessed = nil
	}
	seen := make(map[string]bool, len(rawAssessed))
	for _, raw := range rawAssessed {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			resp.Dropped++
			continue
		}
		id = strings.TrimSpace(id)
		if !requested[id] {
			resp.Dropped++
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		resp.Assessed = append(resp.Assessed, id)
	}

	return resp, nil
}
