// Package coerce repairs and decodes compact verdict JSON returned by an
// inference backend.
//
// # Wire Format
//
//	{"viol":[{"r":"<id>","s":"major","o":"<order>","w":"<where>","e":"<evidence>"}],
//	 "assessed":["<id>", ...]}
//
// # Repair Pipeline
//
// After sanitizing (CR, BOM and zero-width spaces removed, whitespace trimmed)
// the text is parsed by the first stage that succeeds:
//
//  1. direct parse
//  2. parse with markdown code fences removed
//  3. parse of the longest balanced {...} span, skipping quoted strings
//  4. parse after removing trailing commas before } or ]
//
// The result must be a JSON object. Malformed violation entries and ids the
// chunk did not request are dropped; the rest is returned as a typed
// ChunkResponse.
package coerce
