package audit

import (
	"time"

	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/precheck"
	"medqc-hq/medqc/pkg/verdict"
)

// Request is one document to audit.
type Request struct {
	// DocName labels the document in logs and reports.
	DocName string

	// Text is the extracted document text. Required.
	Text string

	// Checker supplies the deterministic findings seeded before inference.
	// Optional.
	Checker precheck.Checker
}

// Result is a finished audit. VerdictByRule holds exactly one verdict per
// catalog id.
type Result struct {
	AuditID       string
	DocName       string
	VerdictByRule map[string]verdict.Verdict
	Diagnostics   Diagnostics
}

// Failed returns the number of FAIL verdicts.
func (r *Result) Failed() int {
	n := 0
	for _, v := range r.VerdictByRule {
		if v.Failed() {
			n++
		}
	}
	return n
}

// Diagnostics describes how an audit went. Degraded inference shows up here,
// never as missing verdicts.
type Diagnostics struct {
	// Elapsed is the wall time of the audit.
	Elapsed time.Duration `json:"-"`

	// ElapsedMS is Elapsed in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`

	// BytesSent and BytesReceived total the backend traffic.
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`

	// Mode is the structured-output mode used.
	Mode outputmode.Mode `json:"mode"`

	// Chunks is the number of scheduled chunks.
	Chunks int `json:"chunks"`

	// Calls is the number of gateway calls, escalation halves included.
	Calls int `json:"calls"`

	// Retries is the number of extra attempts inside gateway calls.
	Retries int `json:"retries"`

	// Escalations is the number of chunks split after weak coverage.
	Escalations int `json:"escalations"`

	// Unrepairable counts replies no repair stage could parse.
	Unrepairable int `json:"unrepairable"`

	// Transient and Rejected count calls that ended without a reply.
	Transient int `json:"transient"`
	Rejected  int `json:"rejected"`

	// ForcedFail counts rules failed because inference did not confirm them.
	ForcedFail int `json:"forced_fail"`

	// LikelyTruncated counts unparseable replies that looked cut off.
	LikelyTruncated int `json:"likely_truncated"`

	// DeadlineExceeded is set when the audit deadline passed before every
	// chunk was answered.
	DeadlineExceeded bool `json:"deadline_exceeded"`

	// Cancelled is set when the caller cancelled the audit.
	Cancelled bool `json:"cancelled"`

	// SkippedInference is set when no backend call was attempted.
	SkippedInference bool `json:"skipped_inference"`

	// Seeded is the number of deterministic verdicts merged before inference.
	Seeded int `json:"seeded"`

	// RepairStages counts parsed replies per repair stage.
	RepairStages map[string]int `json:"repair_stages,omitempty"`

	// RawSamples keeps the first raw replies, shortened.
	RawSamples []string `json:"raw_samples,omitempty"`
}
