package verifier

import (
	"encoding/json"
	"io"
)

// maxSamples bounds how many offending keys each category lists in the
// report. Counts are always exact.
const maxSamples = 20

// Report is the outcome of a consume phase diff.
type Report struct {
	Topic            string `json:"topic"`
	TotalKeysChecked int    `json:"total_keys_checked"`
	MismatchedCount  int    `json:"mismatched_count"`
	MissingCount     int    `json:"missing_count"`
	UnexpectedCount  int    `json:"unexpected_count"`
	CompactedAway    int    `json:"compacted_away"`
	RecordsObserved  int64  `json:"records_observed"`

	Mismatched []string `json:"mismatched_keys,omitempty"`
	Missing    []string `json:"missing_keys,omitempty"`
	Unexpected []string `json:"unexpected_keys,omitempty"`
}

func newReport(topic string) *Report {
	return &Report{Topic: topic}
}

func (r *Report) addMismatched(key string) {
	r.MismatchedCount++
	if len(r.Mismatched) < maxSamples {
		r.Mismatched = append(r.Mismatched, key)
	}
}

func (r *Report) addMissing(key string) {
	r.MissingCount++
	if len(r.Missing) < maxSamples {
		r.Missing = append(r.Missing, key)
	}
}

func (r *Report) addUnexpected(key string) {
	r.UnexpectedCount++
	if len(r.Unexpected) < maxSamples {
		r.Unexpected = append(r.Unexpected, key)
	}
}

// OK reports whether the diff found no failures. Compacted-away keys do not
// count against the run.
func (r *Report) OK() bool {
	return r.MismatchedCount == 0 && r.MissingCount == 0 && r.UnexpectedCount == 0
}

// Write emits the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
