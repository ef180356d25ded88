package verifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestReportOK(t *testing.T) {
	r := newReport("t")
	if !r.OK() {
		t.Fatal("empty report not OK")
	}
	r.CompactedAway = 5
	if !r.OK() {
		t.Fatal("compacted-away keys should not fail the run")
	}
	r.addMissing("k")
	if r.OK() {
		t.Fatal("report OK with a missing key")
	}
}

func TestReportSamplesBounded(t *testing.T) {
	r := newReport("t")
	for i := 0; i < 100; i++ {
		r.addMismatched(fmt.Sprintf("key-%03d", i))
	}
	if r.MismatchedCount != 100 {
		t.Fatalf("MismatchedCount = %d, want 100", r.MismatchedCount)
	}
	if len(r.Mismatched) != maxSamples {
		t.Fatalf("sample list holds %d keys, want %d", len(r.Mismatched), maxSamples)
	}
}

func TestReportWriteJSON(t *testing.T) {
	r := newReport("t")
	r.TotalKeysChecked = 50
	r.addUnexpected("stray")

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if out["total_keys_checked"].(float64) != 50 {
		t.Errorf("total_keys_checked = %v, want 50", out["total_keys_checked"])
	}
	if out["unexpected_count"].(float64) != 1 {
		t.Errorf("unexpected_count = %v, want 1", out["unexpected_count"])
	}
}
