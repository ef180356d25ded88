package verifier

import (
	"github.com/markpapadakis/redpanda/pkg/consumer"
	"github.com/markpapadakis/redpanda/pkg/state"
	"github.com/markpapadakis/redpanda/util"
)

// observedEntry is the last surviving write seen for a key during readback.
type observedEntry struct {
	valueHash string
	offset    int64
}

// diff compares the expected state against the last surviving write per key.
// An expected key absent from the readback is exonerated only when its
// recorded offset sits below the partition's log start captured at the
// beginning of the read; a retention window that never moved exonerates
// nothing.
func diff(store *state.Store, observed map[string]observedEntry, bounds consumer.Bounds) *Report {
	report := newReport(store.Topic())

	store.Each(func(key string, e state.Entry) {
		report.TotalKeysChecked++
		o, ok := observed[key]
		if !ok {
			if e.Offset < bounds.Start[e.Partition] {
				// Compacted away, correct behavior for an old write.
				report.CompactedAway++
				return
			}
			util.Error("missing key=%q expected offset=%d partition=%d", key, e.Offset, e.Partition)
			report.addMissing(key)
			return
		}
		if o.valueHash != e.ValueHash {
			// Wrong value, or an older version survived compaction
			// in place of the last write.
			util.Error("mismatch key=%q expected hash=%s offset=%d, observed hash=%s offset=%d",
				key, e.ValueHash, e.Offset, o.valueHash, o.offset)
			report.addMismatched(key)
		}
	})

	for key, o := range observed {
		if _, ok := store.Lookup(key); !ok {
			util.Error("unexpected key=%q observed at offset=%d", key, o.offset)
			report.addUnexpected(key)
		}
	}
	return report
}
