package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecordsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_records_generated_total",
		Help: "Total records drawn from the generator",
	})

	ProduceAcks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_produce_acks_total",
		Help: "Total records acknowledged by the brokers",
	})

	ProduceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_produce_failures_total",
		Help: "Total records that failed after retries",
	})

	StaleUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_stale_updates_total",
		Help: "Total acknowledgments rejected for carrying a non-monotonic offset",
	})

	RecordsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_records_consumed_total",
		Help: "Total records read back during the consume phase",
	})

	FetchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verifier_fetch_retries_total",
		Help: "Total stalled fetch attempts that were retried",
	})

	StateEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verifier_state_entries",
		Help: "Keys currently tracked in the expected state",
	})

	KeysMismatched = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verifier_keys_mismatched",
		Help: "Keys whose observed value differs from the expected one",
	})

	KeysMissing = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verifier_keys_missing",
		Help: "Expected keys absent from the topic and not compacted away",
	})

	KeysUnexpected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verifier_keys_unexpected",
		Help: "Observed keys the expected state never tracked",
	})
)
