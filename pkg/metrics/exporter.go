package metrics

import (
	"fmt"
	"net/http"

	"github.com/markpapadakis/redpanda/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(RecordsGenerated, ProduceAcks, ProduceFailures, StaleUpdates)
	prometheus.MustRegister(RecordsConsumed, FetchRetries)
	prometheus.MustRegister(StateEntries, KeysMismatched, KeysMissing, KeysUnexpected)
}

// StartMetricsServer exposes /metrics on the given port in the background.
func StartMetricsServer(port int) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		http.Handle("/metrics", promhttp.Handler())
		util.Info("Prometheus exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			util.Error("metrics server failed: %v", err)
		}
	}()
}
