// Command verifier checks that topic compaction preserves last-value-per-key
// semantics. It has two operations:
//
//	verifier --broker host:9092 --topic t --state-file t.state produce --num-records 1000
//	verifier --broker host:9092 --topic t --state-file t.state consume
//
// produce writes deterministic keyed records and persists the expected
// last value per key; consume, typically after brokers restarted and
// compaction ran, reads the topic back and diffs it against that state.
// Exit status: 0 clean, 1 mismatches or runtime failure, 2 bad usage.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/metrics"
	"github.com/markpapadakis/redpanda/pkg/verifier"
	"github.com/markpapadakis/redpanda/util"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, cmd, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	util.SetLevel(cfg.LogLevel)

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	v := verifier.New(cfg)
	ctx := context.Background()

	switch cmd {
	case "produce":
		if err := v.Produce(ctx); err != nil {
			var ce *config.ConfigError
			if errors.As(err, &ce) {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 2
			}
			util.Error("produce failed: %v", err)
			return 1
		}
		return 0

	case "consume":
		report, err := v.Consume(ctx)
		if err != nil {
			util.Error("consume failed: %v", err)
			return 1
		}
		if err := report.Write(os.Stdout); err != nil {
			util.Error("write report: %v", err)
			return 1
		}
		if !report.OK() {
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "usage: verifier [flags] produce|consume [flags]\n")
		return 2
	}
}
