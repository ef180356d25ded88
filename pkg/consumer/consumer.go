// Package consumer reads the possibly compacted topic end to end. It does no
// verification itself; it hands every surviving record to a callback along
// with the log bounds, because absence is signal for the diff layer.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/metrics"
	"github.com/markpapadakis/redpanda/util"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ConsumeError reports a consume phase that could not make progress within
// its retry budget.
type ConsumeError struct {
	Attempts int
	Err      error
}

func (e *ConsumeError) Error() string {
	return fmt.Sprintf("consume failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConsumeError) Unwrap() error {
	return e.Err
}

// Observed is a single record read back from the topic.
type Observed struct {
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// Bounds carries per-partition log offsets captured before the read. Start is
// the oldest retained offset, so anything below it has been compacted or
// deleted away; End is the high watermark.
type Bounds struct {
	Start map[int32]int64
	End   map[int32]int64
}

// Consumer reads each partition from the log start in a single pass. Records
// within one partition arrive in non-decreasing offset order; no ordering
// holds across partitions.
type Consumer struct {
	cfg    *config.Config
	client *kgo.Client
}

// New builds a Consumer positioned at the start of every partition.
func New(cfg *config.Config) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.WithLogger(util.KgoLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("create consumer client: %w", err)
	}
	return &Consumer{cfg: cfg, client: client}, nil
}

// LogBounds fetches the current start and end offset for every partition of
// the topic.
func (c *Consumer) LogBounds(ctx context.Context) (Bounds, error) {
	adm := kadm.NewClient(c.client)
	b := Bounds{Start: map[int32]int64{}, End: map[int32]int64{}}

	starts, err := adm.ListStartOffsets(ctx, c.cfg.Topic)
	if err != nil {
		return Bounds{}, fmt.Errorf("list start offsets: %w", err)
	}
	if err := starts.Error(); err != nil {
		return Bounds{}, fmt.Errorf("list start offsets: %w", err)
	}
	starts.Each(func(lo kadm.ListedOffset) {
		b.Start[lo.Partition] = lo.Offset
	})

	ends, err := adm.ListEndOffsets(ctx, c.cfg.Topic)
	if err != nil {
		return Bounds{}, fmt.Errorf("list end offsets: %w", err)
	}
	if err := ends.Error(); err != nil {
		return Bounds{}, fmt.Errorf("list end offsets: %w", err)
	}
	ends.Each(func(lo kadm.ListedOffset) {
		b.End[lo.Partition] = lo.Offset
	})
	return b, nil
}

// Run reads every partition from its start offset up to the high watermark
// captured at entry, invoking fn for each record. Stalled polls back off
// exponentially; the phase fails once the retry budget is spent.
func (c *Consumer) Run(ctx context.Context, fn func(Observed)) (Bounds, error) {
	backoff := time.Duration(c.cfg.RetryBackoffMS) * time.Millisecond
	maxWait := time.Duration(c.cfg.MaxBackoffMS) * time.Millisecond
	attempts := 0

	// The bounds lookup shares the read retry budget with the poll loop.
	var bounds Bounds
	for {
		b, err := c.LogBounds(ctx)
		if err == nil {
			bounds = b
			break
		}
		attempts++
		metrics.FetchRetries.Inc()
		if attempts > c.cfg.ConsumeRetries {
			return Bounds{}, &ConsumeError{Attempts: attempts, Err: err}
		}
		util.Warn("log bounds attempt %d/%d failed, backing off %v: %v", attempts, c.cfg.ConsumeRetries, backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return Bounds{}, &ConsumeError{Attempts: attempts, Err: ctx.Err()}
		}
		if backoff *= 2; backoff > maxWait {
			backoff = maxWait
		}
	}

	remaining := map[int32]int64{}
	for p, end := range bounds.End {
		if end > bounds.Start[p] {
			remaining[p] = end
		}
	}

	backoff = time.Duration(c.cfg.RetryBackoffMS) * time.Millisecond
	attempts = 0

	for len(remaining) > 0 {
		pollCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.PollTimeoutMS)*time.Millisecond)
		fetches := c.client.PollFetches(pollCtx)
		cancel()

		if fetches.IsClientClosed() {
			return bounds, &ConsumeError{Attempts: attempts, Err: fmt.Errorf("client closed")}
		}

		fetchFailed := false
		var lastErr error
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				// Poll deadline, counted below as a stalled attempt.
				return
			}
			fetchFailed = true
			lastErr = fmt.Errorf("fetch %s/%d: %w", topic, partition, err)
			util.Warn("fetch error on %s/%d: %v", topic, partition, err)
		})

		progressed := false
		fetches.EachRecord(func(r *kgo.Record) {
			progressed = true
			metrics.RecordsConsumed.Inc()
			fn(Observed{Key: r.Key, Value: r.Value, Partition: r.Partition, Offset: r.Offset})
			if end, ok := remaining[r.Partition]; ok && r.Offset+1 >= end {
				delete(remaining, r.Partition)
			}
		})

		if progressed && !fetchFailed {
			attempts = 0
			backoff = time.Duration(c.cfg.RetryBackoffMS) * time.Millisecond
			continue
		}

		attempts++
		metrics.FetchRetries.Inc()
		if attempts > c.cfg.ConsumeRetries {
			if lastErr == nil {
				lastErr = fmt.Errorf("no progress reading %d partitions", len(remaining))
			}
			return bounds, &ConsumeError{Attempts: attempts, Err: lastErr}
		}
		util.Warn("consume attempt %d/%d stalled, backing off %v", attempts, c.cfg.ConsumeRetries, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return bounds, &ConsumeError{Attempts: attempts, Err: ctx.Err()}
		}
		if backoff *= 2; backoff > maxWait {
			backoff = maxWait
		}
	}
	return bounds, nil
}

// Close releases the underlying client.
func (c *Consumer) Close() {
	c.client.Close()
}
