// Package producer drives the produce phase: it pushes generated records at
// the topic and folds every acknowledgment into the expected state.
package producer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/generator"
	"github.com/markpapadakis/redpanda/pkg/metrics"
	"github.com/markpapadakis/redpanda/pkg/state"
	"github.com/markpapadakis/redpanda/util"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ProduceError reports a record that failed delivery after retries. Records
// acknowledged before the failure stay in the expected state; there is no
// rollback of durable writes.
type ProduceError struct {
	Key       string
	Partition int32
	Err       error
}

func (e *ProduceError) Error() string {
	return fmt.Sprintf("produce failed for key %q partition %d: %v", e.Key, e.Partition, e.Err)
}

func (e *ProduceError) Unwrap() error {
	return e.Err
}

// Producer owns the client for the produce phase. Records are partitioned by
// key hash, so every write to a key lands on one partition and the per-key
// offsets the state records are totally ordered.
type Producer struct {
	cfg    *config.Config
	store  *state.Store
	client *kgo.Client
}

// New builds a Producer against cfg's brokers, recording acks into store.
func New(cfg *config.Config, store *state.Store) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
		kgo.RecordRetries(cfg.RecordRetries),
		kgo.ProducerLinger(time.Duration(cfg.LingerMS) * time.Millisecond),
		kgo.MaxBufferedRecords(cfg.MaxInFlight),
		kgo.WithLogger(util.KgoLogger{}),
	}

	switch cfg.Acks {
	case "all", "-1":
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	case "1":
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	case "0":
		util.Warn("acks=0 returns no offsets; expected state will not track last writes")
		opts = append(opts, kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite())
	default:
		return nil, &config.ConfigError{Field: "acks", Reason: fmt.Sprintf("must be one of all, -1, 1, 0; got %q", cfg.Acks)}
	}

	switch cfg.CompressionType {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	default:
		opts = append(opts, kgo.ProducerBatchCompression(kgo.NoCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create producer client: %w", err)
	}
	return &Producer{cfg: cfg, store: store, client: client}, nil
}

// EnsureTopic creates the compacted topic if it does not exist. An existing
// topic is fine; its settings are left alone.
func (p *Producer) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)

	configs := map[string]*string{
		"cleanup.policy": kadm.StringPtr("compact"),
		"segment.bytes":  kadm.StringPtr(strconv.Itoa(p.cfg.SegmentSize)),
	}
	_, err := adm.CreateTopic(ctx, int32(p.cfg.Partitions), int16(p.cfg.ReplicationFactor), configs, p.cfg.Topic)
	if err != nil {
		if errors.Is(err, kerr.TopicAlreadyExists) {
			util.Debug("topic %s already exists", p.cfg.Topic)
			return nil
		}
		return fmt.Errorf("create topic %s: %w", p.cfg.Topic, err)
	}
	util.Info("created topic %s with %d partitions, rf=%d, segment.bytes=%d",
		p.cfg.Topic, p.cfg.Partitions, p.cfg.ReplicationFactor, p.cfg.SegmentSize)
	return nil
}

// Run drains the generator through the async producer and waits for every
// acknowledgment. The first delivery failure stops submission of further
// records; already buffered records still flush.
func (p *Producer) Run(ctx context.Context, gen *generator.Generator) error {
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
		acked    int64
	)

	util.Info("producing %d records over %d keys to %s", gen.Remaining(), gen.Cardinality(), p.cfg.Topic)
	for {
		rec, ok := gen.Next()
		if !ok {
			break
		}
		metrics.RecordsGenerated.Inc()

		errMu.Lock()
		failed := firstErr != nil
		errMu.Unlock()
		if failed {
			break
		}

		r := &kgo.Record{Key: rec.Key, Value: rec.Value, Timestamp: rec.Timestamp}
		wg.Add(1)
		p.client.Produce(ctx, r, func(r *kgo.Record, err error) {
			defer wg.Done()
			if err != nil {
				metrics.ProduceFailures.Inc()
				errMu.Lock()
				if firstErr == nil {
					firstErr = &ProduceError{Key: string(r.Key), Partition: r.Partition, Err: err}
				}
				errMu.Unlock()
				return
			}
			metrics.ProduceAcks.Inc()
			if p.store.Update(string(r.Key), r.Value, r.Partition, r.Offset) {
				util.Debug("recorded key=%s partition=%d offset=%d", r.Key, r.Partition, r.Offset)
			} else {
				metrics.StaleUpdates.Inc()
				util.Debug("stale ack for key=%s offset=%d", r.Key, r.Offset)
			}
			errMu.Lock()
			acked++
			errMu.Unlock()
		})
	}

	if err := p.client.Flush(ctx); err != nil {
		errMu.Lock()
		if firstErr == nil {
			firstErr = fmt.Errorf("flush: %w", err)
		}
		errMu.Unlock()
	}
	wg.Wait()

	errMu.Lock()
	defer errMu.Unlock()
	p.store.AddProduced(acked)
	metrics.StateEntries.Set(float64(p.store.Len()))
	util.Info("produce phase acknowledged %d records, %d keys tracked", acked, p.store.Len())
	return firstErr
}

// Close releases the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
