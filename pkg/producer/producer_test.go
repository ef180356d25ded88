package producer_test

import (
	"context"
	"testing"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/generator"
	"github.com/markpapadakis/redpanda/pkg/producer"
	"github.com/markpapadakis/redpanda/pkg/state"
	"github.com/markpapadakis/redpanda/util"
	"github.com/twmb/franz-go/pkg/kfake"
)

func testCluster(t *testing.T, partitions int32, topic string) *kfake.Cluster {
	t.Helper()
	c, err := kfake.NewCluster(
		kfake.NumBrokers(1),
		kfake.SeedTopics(partitions, topic),
	)
	if err != nil {
		t.Fatalf("start fake cluster: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func testConfig(c *kfake.Cluster, topic string) *config.Config {
	cfg := config.Default()
	cfg.Brokers = c.ListenAddrs()
	cfg.Topic = topic
	cfg.RecordCount = 100
	cfg.KeyCardinality = 10
	cfg.KeySize = 20
	cfg.PayloadSize = 32
	cfg.Seed = 1
	return cfg
}

func TestRunTracksLastWritePerKey(t *testing.T) {
	c := testCluster(t, 1, "compaction_check")
	cfg := testConfig(c, "compaction_check")

	store := state.New(cfg.Topic, cfg.Partitions)
	gen, err := generator.New(cfg)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	p, err := producer.New(cfg, store)
	if err != nil {
		t.Fatalf("producer: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.EnsureTopic(ctx); err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}
	if err := p.Run(ctx, gen); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.Len() != 10 {
		t.Fatalf("store tracks %d keys, want 10", store.Len())
	}
	if store.Produced() != 100 {
		t.Fatalf("Produced = %d, want 100", store.Produced())
	}

	// Single partition and in-order delivery mean offset order equals
	// generation order, so the last generated value per key must win.
	replay, err := generator.New(cfg)
	if err != nil {
		t.Fatalf("replay generator: %v", err)
	}
	want := map[string]string{}
	for {
		rec, ok := replay.Next()
		if !ok {
			break
		}
		want[string(rec.Key)] = util.Fingerprint(rec.Value)
	}

	store.Each(func(key string, e state.Entry) {
		if e.ValueHash != want[key] {
			t.Errorf("key %q hash = %s, want last generated value", key, e.ValueHash)
		}
		if e.Partition != 0 {
			t.Errorf("key %q on partition %d, want 0", key, e.Partition)
		}
	})
}

func TestSameKeySamePartition(t *testing.T) {
	c := testCluster(t, 4, "spread_topic")
	cfg := testConfig(c, "spread_topic")
	cfg.Partitions = 4
	cfg.RecordCount = 400
	cfg.KeyCardinality = 20

	store := state.New(cfg.Topic, cfg.Partitions)
	p, err := producer.New(cfg, store)
	if err != nil {
		t.Fatalf("producer: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	gen, err := generator.New(cfg)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	if err := p.Run(ctx, gen); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	first := map[string]int32{}
	store.Each(func(key string, e state.Entry) {
		first[key] = e.Partition
	})

	gen2, err := generator.New(cfg)
	if err != nil {
		t.Fatalf("second generator: %v", err)
	}
	if err := p.Run(ctx, gen2); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	// Key-hash partitioning: a key must never move partitions, or the
	// per-key offset comparison in the diff breaks.
	store.Each(func(key string, e state.Entry) {
		if e.Partition != first[key] {
			t.Errorf("key %q moved from partition %d to %d", key, first[key], e.Partition)
		}
	})
}

func TestEnsureTopicExisting(t *testing.T) {
	c := testCluster(t, 1, "already_there")
	cfg := testConfig(c, "already_there")

	store := state.New(cfg.Topic, cfg.Partitions)
	p, err := producer.New(cfg, store)
	if err != nil {
		t.Fatalf("producer: %v", err)
	}
	defer p.Close()

	if err := p.EnsureTopic(context.Background()); err != nil {
		t.Fatalf("EnsureTopic on existing topic: %v", err)
	}
}

func TestBadAckMode(t *testing.T) {
	c := testCluster(t, 1, "t")
	cfg := testConfig(c, "t")
	cfg.Acks = "quorum"

	if _, err := producer.New(cfg, state.New(cfg.Topic, cfg.Partitions)); err == nil {
		t.Fatal("New accepted unknown ack mode")
	}
}
