// Package state holds the last-write-wins per key ground truth recorded
// during the produce phase, and persists it so a later consume phase can diff
// the topic against it.
package state

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/markpapadakis/redpanda/util"
)

const shardCount = 32

// Entry is the expected final value for one key: the fingerprint of the last
// acknowledged write and the offset that carried it.
type Entry struct {
	ValueHash string `json:"value_hash"`
	Offset    int64  `json:"offset"`
	Partition int32  `json:"partition"`
}

type shard struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// Store is the in-memory expected state. Keys are spread over fixed shards so
// produce acknowledgments for different keys update concurrently; same-key
// acks serialize on one shard lock.
type Store struct {
	shards     [shardCount]shard
	topic      string
	partitions int
	runID      string
	produced   atomic.Int64
}

// New returns an empty Store bound to topic with a fresh run ID.
func New(topic string, partitions int) *Store {
	s := &Store{topic: topic, partitions: partitions, runID: uuid.New().String()}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]Entry)
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	return &s.shards[util.Hash(key)%shardCount]
}

// Update records an acknowledged write. Offsets only move forward per key: an
// offset at or below the recorded one is rejected and Update returns false.
func (s *Store) Update(key string, value []byte, partition int32, offset int64) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cur, ok := sh.entries[key]; ok && offset <= cur.Offset {
		return false
	}
	sh.entries[key] = Entry{
		ValueHash: util.Fingerprint(value),
		Offset:    offset,
		Partition: partition,
	}
	return true
}

// Lookup returns the recorded entry for key, if any.
func (s *Store) Lookup(key string) (Entry, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	return e, ok
}

// Len reports the number of tracked keys.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += len(s.shards[i].entries)
		s.shards[i].mu.Unlock()
	}
	return n
}

// Each visits every entry in sorted key order, over a snapshot taken up
// front, so fn may call back into the Store.
func (s *Store) Each(fn func(key string, e Entry)) {
	snap := s.snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(k, snap[k])
	}
}

func (s *Store) snapshot() map[string]Entry {
	out := make(map[string]Entry, s.Len())
	for i := range s.shards {
		s.shards[i].mu.Lock()
		for k, e := range s.shards[i].entries {
			out[k] = e
		}
		s.shards[i].mu.Unlock()
	}
	return out
}

// AddProduced bumps the acknowledged record counter.
func (s *Store) AddProduced(n int64) {
	s.produced.Add(n)
}

// Produced reports the total acknowledged records across the store's runs.
func (s *Store) Produced() int64 {
	return s.produced.Load()
}

// Topic returns the topic this state belongs to.
func (s *Store) Topic() string {
	return s.topic
}

// Partitions returns the partition count recorded at creation.
func (s *Store) Partitions() int {
	return s.partitions
}

// RunID returns the identifier minted when the state was first created. It
// survives persist/load cycles.
func (s *Store) RunID() string {
	return s.runID
}
