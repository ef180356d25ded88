// Package generator produces the synthetic keyed records fed to the produce
// phase. Output is fully deterministic for a given seed: the same seed yields
// the same sequence of keys and payloads, which lets a rerun reproduce a
// failing workload exactly.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/markpapadakis/redpanda/pkg/config"
)

// Record is one generated key/value pair, ready to be produced.
type Record struct {
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Generator draws keys uniformly from a fixed pool. With far more records
// than keys, every key gets overwritten many times, which is exactly the
// skew a compaction check wants.
type Generator struct {
	rng       *rand.Rand
	keys      [][]byte
	remaining int
	payload   int
}

// New builds a Generator from cfg. The key pool is precomputed as
// zero-padded decimal strings of KeySize bytes.
func New(cfg *config.Config) (*Generator, error) {
	if cfg.KeyCardinality <= 0 {
		return nil, &config.ConfigError{Field: "key-cardinality", Reason: fmt.Sprintf("must be > 0, got %d", cfg.KeyCardinality)}
	}
	if cfg.KeySize <= 0 {
		return nil, &config.ConfigError{Field: "key-size", Reason: fmt.Sprintf("must be > 0, got %d", cfg.KeySize)}
	}
	if cfg.PayloadSize <= 0 {
		return nil, &config.ConfigError{Field: "payload-size", Reason: fmt.Sprintf("must be > 0, got %d", cfg.PayloadSize)}
	}
	if cfg.RecordCount <= 0 {
		return nil, &config.ConfigError{Field: "num-records", Reason: fmt.Sprintf("must be > 0, got %d", cfg.RecordCount)}
	}
	digits := len(fmt.Sprintf("%d", cfg.KeyCardinality-1))
	if digits > cfg.KeySize {
		return nil, &config.ConfigError{Field: "key-size", Reason: fmt.Sprintf("%d bytes cannot hold %d distinct keys", cfg.KeySize, cfg.KeyCardinality)}
	}

	keys := make([][]byte, cfg.KeyCardinality)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("%0*d", cfg.KeySize, i))
	}
	return &Generator{
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		keys:      keys,
		remaining: cfg.RecordCount,
		payload:   cfg.PayloadSize,
	}, nil
}

// Next returns the next record, or false when the run budget is exhausted.
func (g *Generator) Next() (Record, bool) {
	if g.remaining <= 0 {
		return Record{}, false
	}
	g.remaining--

	key := g.keys[g.rng.Intn(len(g.keys))]
	value := make([]byte, g.payload)
	g.rng.Read(value)
	return Record{Key: key, Value: value, Timestamp: time.Now()}, true
}

// Remaining reports how many records Next will still yield.
func (g *Generator) Remaining() int {
	return g.remaining
}

// Cardinality reports the size of the key pool.
func (g *Generator) Cardinality() int {
	return len(g.keys)
}
