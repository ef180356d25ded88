package generator_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/markpapadakis/redpanda/pkg/config"
	"github.com/markpapadakis/redpanda/pkg/generator"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RecordCount = 100
	cfg.KeyCardinality = 10
	cfg.KeySize = 20
	cfg.PayloadSize = 64
	cfg.Seed = 7
	return cfg
}

func TestDeterministic(t *testing.T) {
	a, err := generator.New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, err := generator.New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	n := 0
	for {
		ra, okA := a.Next()
		rb, okB := b.Next()
		if okA != okB {
			t.Fatalf("generators disagree on length at record %d", n)
		}
		if !okA {
			break
		}
		if !bytes.Equal(ra.Key, rb.Key) {
			t.Fatalf("record %d keys differ: %q vs %q", n, ra.Key, rb.Key)
		}
		if !bytes.Equal(ra.Value, rb.Value) {
			t.Fatalf("record %d values differ", n)
		}
		n++
	}
	if n != 100 {
		t.Fatalf("generated %d records, want 100", n)
	}
}

func TestCardinalityAndSizes(t *testing.T) {
	g, err := generator.New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.Cardinality() != 10 {
		t.Fatalf("Cardinality = %d, want 10", g.Cardinality())
	}

	seen := map[string]bool{}
	for {
		rec, ok := g.Next()
		if !ok {
			break
		}
		if len(rec.Key) != 20 {
			t.Fatalf("key length = %d, want 20", len(rec.Key))
		}
		if len(rec.Value) != 64 {
			t.Fatalf("value length = %d, want 64", len(rec.Value))
		}
		seen[string(rec.Key)] = true
	}
	if len(seen) > 10 {
		t.Fatalf("saw %d distinct keys, cardinality is 10", len(seen))
	}
}

func TestRemaining(t *testing.T) {
	g, err := generator.New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.Remaining() != 100 {
		t.Fatalf("Remaining = %d, want 100", g.Remaining())
	}
	if _, ok := g.Next(); !ok {
		t.Fatal("Next returned false with records remaining")
	}
	if g.Remaining() != 99 {
		t.Fatalf("Remaining after one draw = %d, want 99", g.Remaining())
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero cardinality", func(c *config.Config) { c.KeyCardinality = 0 }},
		{"negative cardinality", func(c *config.Config) { c.KeyCardinality = -1 }},
		{"zero key size", func(c *config.Config) { c.KeySize = 0 }},
		{"zero payload size", func(c *config.Config) { c.PayloadSize = 0 }},
		{"zero records", func(c *config.Config) { c.RecordCount = 0 }},
		{"key size too small for cardinality", func(c *config.Config) { c.KeySize = 2; c.KeyCardinality = 1000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)
			_, err := generator.New(cfg)
			if err == nil {
				t.Fatal("New succeeded, expected error")
			}
			var ce *config.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
		})
	}
}

func TestDistinctKeys(t *testing.T) {
	cfg := testConfig()
	cfg.KeyCardinality = 50
	cfg.RecordCount = 5000
	g, err := generator.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seen := map[string]bool{}
	for {
		rec, ok := g.Next()
		if !ok {
			break
		}
		seen[string(rec.Key)] = true
	}
	// 5000 uniform draws over 50 keys covers the space.
	if len(seen) != 50 {
		t.Fatalf("saw %d distinct keys, want all 50", len(seen))
	}
}
