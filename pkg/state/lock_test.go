package state_test

import (
	"path/filepath"
	"testing"

	"github.com/markpapadakis/redpanda/pkg/state"
)

func TestAcquireExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verifier.state")

	fl, err := state.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := state.Acquire(path); err == nil {
		t.Fatal("second Acquire succeeded while lock held")
	}

	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	fl2, err := state.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after Unlock failed: %v", err)
	}
	fl2.Unlock()
}
