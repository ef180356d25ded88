package main

import "testing"

func TestRunUsage(t *testing.T) {
	if code := run([]string{}); code != 2 {
		t.Fatalf("no subcommand: exit %d, want 2", code)
	}
	if code := run([]string{"compact"}); code != 2 {
		t.Fatalf("unknown subcommand: exit %d, want 2", code)
	}
}

func TestRunBadConfig(t *testing.T) {
	if code := run([]string{"produce", "-key-cardinality", "0"}); code != 2 {
		t.Fatalf("invalid tunable: exit %d, want 2", code)
	}
}
