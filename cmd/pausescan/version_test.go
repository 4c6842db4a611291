package main

import (
	"strings"
	"testing"
)

// TestGetVersion tests that a version string is always available.
func TestGetVersion(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("expected non-empty version")
	}
	if getCommit() == "" {
		t.Error("expected non-empty commit")
	}
	if getDate() == "" {
		t.Error("expected non-empty date")
	}
}

// TestVersionCmd tests the version command output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := executeRoot(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"pausescan version", "commit:", "built:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
