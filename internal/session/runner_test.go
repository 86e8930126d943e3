package session

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestExecRunnerCapturesStdout(t *testing.T) {
	out, err := ExecRunner{}.Run("", "echo", "hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExecRunnerRunsInDirectory(t *testing.T) {
	dir := t.TempDir()
	out, err := ExecRunner{}.Run(dir, "pwd")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(out) != dir {
		t.Fatalf("expected %q, got %q", dir, strings.TrimSpace(out))
	}
}

func TestExecRunnerPreservesNotFound(t *testing.T) {
	_, err := ExecRunner{}.Run("", "definitely-not-a-binary-xyz")
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound in chain, got %v", err)
	}
}

func TestExecRunnerIncludesStderr(t *testing.T) {
	_, err := ExecRunner{}.Run("", "sh", "-c", "echo boom >&2; exit 1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
