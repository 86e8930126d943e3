package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner abstracts host command execution. Tests substitute a stub so
// registry behavior can be exercised without screen or a proc filesystem.
type Runner interface {
	// Run executes name with args, optionally in dir, and returns stdout.
	// The returned error preserves exec.ErrNotFound for missing binaries
	// and carries stderr for failed commands.
	Run(dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := stdout.String()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return out, fmt.Errorf("%s not available: %w", name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, msg)
		}
		return out, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// InteractiveRun executes name with args with the caller's terminal attached,
// blocking until the command exits. Used for the console attach hand-off.
func InteractiveRun(dir, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
