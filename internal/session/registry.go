// Package session maps instance names to GNU screen sessions and rediscovers
// the worker process behind a session on demand. Nothing here holds a live
// process handle: every query re-derives truth from the OS, because the
// supervisor that started a session is usually not the invocation asking
// about it later.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// namePrefix is prepended to the instance name to form the session name.
// Session identity is derivable from the instance name alone; no mapping
// table is stored anywhere.
const namePrefix = "minemanage_"

// WorkerArtifact is the conventional name of the runnable worker inside an
// instance directory.
const WorkerArtifact = "server.jar"

// ErrProcessNotFound means no worker process could be attributed to the
// instance's working directory.
var ErrProcessNotFound = errors.New("worker process not found")

// Name returns the deterministic screen session name for an instance.
func Name(instance string) string {
	return namePrefix + instance
}

// Session represents one entry of the multiplexer's session listing.
type Session struct {
	Name   string
	PID    int
	Status string // "Attached" or "Detached"
}

// Registry resolves instance names to sessions and worker processes.
type Registry struct {
	runner           Runner
	procRoot         string
	startVerifyDelay time.Duration
}

// NewRegistry creates a registry using the given command runner.
func NewRegistry(runner Runner) *Registry {
	return &Registry{
		runner:           runner,
		procRoot:         "/proc",
		startVerifyDelay: 500 * time.Millisecond,
	}
}

// SetProcRoot overrides the proc filesystem root. Used by tests.
func (r *Registry) SetProcRoot(root string) { r.procRoot = root }

// SetStartVerifyDelay overrides the post-spawn verification wait. Used by tests.
func (r *Registry) SetStartVerifyDelay(d time.Duration) { r.startVerifyDelay = d }

// IsAlive reports whether the instance has a live session or a resolvable
// worker process. Either signal alone is sufficient: a dangling empty
// session is rare and harmless to treat as running, while missing one live
// worker is not. A host without the screen binary reports not running.
func (r *Registry) IsAlive(instance, instanceDir string) bool {
	if _, err := r.ResolveWorkerPID(instanceDir); err == nil {
		return true
	}

	sessions, err := r.ListSessions()
	if err != nil {
		return false
	}
	name := Name(instance)
	for _, s := range sessions {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ResolveWorkerPID finds the worker process bound to instanceDir. Candidates
// are enumerated system-wide by command line, then disambiguated by working
// directory: a host may run several instances' workers at once, and killing
// a first match would hit the wrong one.
func (r *Registry) ResolveWorkerPID(instanceDir string) (int, error) {
	absDir, err := filepath.Abs(instanceDir)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve instance directory: %w", err)
	}

	output, err := r.runner.Run("", "pgrep", "-f", WorkerArtifact)
	if err != nil {
		// pgrep exits 1 when nothing matches; a missing binary also
		// just means there is nothing to find.
		return 0, ErrProcessNotFound
	}

	for _, field := range strings.Fields(output) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		cwd, err := os.Readlink(filepath.Join(r.procRoot, field, "cwd"))
		if err != nil {
			continue
		}
		if cwd == absDir {
			return pid, nil
		}
	}
	return 0, ErrProcessNotFound
}

// ListSessions parses the multiplexer's session listing. A host without the
// screen binary yields an empty list, not an error: a status query must not
// fail merely because the tool is not installed.
func (r *Registry) ListSessions() ([]Session, error) {
	output, err := r.runner.Run("", "screen", "-list")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, nil
		}
		// screen -list exits nonzero both with and without sessions;
		// the output is still parseable either way.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
	}
	return parseSessionList(output), nil
}

// sessionLineRe matches lines like:
//
//	12345.minemanage_alpha	(01/16/2026 12:00:00 PM)	(Detached)
var sessionLineRe = regexp.MustCompile(`^\s*(\d+)\.(\S+)\s+(?:\([^)]+\)\s+)?\((\w+)\)`)

func parseSessionList(output string) []Session {
	var sessions []Session
	for _, line := range strings.Split(output, "\n") {
		matches := sessionLineRe.FindStringSubmatch(line)
		if len(matches) < 4 {
			continue
		}
		pid, _ := strconv.Atoi(matches[1])
		sessions = append(sessions, Session{
			Name:   matches[2],
			PID:    pid,
			Status: matches[3],
		})
	}
	return sessions
}

// StartDetached spawns argv inside a new detached session rooted at dir and
// verifies the session appeared in the listing.
func (r *Registry) StartDetached(instance, dir string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty launch command")
	}

	name := Name(instance)
	args := append([]string{"-dmS", name}, argv...)
	if _, err := r.runner.Run(dir, "screen", args...); err != nil {
		return fmt.Errorf("failed to create session %s: %w", name, err)
	}

	if r.startVerifyDelay > 0 {
		time.Sleep(r.startVerifyDelay)
	}
	sessions, err := r.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to verify session creation: %w", err)
	}
	for _, s := range sessions {
		if s.Name == name {
			slog.Debug("session created", "session", name, "dir", dir)
			return nil
		}
	}
	return fmt.Errorf("session %s created but not found in session list", name)
}

// SendCommand injects a line of text into the session's input stream.
func (r *Registry) SendCommand(instance, command string) error {
	name := Name(instance)
	if _, err := r.runner.Run("", "screen", "-S", name, "-X", "stuff", command+"\n"); err != nil {
		return fmt.Errorf("failed to send command to session %s: %w", name, err)
	}
	slog.Debug("command sent to session", "session", name, "command", command)
	return nil
}

// Quit terminates the session outright, taking whatever runs inside it down
// with the multiplexer. The caller is responsible for verifying the worker
// actually died.
func (r *Registry) Quit(instance string) error {
	name := Name(instance)
	if _, err := r.runner.Run("", "screen", "-X", "-S", name, "quit"); err != nil {
		return fmt.Errorf("failed to quit session %s: %w", name, err)
	}
	slog.Info("session terminated", "session", name)
	return nil
}
