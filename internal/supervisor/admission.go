package supervisor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	eulaFile   = "eula.txt"
	eulaMarker = "eula=true"
)

// SessionProbe is the slice of the session registry admission needs.
type SessionProbe interface {
	IsAlive(instance, instanceDir string) bool
}

// AdmissionChecker runs the pre-flight checks before a launch is attempted.
// The checks are advisory probes, not a lock: a race between check and
// launch is possible and accepted, the contract is best-effort rejection of
// an obviously bad start.
type AdmissionChecker struct {
	sessions    SessionProbe
	dialTimeout time.Duration
	dial        func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewAdmissionChecker creates an admission checker backed by the registry.
func NewAdmissionChecker(sessions SessionProbe) *AdmissionChecker {
	return &AdmissionChecker{
		sessions:    sessions,
		dialTimeout: 500 * time.Millisecond,
		dial:        net.DialTimeout,
	}
}

// CheckStart verifies the EULA gate, the single-session invariant and the
// port uniqueness invariant, in that order. The first failed check wins.
func (a *AdmissionChecker) CheckStart(instance, instanceDir string, port int) error {
	if err := a.checkEula(instanceDir); err != nil {
		return err
	}

	if a.sessions.IsAlive(instance, instanceDir) {
		return fmt.Errorf("%w: instance %s has a live session", ErrAlreadyRunning, instance)
	}

	// A successful local connect means some process, ours or not, already
	// answers on the port the worker would bind.
	addr := net.JoinHostPort("127.0.0.1", fmt.Sprint(port))
	conn, err := a.dial("tcp", addr, a.dialTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w: port %d", ErrPortConflict, port)
	}

	return nil
}

func (a *AdmissionChecker) checkEula(instanceDir string) error {
	path := filepath.Join(instanceDir, eulaFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s missing", ErrEulaNotAccepted, path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", eulaFile, err)
	}
	if !strings.Contains(string(data), eulaMarker) {
		return fmt.Errorf("%w: %s does not contain %s", ErrEulaNotAccepted, path, eulaMarker)
	}
	return nil
}
