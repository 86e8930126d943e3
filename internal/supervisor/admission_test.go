package supervisor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type stubProbe struct {
	alive bool
}

func (s *stubProbe) IsAlive(instance, instanceDir string) bool { return s.alive }

func writeEula(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "eula.txt"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write eula.txt: %v", err)
	}
}

func checker(probe SessionProbe, dialErr error) *AdmissionChecker {
	a := NewAdmissionChecker(probe)
	a.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		client, server := net.Pipe()
		go server.Close()
		return client, nil
	}
	return a
}

func TestCheckStartPasses(t *testing.T) {
	dir := t.TempDir()
	writeEula(t, dir, "#accepted\neula=true\n")

	a := checker(&stubProbe{}, fmt.Errorf("connection refused"))
	if err := a.CheckStart("alpha", dir, 25565); err != nil {
		t.Fatalf("expected admission to pass: %v", err)
	}
}

func TestCheckStartMissingEula(t *testing.T) {
	a := checker(&stubProbe{}, fmt.Errorf("refused"))
	err := a.CheckStart("alpha", t.TempDir(), 25565)
	if !errors.Is(err, ErrEulaNotAccepted) {
		t.Fatalf("expected ErrEulaNotAccepted, got %v", err)
	}
}

func TestCheckStartEulaNotAccepted(t *testing.T) {
	dir := t.TempDir()
	writeEula(t, dir, "eula=false\n")

	a := checker(&stubProbe{}, fmt.Errorf("refused"))
	err := a.CheckStart("alpha", dir, 25565)
	if !errors.Is(err, ErrEulaNotAccepted) {
		t.Fatalf("expected ErrEulaNotAccepted, got %v", err)
	}
}

func TestCheckStartAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	writeEula(t, dir, "eula=true\n")

	a := checker(&stubProbe{alive: true}, fmt.Errorf("refused"))
	err := a.CheckStart("alpha", dir, 25565)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestCheckStartPortConflict(t *testing.T) {
	dir := t.TempDir()
	writeEula(t, dir, "eula=true\n")

	// nil dialErr means the probe connects, so something listens there.
	a := checker(&stubProbe{}, nil)
	err := a.CheckStart("alpha", dir, 25565)
	if !errors.Is(err, ErrPortConflict) {
		t.Fatalf("expected ErrPortConflict, got %v", err)
	}
}

func TestCheckStartOrderEulaBeforeSession(t *testing.T) {
	// With every check failing, the EULA verdict must win.
	a := checker(&stubProbe{alive: true}, nil)
	err := a.CheckStart("alpha", t.TempDir(), 25565)
	if !errors.Is(err, ErrEulaNotAccepted) {
		t.Fatalf("expected EULA check to run first, got %v", err)
	}
}
