// Package supervisor orchestrates the lifecycle of worker processes hosted
// in detached screen sessions: admission-checked start, graceful stop with a
// bounded wait, credential-gated force kill and the interactive console
// hand-off.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/minemanage/minemanage/internal/auth"
	"github.com/minemanage/minemanage/internal/config"
	"github.com/minemanage/minemanage/internal/props"
	"github.com/minemanage/minemanage/internal/session"
)

// SessionControl is the slice of the session registry the supervisor drives.
type SessionControl interface {
	IsAlive(instance, instanceDir string) bool
	ResolveWorkerPID(instanceDir string) (int, error)
	StartDetached(instance, dir string, argv []string) error
	SendCommand(instance, command string) error
	Quit(instance string) error
}

// StartOptions tunes a single start invocation.
type StartOptions struct {
	// RAM overrides both memory bounds for this launch only.
	RAM string
	// Foreground runs the worker attached to the caller's terminal
	// instead of inside a detached session.
	Foreground bool
}

// Supervisor coordinates start, stop, kill and console operations against
// named instances. It holds no process handles between calls; all state is
// re-derived from the OS through the session registry.
type Supervisor struct {
	store     *config.Store
	sessions  SessionControl
	admission *AdmissionChecker

	stopWait  time.Duration
	stopPoll  time.Duration
	killGrace time.Duration

	// Signal plumbing, replaceable in tests.
	signalKill  func(pid int) error
	signalAlive func(pid int) bool
	attach      func(instance string) error
}

// New creates a supervisor with the given lifecycle tuning.
func New(store *config.Store, sessions SessionControl, tuning config.SupervisorSettings) *Supervisor {
	return &Supervisor{
		store:     store,
		sessions:  sessions,
		admission: NewAdmissionChecker(sessions),
		stopWait:  tuning.StopWait(),
		stopPoll:  tuning.StopPoll(),
		killGrace: tuning.KillGrace(),
		signalKill: func(pid int) error {
			return syscall.Kill(pid, syscall.SIGKILL)
		},
		signalAlive: func(pid int) bool {
			return syscall.Kill(pid, 0) == nil
		},
		attach: func(instance string) error {
			return session.InteractiveRun("", "screen", "-r", session.Name(instance))
		},
	}
}

// resolve loads the effective configuration and pins down the instance name
// and working directory. An empty name targets the active instance.
func (s *Supervisor) resolve(instance string) (string, string, config.EffectiveConfig, error) {
	cfg, err := s.store.LoadEffective(instance)
	if err != nil {
		return "", "", config.EffectiveConfig{}, err
	}
	if instance == "" {
		instance = cfg.Global.CurrentInstance
	}
	return instance, s.store.InstanceDir(instance), cfg, nil
}

// Start runs the admission checks and spawns the worker. It returns as soon
// as the session exists; it does not wait for worker readiness.
func (s *Supervisor) Start(instance string, opts StartOptions) error {
	instance, dir, cfg, err := s.resolve(instance)
	if err != nil {
		return err
	}

	if opts.RAM != "" {
		cfg.Instance.RAMMin = opts.RAM
		cfg.Instance.RAMMax = opts.RAM
	}

	workerType, err := ParseWorkerType(cfg.Instance.ServerType)
	if err != nil {
		return err
	}
	if err := checkArtifact(dir, workerType); err != nil {
		return err
	}

	if err := s.admission.CheckStart(instance, dir, props.Port(dir)); err != nil {
		return err
	}

	argv, err := BuildLaunchCommand(dir, cfg)
	if err != nil {
		return err
	}

	if opts.Foreground {
		return s.runForeground(dir, argv)
	}

	if err := s.sessions.StartDetached(instance, dir, argv); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	slog.Info("server started", "instance", instance, "session", session.Name(instance))
	return nil
}

// Stop injects the shutdown command and polls liveness until the session
// disappears or the bounded wait expires. On timeout nothing is terminated;
// the caller must kill explicitly.
func (s *Supervisor) Stop(instance string) error {
	instance, dir, _, err := s.resolve(instance)
	if err != nil {
		return err
	}

	if !s.sessions.IsAlive(instance, dir) {
		return fmt.Errorf("%w: instance %s", ErrNotRunning, instance)
	}

	if err := s.sessions.SendCommand(instance, "stop"); err != nil {
		return fmt.Errorf("failed to send stop command: %w", err)
	}

	deadline := time.Now().Add(s.stopWait)
	for time.Now().Before(deadline) {
		if !s.sessions.IsAlive(instance, dir) {
			slog.Info("server stopped", "instance", instance)
			return nil
		}
		time.Sleep(s.stopPoll)
	}
	return fmt.Errorf("%w: instance %s still alive after %v", ErrStopTimedOut, instance, s.stopWait)
}

// Kill verifies the admin credential, terminates the session, then verifies
// the worker actually died and force-kills that exact PID if it did not.
// Never a kill-by-name sweep: other instances may run the same binary.
func (s *Supervisor) Kill(instance, credential string) error {
	instance, dir, cfg, err := s.resolve(instance)
	if err != nil {
		return err
	}

	global := cfg.Global
	if global.AdminPasswordHash == "" {
		return fmt.Errorf("%w: no admin credential configured (run 'config set-password' first)", ErrKillAuthFailed)
	}

	verification, err := auth.VerifyCredential(credential, global.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("credential verification failed: %w", err)
	}
	switch verification.Outcome {
	case auth.NoMatch:
		return ErrKillAuthFailed
	case auth.MatchedNeedsUpgrade:
		global.AdminPasswordHash = verification.UpgradedHash
		if err := s.store.SaveGlobal(global); err != nil {
			slog.Warn("failed to persist upgraded credential hash", "error", err)
		} else {
			slog.Info("legacy credential hash upgraded")
		}
	}

	if !s.sessions.IsAlive(instance, dir) {
		return fmt.Errorf("%w: instance %s", ErrNotRunning, instance)
	}

	// Resolve the worker PID before the session goes away; afterwards the
	// cwd cross-reference is the only thing still tying it to us.
	pid, pidErr := s.sessions.ResolveWorkerPID(dir)

	if err := s.sessions.Quit(instance); err != nil {
		slog.Warn("failed to quit session", "instance", instance, "error", err)
	}

	if pidErr != nil {
		return nil
	}

	time.Sleep(s.killGrace)
	if s.signalAlive(pid) {
		slog.Warn("worker survived session quit, sending SIGKILL", "instance", instance, "pid", pid)
		if err := s.signalKill(pid); err != nil {
			return fmt.Errorf("failed to kill worker process %d: %w", pid, err)
		}
	}
	slog.Info("server killed", "instance", instance, "pid", pid)
	return nil
}

// Console hands the caller's terminal to the session. Permitted only while
// the instance is running; blocks until the user detaches.
func (s *Supervisor) Console(instance string) error {
	instance, dir, _, err := s.resolve(instance)
	if err != nil {
		return err
	}
	if !s.sessions.IsAlive(instance, dir) {
		return fmt.Errorf("%w: instance %s", ErrNotRunning, instance)
	}
	return s.attach(instance)
}

// Running reports whether the instance currently has a live session.
func (s *Supervisor) Running(instance string) (bool, error) {
	instance, dir, _, err := s.resolve(instance)
	if err != nil {
		return false, err
	}
	return s.sessions.IsAlive(instance, dir), nil
}

// checkArtifact verifies the runnable worker artifact the installer should
// have left behind actually exists.
func checkArtifact(dir string, workerType WorkerType) error {
	artifact := session.WorkerArtifact
	if workerType.UsesLaunchScript() {
		artifact = launchScript
	}
	path := filepath.Join(dir, artifact)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s not found at %s, run 'instance create' or 'init' first", artifact, path)
	} else if err != nil {
		return fmt.Errorf("failed to check %s: %w", artifact, err)
	}
	return nil
}

// runForeground runs the worker attached to the caller's terminal. Ctrl+C
// injects the shutdown command over stdin and falls back to killing the
// process after the stop bound.
func (s *Supervisor) runForeground(dir string, argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-sigCh:
		slog.Info("stop signal received, shutting down server")
		io.WriteString(stdin, "stop\n")
		stdin.Close()
		select {
		case err := <-done:
			return err
		case <-time.After(s.stopWait):
			cmd.Process.Kill()
			<-done
			return fmt.Errorf("%w: server forced to stop", ErrStopTimedOut)
		}
	}
}
