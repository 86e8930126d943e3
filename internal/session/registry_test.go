package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// stubRunner records invocations and replays canned responses keyed by the
// command name.
type stubRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   [][]string
}

func (s *stubRunner) Run(dir, name string, args ...string) (string, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.outputs[name], s.errs[name]
}

func TestName(t *testing.T) {
	if Name("alpha") != "minemanage_alpha" {
		t.Fatalf("unexpected session name: %s", Name("alpha"))
	}
}

func TestParseSessionList(t *testing.T) {
	output := `There are screens on:
	12345.minemanage_alpha	(01/16/2026 12:00:00 PM)	(Detached)
	67890.minemanage_beta	(Attached)
	111.other_session	(01/16/2026 01:00:00 PM)	(Detached)
3 Sockets in /run/screen/S-root.
`
	sessions := parseSessionList(output)
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d: %+v", len(sessions), sessions)
	}
	if sessions[0].PID != 12345 || sessions[0].Name != "minemanage_alpha" || sessions[0].Status != "Detached" {
		t.Fatalf("unexpected first session: %+v", sessions[0])
	}
	if sessions[1].Status != "Attached" {
		t.Fatalf("expected attached status without timestamp, got %+v", sessions[1])
	}
}

func TestParseSessionListEmpty(t *testing.T) {
	if got := parseSessionList("No Sockets found in /run/screen/S-root.\n"); len(got) != 0 {
		t.Fatalf("expected no sessions, got %+v", got)
	}
}

func TestListSessionsMissingScreenBinary(t *testing.T) {
	runner := &stubRunner{errs: map[string]error{"screen": exec.ErrNotFound}}
	r := NewRegistry(runner)

	sessions, err := r.ListSessions()
	if err != nil {
		t.Fatalf("expected nil error without screen binary, got %v", err)
	}
	if sessions != nil {
		t.Fatalf("expected no sessions, got %+v", sessions)
	}
}

func TestListSessionsParsesDespiteExitError(t *testing.T) {
	// screen -list exits 1 even when sessions exist.
	exitErr := exec.Command("false").Run()
	if _, ok := exitErr.(*exec.ExitError); !ok {
		t.Fatalf("expected an exit error from false, got %v", exitErr)
	}

	runner := &stubRunner{
		outputs: map[string]string{"screen": "\t99.minemanage_alpha\t(Detached)\n"},
		errs:    map[string]error{"screen": exitErr},
	}
	r := NewRegistry(runner)

	sessions, err := r.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Name != "minemanage_alpha" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

// fakeProc builds a proc-like tree where each pid directory contains a cwd
// symlink, matching what ResolveWorkerPID reads.
func fakeProc(t *testing.T, pids map[int]string) string {
	t.Helper()
	root := t.TempDir()
	for pid, cwd := range pids {
		dir := filepath.Join(root, fmt.Sprint(pid))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create proc dir: %v", err)
		}
		if err := os.Symlink(cwd, filepath.Join(dir, "cwd")); err != nil {
			t.Fatalf("failed to create cwd symlink: %v", err)
		}
	}
	return root
}

func TestResolveWorkerPIDMatchesByWorkingDirectory(t *testing.T) {
	instanceDir := t.TempDir()
	otherDir := t.TempDir()
	procRoot := fakeProc(t, map[int]string{
		100: otherDir,
		200: instanceDir,
	})

	runner := &stubRunner{outputs: map[string]string{"pgrep": "100\n200\n"}}
	r := NewRegistry(runner)
	r.SetProcRoot(procRoot)

	pid, err := r.ResolveWorkerPID(instanceDir)
	if err != nil {
		t.Fatalf("ResolveWorkerPID failed: %v", err)
	}
	if pid != 200 {
		t.Fatalf("expected pid 200, got %d", pid)
	}
}

func TestResolveWorkerPIDNoCandidates(t *testing.T) {
	runner := &stubRunner{errs: map[string]error{"pgrep": fmt.Errorf("exit status 1")}}
	r := NewRegistry(runner)

	if _, err := r.ResolveWorkerPID(t.TempDir()); err != ErrProcessNotFound {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
}

func TestResolveWorkerPIDNoDirectoryMatch(t *testing.T) {
	procRoot := fakeProc(t, map[int]string{100: t.TempDir()})
	runner := &stubRunner{outputs: map[string]string{"pgrep": "100\n"}}
	r := NewRegistry(runner)
	r.SetProcRoot(procRoot)

	if _, err := r.ResolveWorkerPID(t.TempDir()); err != ErrProcessNotFound {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
}

func TestIsAliveViaWorkerProcess(t *testing.T) {
	instanceDir := t.TempDir()
	procRoot := fakeProc(t, map[int]string{300: instanceDir})
	runner := &stubRunner{
		outputs: map[string]string{"pgrep": "300\n"},
		errs:    map[string]error{"screen": exec.ErrNotFound},
	}
	r := NewRegistry(runner)
	r.SetProcRoot(procRoot)

	if !r.IsAlive("alpha", instanceDir) {
		t.Fatalf("expected alive via worker process")
	}
}

func TestIsAliveViaSessionListing(t *testing.T) {
	runner := &stubRunner{
		outputs: map[string]string{"screen": "\t42.minemanage_alpha\t(Detached)\n"},
		errs:    map[string]error{"pgrep": fmt.Errorf("exit status 1")},
	}
	r := NewRegistry(runner)

	if !r.IsAlive("alpha", t.TempDir()) {
		t.Fatalf("expected alive via session listing")
	}
	if r.IsAlive("beta", t.TempDir()) {
		t.Fatalf("beta has no session and no worker, expected not alive")
	}
}

func TestStartDetachedVerifiesListing(t *testing.T) {
	runner := &stubRunner{
		outputs: map[string]string{"screen": "\t42.minemanage_alpha\t(Detached)\n"},
	}
	r := NewRegistry(runner)
	r.SetStartVerifyDelay(0)

	if err := r.StartDetached("alpha", "/srv/alpha", []string{"java", "-jar", "server.jar"}); err != nil {
		t.Fatalf("StartDetached failed: %v", err)
	}

	first := runner.calls[0]
	want := []string{"screen", "-dmS", "minemanage_alpha", "java", "-jar", "server.jar"}
	if strings.Join(first, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected spawn command: %v", first)
	}
}

func TestStartDetachedSessionMissingAfterSpawn(t *testing.T) {
	runner := &stubRunner{outputs: map[string]string{"screen": ""}}
	r := NewRegistry(runner)
	r.SetStartVerifyDelay(0)

	if err := r.StartDetached("alpha", "/srv/alpha", []string{"java"}); err == nil {
		t.Fatalf("expected error when session does not appear")
	}
}

func TestStartDetachedRejectsEmptyCommand(t *testing.T) {
	r := NewRegistry(&stubRunner{})
	if err := r.StartDetached("alpha", "/srv/alpha", nil); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestSendCommandAppendsNewline(t *testing.T) {
	runner := &stubRunner{}
	r := NewRegistry(runner)

	if err := r.SendCommand("alpha", "save-all"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	call := runner.calls[0]
	if call[len(call)-1] != "save-all\n" {
		t.Fatalf("expected trailing newline on injected command, got %q", call[len(call)-1])
	}
}

func TestQuitTargetsNamedSession(t *testing.T) {
	runner := &stubRunner{}
	r := NewRegistry(runner)

	if err := r.Quit("alpha"); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	got := strings.Join(runner.calls[0], " ")
	if got != "screen -X -S minemanage_alpha quit" {
		t.Fatalf("unexpected quit command: %s", got)
	}
}
