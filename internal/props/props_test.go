package props

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProps(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write properties: %v", err)
	}
	return dir
}

func TestGet(t *testing.T) {
	dir := writeProps(t, "#comment\nserver-port=25570\nmotd=A Server\n")

	value, err := Get(dir, "server-port")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "25570" {
		t.Fatalf("expected 25570, got %q", value)
	}

	if _, err := Get(dir, "no-such-key"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestPort(t *testing.T) {
	dir := writeProps(t, "server-port=25570\n")
	if got := Port(dir); got != 25570 {
		t.Fatalf("expected 25570, got %d", got)
	}
}

func TestPortFallsBackToDefault(t *testing.T) {
	if got := Port(t.TempDir()); got != DefaultPort {
		t.Fatalf("expected default port without file, got %d", got)
	}

	dir := writeProps(t, "server-port=not-a-number\n")
	if got := Port(dir); got != DefaultPort {
		t.Fatalf("expected default port for invalid value, got %d", got)
	}

	dir = writeProps(t, "server-port=99999\n")
	if got := Port(dir); got != DefaultPort {
		t.Fatalf("expected default port for out-of-range value, got %d", got)
	}
}

func TestSetUpdatesExistingKey(t *testing.T) {
	dir := writeProps(t, "#Minecraft server properties\nmotd=Old\nserver-port=25565\n")

	if err := Set(dir, "motd", "New World"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("failed to read properties: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "motd=New World") {
		t.Fatalf("value not updated:\n%s", content)
	}
	// Unrelated lines stay byte for byte.
	if !strings.Contains(content, "#Minecraft server properties\n") || !strings.Contains(content, "server-port=25565") {
		t.Fatalf("unrelated lines changed:\n%s", content)
	}
}

func TestSetAppendsMissingKey(t *testing.T) {
	dir := writeProps(t, "motd=Hello\n")

	if err := Set(dir, "server-port", "25580"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := Get(dir, "server-port")
	if err != nil {
		t.Fatalf("Get after append failed: %v", err)
	}
	if value != "25580" {
		t.Fatalf("expected appended value, got %q", value)
	}
}

func TestSetRequiresExistingFile(t *testing.T) {
	if err := Set(t.TempDir(), "motd", "x"); err == nil {
		t.Fatalf("expected error when properties file is missing")
	}
}

func TestPathJoinsInstanceDir(t *testing.T) {
	if Path("/srv/alpha") != filepath.Join("/srv/alpha", "server.properties") {
		t.Fatalf("unexpected path: %s", Path("/srv/alpha"))
	}
}
