package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minemanage/minemanage/internal/config"
)

func effectiveFor(serverType, ramMin, ramMax string) config.EffectiveConfig {
	return config.EffectiveConfig{
		Global: config.GlobalConfig{JavaPath: "java"},
		Instance: config.InstanceConfig{
			RAMMin:     ramMin,
			RAMMax:     ramMax,
			ServerType: serverType,
		},
	}
}

func TestParseWorkerType(t *testing.T) {
	for _, tag := range []string{"vanilla", "paper", "fabric", "forge", "neoforge", " Paper "} {
		if _, err := ParseWorkerType(tag); err != nil {
			t.Errorf("expected %q to parse: %v", tag, err)
		}
	}
	if _, err := ParseWorkerType("spigot"); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := ParseWorkerType(""); err == nil {
		t.Fatalf("expected error for empty type")
	}
}

func TestUsesLaunchScript(t *testing.T) {
	if Vanilla.UsesLaunchScript() || Paper.UsesLaunchScript() || Fabric.UsesLaunchScript() {
		t.Fatalf("jar types must not use a launch script")
	}
	if !Forge.UsesLaunchScript() || !NeoForge.UsesLaunchScript() {
		t.Fatalf("loader types must use a launch script")
	}
}

func TestBuildLaunchCommandJarTypes(t *testing.T) {
	argv, err := BuildLaunchCommand(t.TempDir(), effectiveFor("paper", "2G", "4G"))
	if err != nil {
		t.Fatalf("BuildLaunchCommand failed: %v", err)
	}
	want := "java -Xms2G -Xmx4G -jar server.jar nogui"
	if strings.Join(argv, " ") != want {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

func TestBuildLaunchCommandDefaultsJavaPath(t *testing.T) {
	cfg := effectiveFor("vanilla", "", "")
	cfg.Global.JavaPath = ""
	argv, err := BuildLaunchCommand(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("BuildLaunchCommand failed: %v", err)
	}
	if argv[0] != "java" || argv[1] != "-Xms2G" || argv[2] != "-Xmx4G" {
		t.Fatalf("defaults not applied: %v", argv)
	}
}

func TestBuildLaunchCommandRejectsBadMemory(t *testing.T) {
	if _, err := BuildLaunchCommand(t.TempDir(), effectiveFor("paper", "8G", "4G")); err == nil {
		t.Fatalf("expected error when ram_min exceeds ram_max")
	}
	if _, err := BuildLaunchCommand(t.TempDir(), effectiveFor("paper", "lots", "4G")); err == nil {
		t.Fatalf("expected error for unparseable ram_min")
	}
}

func TestBuildLaunchCommandScriptTypes(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	content := "#!/bin/sh\n# Forge launcher\njava -Xms1G -Xmx2G @libraries/args.txt \"$@\"\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write run.sh: %v", err)
	}

	argv, err := BuildLaunchCommand(dir, effectiveFor("forge", "3G", "6G"))
	if err != nil {
		t.Fatalf("BuildLaunchCommand failed: %v", err)
	}
	if strings.Join(argv, " ") != "./run.sh nogui" {
		t.Fatalf("unexpected argv: %v", argv)
	}

	rewritten, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("failed to read run.sh: %v", err)
	}
	got := string(rewritten)
	if !strings.Contains(got, "-Xms3G") || !strings.Contains(got, "-Xmx6G") {
		t.Fatalf("memory flags not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "#!/bin/sh\n# Forge launcher\n") || !strings.Contains(got, "@libraries/args.txt \"$@\"") {
		t.Fatalf("unrelated content changed:\n%s", got)
	}

	info, err := os.Stat(script)
	if err != nil {
		t.Fatalf("failed to stat run.sh: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("script permissions changed: %v", info.Mode().Perm())
	}
}

func TestBuildLaunchCommandScriptMissing(t *testing.T) {
	if _, err := BuildLaunchCommand(t.TempDir(), effectiveFor("neoforge", "2G", "4G")); err == nil {
		t.Fatalf("expected error when run.sh is missing")
	}
}

func TestRewriteScriptWithoutMemoryFlagsUntouched(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	content := "#!/bin/sh\njava @user_jvm_args.txt @libraries/args.txt \"$@\"\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write run.sh: %v", err)
	}

	if err := rewriteScriptMemoryFlags(script, "2G", "4G"); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("failed to read run.sh: %v", err)
	}
	if string(data) != content {
		t.Fatalf("script without memory flags was modified:\n%s", string(data))
	}
}
