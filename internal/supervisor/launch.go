package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	units "github.com/docker/go-units"
	"github.com/minemanage/minemanage/internal/config"
	"github.com/minemanage/minemanage/internal/session"
)

// WorkerType is the closed set of supported worker flavors. Launch-command
// construction dispatches on it through a single switch instead of string
// comparisons scattered across call sites.
type WorkerType string

const (
	Vanilla  WorkerType = "vanilla"
	Paper    WorkerType = "paper"
	Fabric   WorkerType = "fabric"
	Forge    WorkerType = "forge"
	NeoForge WorkerType = "neoforge"
)

// launchScript is the loader-provided entry point for worker types that do
// not launch from a plain jar.
const launchScript = "run.sh"

// ParseWorkerType validates a worker type tag.
func ParseWorkerType(s string) (WorkerType, error) {
	switch t := WorkerType(strings.ToLower(strings.TrimSpace(s))); t {
	case Vanilla, Paper, Fabric, Forge, NeoForge:
		return t, nil
	default:
		return "", fmt.Errorf("unknown server type %q (expected vanilla, paper, fabric, forge or neoforge)", s)
	}
}

// UsesLaunchScript reports whether the worker type starts through its own
// shipped launch script rather than a direct jar invocation.
func (t WorkerType) UsesLaunchScript() bool {
	return t == Forge || t == NeoForge
}

// BuildLaunchCommand constructs the argv the worker is spawned with inside
// its session. Jar-based types get a direct java invocation with memory
// bounds; script-based loaders get their run.sh invoked after its memory
// flag lines are rewritten in place.
func BuildLaunchCommand(instanceDir string, cfg config.EffectiveConfig) ([]string, error) {
	workerType, err := ParseWorkerType(cfg.Instance.ServerType)
	if err != nil {
		return nil, err
	}

	ramMin, ramMax, err := validateMemoryBounds(cfg.Instance.RAMMin, cfg.Instance.RAMMax)
	if err != nil {
		return nil, err
	}

	switch workerType {
	case Vanilla, Paper, Fabric:
		javaPath := cfg.Global.JavaPath
		if javaPath == "" {
			javaPath = "java"
		}
		return []string{
			javaPath,
			"-Xms" + ramMin,
			"-Xmx" + ramMax,
			"-jar", session.WorkerArtifact,
			"nogui",
		}, nil
	case Forge, NeoForge:
		scriptPath := filepath.Join(instanceDir, launchScript)
		if err := rewriteScriptMemoryFlags(scriptPath, ramMin, ramMax); err != nil {
			return nil, err
		}
		return []string{"./" + launchScript, "nogui"}, nil
	default:
		return nil, fmt.Errorf("unknown server type %q", workerType)
	}
}

func validateMemoryBounds(ramMin, ramMax string) (string, string, error) {
	if ramMin == "" {
		ramMin = "2G"
	}
	if ramMax == "" {
		ramMax = "4G"
	}

	minBytes, err := units.RAMInBytes(ramMin)
	if err != nil {
		return "", "", fmt.Errorf("invalid ram_min %q: %w", ramMin, err)
	}
	maxBytes, err := units.RAMInBytes(ramMax)
	if err != nil {
		return "", "", fmt.Errorf("invalid ram_max %q: %w", ramMax, err)
	}
	if minBytes > maxBytes {
		return "", "", fmt.Errorf("ram_min %s exceeds ram_max %s", ramMin, ramMax)
	}
	return ramMin, ramMax, nil
}

var (
	xmxRe = regexp.MustCompile(`-Xmx\S+`)
	xmsRe = regexp.MustCompile(`-Xms\S+`)
)

// rewriteScriptMemoryFlags updates the -Xms/-Xmx tokens inside the loader's
// launch script, preserving every other line verbatim. A script without
// memory flags is left untouched.
func rewriteScriptMemoryFlags(scriptPath, ramMin, ramMax string) error {
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("launch script not found (reinstall the server files): %w", err)
	}

	info, err := os.Stat(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to stat launch script: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	changed := false
	for i, line := range lines {
		if !strings.Contains(line, "-Xmx") && !strings.Contains(line, "-Xms") {
			continue
		}
		updated := xmxRe.ReplaceAllString(line, "-Xmx"+ramMax)
		updated = xmsRe.ReplaceAllString(updated, "-Xms"+ramMin)
		if updated != line {
			lines[i] = updated
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := os.WriteFile(scriptPath, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to rewrite launch script: %w", err)
	}
	return nil
}
