package instance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ScaffoldInstaller prepares a new instance directory for a manually placed
// server artifact: it lays out the standard subdirectories and accepts the
// EULA so the first start is not rejected. Downloading the server jar
// itself stays with the operator.
type ScaffoldInstaller struct{}

// Install creates the instance skeleton.
func (ScaffoldInstaller) Install(instanceDir, version, serverType string) error {
	for _, sub := range []string{"world", "logs"} {
		if err := os.MkdirAll(filepath.Join(instanceDir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	eulaPath := filepath.Join(instanceDir, "eula.txt")
	if err := os.WriteFile(eulaPath, []byte("eula=true\n"), 0644); err != nil {
		return fmt.Errorf("failed to write eula.txt: %w", err)
	}

	slog.Info("instance scaffold ready, place the server artifact before starting",
		"dir", instanceDir, "type", serverType, "version", version)
	return nil
}
