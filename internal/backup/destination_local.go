package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalDestination mirrors archives into another directory on the local
// filesystem, typically a mounted external or network volume.
type LocalDestination struct {
	basePath string
}

// NewLocalDestination creates a local mirror destination.
func NewLocalDestination(basePath string) *LocalDestination {
	return &LocalDestination{basePath: basePath}
}

// Upload copies the archive into the destination directory. A partial or
// truncated copy is removed rather than left behind.
func (ld *LocalDestination) Upload(filename string, r io.Reader, sizeBytes int64) error {
	if err := os.MkdirAll(ld.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	destPath := filepath.Join(ld.basePath, filename)
	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, r)
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to write destination file: %w", err)
	}
	if written != sizeBytes {
		os.Remove(destPath)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d", sizeBytes, written)
	}
	return nil
}

// Type returns the destination type.
func (ld *LocalDestination) Type() string {
	return "local"
}
