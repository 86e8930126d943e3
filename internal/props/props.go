// Package props reads and rewrites the worker's server.properties file.
package props

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const fileName = "server.properties"

// DefaultPort is the worker's port when server.properties is missing or has
// no server-port entry.
const DefaultPort = 25565

// Path returns the properties file path inside an instance directory.
func Path(instanceDir string) string {
	return filepath.Join(instanceDir, fileName)
}

// Port returns the instance's configured network port, falling back to
// DefaultPort when the file or key is absent.
func Port(instanceDir string) int {
	value, err := Get(instanceDir, "server-port")
	if err != nil {
		return DefaultPort
	}
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return DefaultPort
	}
	return port
}

// Get returns the value of a property key.
func Get(instanceDir, key string) (string, error) {
	file, err := os.Open(Path(instanceDir))
	if err != nil {
		return "", err
	}
	defer file.Close()

	prefix := key + "="
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("property %s not found", key)
}

// Set updates key to value, preserving every other line verbatim. A missing
// key is appended; a missing file is an error, since the worker generates
// the file on first run and guessing its remaining content would be wrong.
func Set(instanceDir, key, value string) error {
	path := Path(instanceDir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s not found, run the server once to generate it", fileName)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	prefix := key + "="
	lines := strings.Split(string(data), "\n")
	found := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			lines[i] = prefix + value
			found = true
		}
	}
	if !found {
		// Keep a trailing newline at the end of the file.
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines[len(lines)-1] = prefix + value
			lines = append(lines, "")
		} else {
			lines = append(lines, prefix+value)
		}
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return nil
}
