package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyCallback builds the SFTP host key policy around a known_hosts
// file: known keys must match, unknown hosts are trusted on first use and
// recorded, a changed key is always fatal. An empty path disables
// verification entirely, for operators who pin trust elsewhere.
func hostKeyCallback(knownHostsPath string) (xssh.HostKeyCallback, error) {
	if strings.TrimSpace(knownHostsPath) == "" {
		return xssh.InsecureIgnoreHostKey(), nil
	}

	if err := ensureKnownHostsFile(knownHostsPath); err != nil {
		return nil, err
	}
	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key xssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			slog.Warn("sftp host key changed, refusing connection",
				"host", hostname, "fingerprint", xssh.FingerprintSHA256(key))
			return fmt.Errorf("host key changed for %s", hostname)
		}

		if err := recordKnownHost(knownHostsPath, hostname, key); err != nil {
			return err
		}
		slog.Info("sftp host key accepted on first use",
			"host", hostname, "fingerprint", xssh.FingerprintSHA256(key))
		return nil
	}, nil
}

func ensureKnownHostsFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create known_hosts directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create known_hosts file: %w", err)
	}
	return file.Close()
}

func recordKnownHost(path, hostname string, key xssh.PublicKey) error {
	line := knownhosts.Line([]string{hostname}, key)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}
	return nil
}
