package backup

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	xssh "golang.org/x/crypto/ssh"

	"github.com/minemanage/minemanage/internal/config"
)

// SFTPDestination replicates archives to a remote host over SFTP.
type SFTPDestination struct {
	settings   config.DestinationSettings
	sshClient  *xssh.Client
	sftpClient *sftp.Client
}

// NewSFTPDestination connects to the remote host and prepares the target
// directory. The connection stays open for the life of the destination.
func NewSFTPDestination(settings config.DestinationSettings) (*SFTPDestination, error) {
	dest := &SFTPDestination{settings: settings}
	if err := dest.connect(); err != nil {
		return nil, err
	}
	return dest, nil
}

func (sd *SFTPDestination) connect() error {
	callback, err := hostKeyCallback(sd.settings.SFTPKnownHosts)
	if err != nil {
		return fmt.Errorf("failed to configure host key verification: %w", err)
	}
	sshConfig := &xssh.ClientConfig{
		User:            sd.settings.SFTPUsername,
		HostKeyCallback: callback,
		Timeout:         30 * time.Second,
	}

	switch {
	case sd.settings.SFTPKeyPath != "":
		keyData, err := os.ReadFile(sd.settings.SFTPKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := xssh.ParsePrivateKey(keyData)
		if err != nil {
			return fmt.Errorf("failed to parse SSH key: %w", err)
		}
		sshConfig.Auth = []xssh.AuthMethod{xssh.PublicKeys(signer)}
	case sd.settings.SFTPPassword != "":
		sshConfig.Auth = []xssh.AuthMethod{xssh.Password(sd.settings.SFTPPassword)}
	default:
		return fmt.Errorf("sftp destination needs a key path or password")
	}

	port := sd.settings.SFTPPort
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", sd.settings.SFTPHost, port)

	sshClient, err := xssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	sd.sshClient = sshClient

	sftpClient, err := sftp.NewClient(sshClient,
		sftp.MaxPacketUnchecked(131072),
		sftp.UseConcurrentWrites(true),
	)
	if err != nil {
		sshClient.Close()
		return fmt.Errorf("failed to open SFTP channel: %w", err)
	}
	sd.sftpClient = sftpClient

	if sd.settings.Path != "" {
		if err := sd.sftpClient.MkdirAll(sd.settings.Path); err != nil {
			sd.Close()
			return fmt.Errorf("failed to create remote directory %s: %w", sd.settings.Path, err)
		}
	}
	return nil
}

// Close tears down the SFTP channel and the SSH connection.
func (sd *SFTPDestination) Close() error {
	if sd.sftpClient != nil {
		sd.sftpClient.Close()
	}
	if sd.sshClient != nil {
		sd.sshClient.Close()
	}
	return nil
}

// Upload copies the archive to the remote directory. A short or failed
// write removes the remote file instead of leaving a truncated copy.
func (sd *SFTPDestination) Upload(filename string, r io.Reader, sizeBytes int64) error {
	destPath := path.Join(sd.settings.Path, filename)

	file, err := sd.sftpClient.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, r)
	if err != nil {
		sd.sftpClient.Remove(destPath)
		return fmt.Errorf("failed to write remote file: %w", err)
	}
	if written != sizeBytes {
		sd.sftpClient.Remove(destPath)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d", sizeBytes, written)
	}
	return nil
}

// Type returns the destination type.
func (sd *SFTPDestination) Type() string {
	return "sftp"
}
