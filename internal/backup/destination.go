package backup

import (
	"fmt"
	"strings"

	"github.com/minemanage/minemanage/internal/config"
)

// NewDestination builds a replication destination from its settings.
func NewDestination(settings config.DestinationSettings) (Destination, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Type)) {
	case "local":
		return NewLocalDestination(settings.Path), nil
	case "s3":
		return NewS3Destination(settings)
	case "sftp":
		return NewSFTPDestination(settings)
	default:
		return nil, fmt.Errorf("unknown destination type: %s", settings.Type)
	}
}
