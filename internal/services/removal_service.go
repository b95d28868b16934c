package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"podsync-backend/internal/models"
)

// RemovalService deletes single application-managed files from a device.
type RemovalService struct{}

// NewRemovalService creates a device removal engine.
func NewRemovalService() *RemovalService {
	return &RemovalService{}
}

// Remove deletes <deviceRoot>/PodSync/<filename>. A missing file is a
// reported error, never silently ignored, so the caller can tell a stale
// flag from a successful removal. The namespace directory is left in place
// even when its last file goes.
func (s *RemovalService) Remove(deviceRoot, filename string) error {
	if _, err := os.Stat(deviceRoot); err != nil {
		return fmt.Errorf("device not found or not mounted: %s: %w", deviceRoot, models.ErrNotFound)
	}

	path := filepath.Join(deviceRoot, DeviceNamespaceDir, filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("episode file '%s' not found on device: %w", filename, models.ErrNotFound)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove episode file '%s': %v: %w", filename, err, models.ErrIO)
	}

	log.Printf("[Device] Removed %s from %s", filename, deviceRoot)
	return nil
}
