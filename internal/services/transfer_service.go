package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"podsync-backend/internal/models"
	"podsync-backend/internal/progress"
)

// DeviceNamespaceDir is the fixed subdirectory on every device under which
// all application-managed files live, keeping them apart from whatever else
// is on the stick.
const DeviceNamespaceDir = "PodSync"

// SpaceReporter answers capacity queries for a mounted path. DeviceService
// provides the real implementation; tests substitute fixed numbers.
type SpaceReporter interface {
	SpaceForPath(path string) (total, available uint64, err error)
}

// TransferService copies downloaded episode files onto removable devices
// with the same chunked progress contract as downloads, plus a space
// pre-flight that runs before any destination I/O.
type TransferService struct {
	table *progress.Table
	space SpaceReporter
}

// NewTransferService creates a device transfer engine.
func NewTransferService(table *progress.Table, space SpaceReporter) *TransferService {
	return &TransferService{table: table, space: space}
}

// Transfer copies localPath to <deviceRoot>/PodSync/<filename>. Progress is
// keyed by (localPath, deviceRoot). Validation order matters: source, then
// device, then space, and only then is any destination path touched, so an
// insufficient-space failure leaves no partial file behind.
func (s *TransferService) Transfer(ctx context.Context, localPath, deviceRoot, filename string) error {
	s.table.Register(localPath, deviceRoot, 0)

	info, err := os.Stat(localPath)
	if err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("source file not found: %s: %w", localPath, models.ErrNotFound))
	}
	srcSize := uint64(info.Size())

	if _, err := os.Stat(deviceRoot); err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("device not found or not mounted: %s: %w", deviceRoot, models.ErrNotFound))
	}

	_, available, err := s.space.SpaceForPath(deviceRoot)
	if err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to read device capacity for %s: %v: %w", deviceRoot, err, models.ErrIO))
	}
	if available < srcSize {
		return s.fail(localPath, deviceRoot, fmt.Errorf("insufficient space on device: need %d bytes, available %d bytes: %w", srcSize, available, models.ErrInsufficientSpace))
	}

	s.table.UpdateBytes(localPath, deviceRoot, 0, srcSize, 0, -1)

	destDir := filepath.Join(deviceRoot, DeviceNamespaceDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to create device directory %s: %v: %w", destDir, err, models.ErrIO))
	}
	destPath := filepath.Join(destDir, filename)

	src, err := os.Open(localPath)
	if err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to open source %s: %v: %w", localPath, err, models.ErrIO))
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to create %s on device: %v: %w", destPath, err, models.ErrIO))
	}

	s.table.MarkInProgress(localPath, deviceRoot)
	start := time.Now()
	var transferred uint64
	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			dst.Close()
			s.table.MarkCancelled(localPath, deviceRoot)
			return fmt.Errorf("transfer of %s cancelled: %w", localPath, err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				dst.Close()
				return s.fail(localPath, deviceRoot, fmt.Errorf("failed to write %s: %v: %w", destPath, writeErr, models.ErrIO))
			}
			transferred += uint64(n)
			speed := transferSpeed(transferred, start)
			s.table.UpdateBytes(localPath, deviceRoot, transferred, srcSize, speed, etaSeconds(srcSize, transferred, speed))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			return s.fail(localPath, deviceRoot, fmt.Errorf("failed to read %s: %v: %w", localPath, readErr, models.ErrIO))
		}
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to flush %s: %v: %w", destPath, err, models.ErrIO))
	}
	if err := dst.Close(); err != nil {
		return s.fail(localPath, deviceRoot, fmt.Errorf("failed to close %s: %v: %w", destPath, err, models.ErrIO))
	}

	s.table.MarkCompleted(localPath, deviceRoot)
	log.Printf("[Transfer] Copied %s to %s (%d bytes)", localPath, destPath, transferred)
	return nil
}

func (s *TransferService) fail(subjectID, targetID string, err error) error {
	s.table.MarkFailed(subjectID, targetID, err.Error())
	return err
}
