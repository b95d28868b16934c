package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podsync-backend/internal/models"
)

// EpisodeStore is the slice of episode persistence the reconciliation
// engine needs: which episodes the database believes are on a device, and
// the ability to clear that belief.
type EpisodeStore interface {
	EpisodesOnDevice(ctx context.Context) ([]models.Episode, error)
	SetOnDevice(ctx context.Context, episodeID int64, onDevice bool) error
}

// ReconcileService detects and repairs drift between the database's
// on-device flags and what is actually present on a device. The device
// filesystem is the source of truth: correction only ever clears flags for
// files confirmed absent. Files on the device that the database does not
// know about are reported but never adopted, because there is no metadata
// to attach to them.
type ReconcileService struct {
	store EpisodeStore
}

// NewReconcileService creates a reconciliation engine over the given store.
func NewReconcileService(store EpisodeStore) *ReconcileService {
	return &ReconcileService{store: store}
}

// ScanDevice lists the application files present under the device
// namespace. Hidden files and subdirectories are ignored. A missing
// namespace directory is an empty device, not an error.
func (s *ReconcileService) ScanDevice(deviceRoot string) ([]models.DeviceFileEntry, error) {
	if _, err := os.Stat(deviceRoot); err != nil {
		return nil, fmt.Errorf("device not found or not mounted: %s: %w", deviceRoot, models.ErrNotFound)
	}

	dir := filepath.Join(deviceRoot, DeviceNamespaceDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan device directory %s: %v: %w", dir, err, models.ErrIO)
	}

	var files []models.DeviceFileEntry
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.DeviceFileEntry{
			Filename:     entry.Name(),
			SizeBytes:    uint64(info.Size()),
			LastModified: info.ModTime(),
		})
	}
	return files, nil
}

// Verify compares the expected filename set against a fresh device scan.
// Pure comparison, set difference in both directions, no mutation.
func (s *ReconcileService) Verify(deviceRoot string, expectedFilenames []string) (models.ConsistencyReport, error) {
	scan, err := s.ScanDevice(deviceRoot)
	if err != nil {
		return models.ConsistencyReport{}, err
	}

	onDevice := make(map[string]bool, len(scan))
	for _, f := range scan {
		onDevice[f.Filename] = true
	}
	expected := make(map[string]bool, len(expectedFilenames))
	for _, name := range expectedFilenames {
		expected[name] = true
	}

	missingFromDevice := make([]string, 0)
	for name := range expected {
		if !onDevice[name] {
			missingFromDevice = append(missingFromDevice, name)
		}
	}
	missingFromDatabase := make([]string, 0)
	for name := range onDevice {
		if !expected[name] {
			missingFromDatabase = append(missingFromDatabase, name)
		}
	}
	sort.Strings(missingFromDevice)
	sort.Strings(missingFromDatabase)

	return models.ConsistencyReport{
		FilesFound:          len(scan),
		DatabaseEpisodes:    len(expected),
		MissingFromDevice:   missingFromDevice,
		MissingFromDatabase: missingFromDatabase,
		IsConsistent:        len(missingFromDevice) == 0 && len(missingFromDatabase) == 0,
	}, nil
}

// Sync clears the on-device flag of every episode whose file is absent from
// the device. One-directional: a flag is never set to true here.
// The returned report describes the device state found at scan time,
// independent of the corrections written.
func (s *ReconcileService) Sync(ctx context.Context, deviceRoot string) (models.DeviceSyncReport, error) {
	start := time.Now()

	episodes, err := s.store.EpisodesOnDevice(ctx)
	if err != nil {
		return models.DeviceSyncReport{}, fmt.Errorf("failed to load on-device episodes: %w", err)
	}

	scan, err := s.ScanDevice(deviceRoot)
	if err != nil {
		return models.DeviceSyncReport{}, err
	}
	onDevice := make(map[string]bool, len(scan))
	for _, f := range scan {
		onDevice[f.Filename] = true
	}

	updated := 0
	consistent := true
	for _, ep := range episodes {
		if ep.LocalFilePath == "" {
			// Nothing to match against; leave the record for an operator.
			log.Printf("[Reconcile] Episode %d is flagged on-device but has no local path, skipping", ep.ID)
			continue
		}
		name := DeviceFilename(ep.LocalFilePath)
		if onDevice[name] {
			continue
		}
		consistent = false
		if err := s.store.SetOnDevice(ctx, ep.ID, false); err != nil {
			return models.DeviceSyncReport{}, fmt.Errorf("failed to clear on-device flag for episode %d: %w", ep.ID, err)
		}
		updated++
		log.Printf("[Reconcile] Episode %d (%s) missing from %s, cleared on-device flag", ep.ID, name, deviceRoot)
	}

	return models.DeviceSyncReport{
		ProcessedFiles:  len(scan),
		UpdatedEpisodes: updated,
		SyncDurationMs:  time.Since(start).Milliseconds(),
		IsConsistent:    consistent,
	}, nil
}
