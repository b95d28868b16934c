package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"podsync-backend/internal/models"
	"podsync-backend/internal/progress"
)

// EpisodeLibrary is the episode persistence surface the command layer
// drives. The concrete implementation lives in the repositories package.
type EpisodeLibrary interface {
	EpisodeStore
	GetByID(ctx context.Context, id int64) (*models.Episode, error)
	MarkDownloaded(ctx context.Context, id int64, localPath string, fileSize int64) error
	ClearDownloaded(ctx context.Context, id int64) error
}

// DeviceResolver turns a device id into a currently connected device.
type DeviceResolver interface {
	FindDevice(deviceID string) (models.UsbDevice, error)
}

// TransferRecorder observes finished operations for metrics. Callers may
// run without one.
type TransferRecorder interface {
	OpStarted()
	OpFinished()
	RecordDownload(success bool, bytes uint64, duration time.Duration)
	RecordDeviceTransfer(success bool, bytes uint64, duration time.Duration)
	RecordDeviceRemoval(success bool)
}

// EpisodeService coordinates the engines with the episode library: it
// resolves episodes and devices, derives on-device filenames, persists
// status flags after an engine succeeds, and enforces the download
// admission cap. The engines themselves never touch the database.
type EpisodeService struct {
	library   EpisodeLibrary
	devices   DeviceResolver
	downloads *DownloadService
	transfers *TransferService
	removals  *RemovalService
	reconcile *ReconcileService
	table     *progress.Table
	metrics   TransferRecorder
	slots     chan struct{} // download admission, one token per running download
}

// NewEpisodeService wires the command layer. maxConcurrentDownloads <= 0
// selects the default cap of 3. metrics may be nil.
func NewEpisodeService(
	library EpisodeLibrary,
	devices DeviceResolver,
	downloads *DownloadService,
	transfers *TransferService,
	removals *RemovalService,
	reconcile *ReconcileService,
	table *progress.Table,
	metrics TransferRecorder,
	maxConcurrentDownloads int,
) *EpisodeService {
	if maxConcurrentDownloads <= 0 {
		maxConcurrentDownloads = 3
	}
	return &EpisodeService{
		library:   library,
		devices:   devices,
		downloads: downloads,
		transfers: transfers,
		removals:  removals,
		reconcile: reconcile,
		table:     table,
		metrics:   metrics,
		slots:     make(chan struct{}, maxConcurrentDownloads),
	}
}

// DownloadEpisode fetches an episode's media file into the library and
// persists downloaded=true plus the local path. Waits for an admission
// slot when the concurrent-download cap is reached.
func (s *EpisodeService) DownloadEpisode(ctx context.Context, episodeID int64) (string, error) {
	ep, err := s.library.GetByID(ctx, episodeID)
	if err != nil {
		return "", err
	}
	if ep.EpisodeURL == "" {
		return "", fmt.Errorf("episode %d has no source URL", episodeID)
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("download of episode %d cancelled while waiting for a slot: %w", episodeID, ctx.Err())
	}
	defer func() { <-s.slots }()

	if s.metrics != nil {
		s.metrics.OpStarted()
		defer s.metrics.OpFinished()
	}

	subject := strconv.FormatInt(episodeID, 10)
	start := time.Now()
	localPath, err := s.downloads.Download(ctx, ep.EpisodeURL, subject, strconv.FormatInt(ep.PodcastID, 10))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordDownload(false, 0, time.Since(start))
		}
		return "", err
	}

	var size int64
	if info, statErr := os.Stat(localPath); statErr == nil {
		size = info.Size()
	}
	if s.metrics != nil {
		s.metrics.RecordDownload(true, uint64(size), time.Since(start))
	}

	if err := s.library.MarkDownloaded(ctx, episodeID, localPath, size); err != nil {
		return "", fmt.Errorf("episode %d downloaded to %s but status was not persisted: %w", episodeID, localPath, err)
	}
	return localPath, nil
}

// DeleteDownloadedEpisode removes the local media file, clears the
// downloaded flag, and drops the download's progress entry since there is
// nothing left for it to describe.
func (s *EpisodeService) DeleteDownloadedEpisode(ctx context.Context, episodeID int64) error {
	ep, err := s.library.GetByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep.LocalFilePath == "" {
		return fmt.Errorf("episode %d has no downloaded file: %w", episodeID, models.ErrNotFound)
	}

	if err := os.Remove(ep.LocalFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %v: %w", ep.LocalFilePath, err, models.ErrIO)
	}
	if err := s.library.ClearDownloaded(ctx, episodeID); err != nil {
		return fmt.Errorf("failed to clear downloaded state for episode %d: %w", episodeID, err)
	}

	s.table.Remove(strconv.FormatInt(episodeID, 10), "")
	log.Printf("[Download] Deleted local file for episode %d (%s)", episodeID, ep.LocalFilePath)
	return nil
}

// TransferToDevice copies a downloaded episode onto a connected device and
// persists on_device=true. The on-device filename is the sanitized form of
// the local basename.
func (s *EpisodeService) TransferToDevice(ctx context.Context, episodeID int64, deviceID string) error {
	ep, err := s.library.GetByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if !ep.Downloaded || ep.LocalFilePath == "" {
		return fmt.Errorf("episode %d has not been downloaded yet", episodeID)
	}

	device, err := s.devices.FindDevice(deviceID)
	if err != nil {
		return err
	}

	var size uint64
	if info, statErr := os.Stat(ep.LocalFilePath); statErr == nil {
		size = uint64(info.Size())
	}

	if s.metrics != nil {
		s.metrics.OpStarted()
		defer s.metrics.OpFinished()
	}

	filename := DeviceFilename(ep.LocalFilePath)
	start := time.Now()
	if err := s.transfers.Transfer(ctx, ep.LocalFilePath, device.Path, filename); err != nil {
		if s.metrics != nil {
			s.metrics.RecordDeviceTransfer(false, 0, time.Since(start))
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordDeviceTransfer(true, size, time.Since(start))
	}

	if err := s.library.SetOnDevice(ctx, episodeID, true); err != nil {
		return fmt.Errorf("episode %d transferred but status was not persisted: %w", episodeID, err)
	}
	log.Printf("[Transfer] Episode %d transferred to device %s as %s", episodeID, deviceID, filename)
	return nil
}

// RemoveFromDevice deletes an episode's file from a connected device and
// persists on_device=false.
func (s *EpisodeService) RemoveFromDevice(ctx context.Context, episodeID int64, deviceID string) error {
	ep, err := s.library.GetByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if !ep.OnDevice {
		return fmt.Errorf("episode %d is not on any device", episodeID)
	}
	if ep.LocalFilePath == "" {
		return fmt.Errorf("episode %d has no local path to derive its device filename from", episodeID)
	}

	device, err := s.devices.FindDevice(deviceID)
	if err != nil {
		return err
	}

	if err := s.removals.Remove(device.Path, DeviceFilename(ep.LocalFilePath)); err != nil {
		if s.metrics != nil {
			s.metrics.RecordDeviceRemoval(false)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordDeviceRemoval(true)
	}

	if err := s.library.SetOnDevice(ctx, episodeID, false); err != nil {
		return fmt.Errorf("episode %d removed from device but status was not persisted: %w", episodeID, err)
	}
	log.Printf("[Device] Episode %d removed from device %s", episodeID, deviceID)
	return nil
}

// DeviceEpisodes lists the application files on a device joined with the
// owning podcast, for grouped listings. Files no episode claims are
// reported under "Unknown".
func (s *EpisodeService) DeviceEpisodes(ctx context.Context, deviceRoot string) ([]models.DeviceEpisodeInfo, error) {
	scan, err := s.reconcile.ScanDevice(deviceRoot)
	if err != nil {
		return nil, err
	}
	episodes, err := s.library.EpisodesOnDevice(ctx)
	if err != nil {
		return nil, err
	}

	podcastByFile := make(map[string]string, len(episodes))
	for _, ep := range episodes {
		if ep.LocalFilePath == "" {
			continue
		}
		podcastByFile[DeviceFilename(ep.LocalFilePath)] = ep.PodcastName
	}

	infos := make([]models.DeviceEpisodeInfo, 0, len(scan))
	for _, f := range scan {
		podcast := podcastByFile[f.Filename]
		if podcast == "" {
			podcast = "Unknown"
		}
		infos = append(infos, models.DeviceEpisodeInfo{
			Filename:     f.Filename,
			PodcastName:  podcast,
			FileSize:     f.SizeBytes,
			LastModified: f.LastModified,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].PodcastName != infos[j].PodcastName {
			return infos[i].PodcastName < infos[j].PodcastName
		}
		return infos[i].Filename < infos[j].Filename
	})
	return infos, nil
}

// DeviceStatusIndicators reports, for every episode flagged on-device,
// whether its file is actually present on the given device. Keys are
// on-device filenames.
func (s *EpisodeService) DeviceStatusIndicators(ctx context.Context, deviceRoot string) (map[string]bool, error) {
	scan, err := s.reconcile.ScanDevice(deviceRoot)
	if err != nil {
		return nil, err
	}
	episodes, err := s.library.EpisodesOnDevice(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(scan))
	for _, f := range scan {
		present[f.Filename] = true
	}

	indicators := make(map[string]bool, len(episodes))
	for _, ep := range episodes {
		if ep.LocalFilePath == "" {
			continue
		}
		name := DeviceFilename(ep.LocalFilePath)
		indicators[name] = present[name]
	}
	return indicators, nil
}

// VerifyDevice builds the expected filename set from the episodes flagged
// on-device and runs a read-only consistency check against the device.
func (s *EpisodeService) VerifyDevice(ctx context.Context, deviceRoot string) (models.ConsistencyReport, error) {
	episodes, err := s.library.EpisodesOnDevice(ctx)
	if err != nil {
		return models.ConsistencyReport{}, err
	}
	expected := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		if ep.LocalFilePath == "" {
			continue
		}
		expected = append(expected, DeviceFilename(ep.LocalFilePath))
	}
	return s.reconcile.Verify(deviceRoot, expected)
}

// SyncDevice corrects stale on-device flags against the device contents.
func (s *EpisodeService) SyncDevice(ctx context.Context, deviceRoot string) (models.DeviceSyncReport, error) {
	return s.reconcile.Sync(ctx, deviceRoot)
}
