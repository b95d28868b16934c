package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"podsync-backend/internal/models"
)

// fakeEpisodeStore keeps episodes in memory and records flag writes.
type fakeEpisodeStore struct {
	episodes []*models.Episode
	cleared  []int64
	adopted  []int64
}

func (f *fakeEpisodeStore) EpisodesOnDevice(ctx context.Context) ([]models.Episode, error) {
	var out []models.Episode
	for _, ep := range f.episodes {
		if ep.OnDevice {
			out = append(out, *ep)
		}
	}
	return out, nil
}

func (f *fakeEpisodeStore) SetOnDevice(ctx context.Context, id int64, onDevice bool) error {
	for _, ep := range f.episodes {
		if ep.ID == id {
			ep.OnDevice = onDevice
		}
	}
	if onDevice {
		f.adopted = append(f.adopted, id)
	} else {
		f.cleared = append(f.cleared, id)
	}
	return nil
}

// deviceWithFiles builds a device root containing the app directory with the
// given files in it.
func deviceWithFiles(t *testing.T, names ...string) string {
	t.Helper()
	device := t.TempDir()
	appDir := filepath.Join(device, DeviceNamespaceDir)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatalf("Failed to create app directory: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(appDir, name), []byte("audio"), 0o644); err != nil {
			t.Fatalf("Failed to create device file %s: %v", name, err)
		}
	}
	return device
}

func onDeviceEpisode(id int64, localName string) *models.Episode {
	return &models.Episode{
		ID:            id,
		LocalFilePath: filepath.Join("/downloads", "1", localName),
		Downloaded:    true,
		OnDevice:      true,
	}
}

func TestScanDevice_MissingAppDirIsEmpty(t *testing.T) {
	svc := NewReconcileService(&fakeEpisodeStore{})

	files, err := svc.ScanDevice(t.TempDir())
	if err != nil {
		t.Fatalf("ScanDevice failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected empty scan for device without app directory, got %d files", len(files))
	}
}

func TestScanDevice_SkipsDirectoriesAndDotfiles(t *testing.T) {
	device := deviceWithFiles(t, "a.mp3", "b.mp3", ".Trash-1000")
	if err := os.Mkdir(filepath.Join(device, DeviceNamespaceDir, "nested"), 0o755); err != nil {
		t.Fatalf("Failed to create nested directory: %v", err)
	}

	svc := NewReconcileService(&fakeEpisodeStore{})
	files, err := svc.ScanDevice(device)
	if err != nil {
		t.Fatalf("ScanDevice failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].Filename != "a.mp3" || files[1].Filename != "b.mp3" {
		t.Errorf("Expected [a.mp3 b.mp3], got [%s %s]", files[0].Filename, files[1].Filename)
	}
}

func TestScanDevice_DeviceMissing(t *testing.T) {
	svc := NewReconcileService(&fakeEpisodeStore{})

	_, err := svc.ScanDevice(filepath.Join(t.TempDir(), "unplugged"))
	if err == nil {
		t.Fatal("Expected error for missing device, got nil")
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected a not-found error, got: %v", err)
	}
}

func TestVerify_ConsistentDevice(t *testing.T) {
	device := deviceWithFiles(t, "a.mp3", "b.mp3")
	svc := NewReconcileService(&fakeEpisodeStore{})

	report, err := svc.Verify(device, []string{"a.mp3", "b.mp3"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !report.IsConsistent {
		t.Error("Expected consistent report")
	}
	if report.FilesFound != 2 {
		t.Errorf("Expected 2 files found, got %d", report.FilesFound)
	}
	if report.DatabaseEpisodes != 2 {
		t.Errorf("Expected 2 database episodes, got %d", report.DatabaseEpisodes)
	}
	if len(report.MissingFromDevice) != 0 || len(report.MissingFromDatabase) != 0 {
		t.Errorf("Expected empty difference lists, got %v and %v",
			report.MissingFromDevice, report.MissingFromDatabase)
	}
}

func TestVerify_ReportsBothDirections(t *testing.T) {
	// Device holds a.mp3 and an untracked c.mp3; b.mp3 never made it over
	device := deviceWithFiles(t, "a.mp3", "c.mp3")
	svc := NewReconcileService(&fakeEpisodeStore{})

	report, err := svc.Verify(device, []string{"a.mp3", "b.mp3"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if report.IsConsistent {
		t.Error("Expected inconsistent report")
	}
	if report.FilesFound != 2 {
		t.Errorf("Expected 2 files found, got %d", report.FilesFound)
	}
	if report.DatabaseEpisodes != 2 {
		t.Errorf("Expected 2 database episodes, got %d", report.DatabaseEpisodes)
	}
	if len(report.MissingFromDevice) != 1 || report.MissingFromDevice[0] != "b.mp3" {
		t.Errorf("Expected missing_from_device [b.mp3], got %v", report.MissingFromDevice)
	}
	if len(report.MissingFromDatabase) != 1 || report.MissingFromDatabase[0] != "c.mp3" {
		t.Errorf("Expected missing_from_database [c.mp3], got %v", report.MissingFromDatabase)
	}
}

func TestVerify_MirroredSetsSwapSides(t *testing.T) {
	svc := NewReconcileService(&fakeEpisodeStore{})

	deviceA := deviceWithFiles(t, "a.mp3")
	reportA, err := svc.Verify(deviceA, []string{"b.mp3"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	deviceB := deviceWithFiles(t, "b.mp3")
	reportB, err := svc.Verify(deviceB, []string{"a.mp3"})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// Swapping the two sides must swap the two difference lists
	if len(reportA.MissingFromDevice) != 1 || reportA.MissingFromDevice[0] != "b.mp3" {
		t.Errorf("Expected missing_from_device [b.mp3], got %v", reportA.MissingFromDevice)
	}
	if len(reportB.MissingFromDatabase) != 1 || reportB.MissingFromDatabase[0] != "b.mp3" {
		t.Errorf("Expected missing_from_database [b.mp3], got %v", reportB.MissingFromDatabase)
	}
	if reportA.MissingFromDevice[0] != reportB.MissingFromDatabase[0] {
		t.Error("Expected mirrored verifications to agree on the differing file")
	}
}

func TestSync_ClearsFlagsForMissingFilesOnly(t *testing.T) {
	store := &fakeEpisodeStore{episodes: []*models.Episode{
		onDeviceEpisode(1, "a.mp3"),
		onDeviceEpisode(2, "b.mp3"),
	}}
	device := deviceWithFiles(t, "a.mp3")
	svc := NewReconcileService(store)

	report, err := svc.Sync(context.Background(), device)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if report.UpdatedEpisodes != 1 {
		t.Errorf("Expected 1 updated episode, got %d", report.UpdatedEpisodes)
	}
	if report.ProcessedFiles != 1 {
		t.Errorf("Expected 1 processed file, got %d", report.ProcessedFiles)
	}
	if report.IsConsistent {
		t.Error("Expected inconsistent report")
	}
	if len(store.cleared) != 1 || store.cleared[0] != 2 {
		t.Errorf("Expected only episode 2 cleared, got %v", store.cleared)
	}
	if len(store.adopted) != 0 {
		t.Errorf("Expected no flags set to true, got %v", store.adopted)
	}
}

func TestSync_NeverAdoptsUnknownFiles(t *testing.T) {
	store := &fakeEpisodeStore{episodes: []*models.Episode{
		onDeviceEpisode(1, "a.mp3"),
	}}
	// stranger.mp3 exists on the device but no episode record claims it
	device := deviceWithFiles(t, "a.mp3", "stranger.mp3")
	svc := NewReconcileService(store)

	report, err := svc.Sync(context.Background(), device)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if report.UpdatedEpisodes != 0 {
		t.Errorf("Expected no updates, got %d", report.UpdatedEpisodes)
	}
	if !report.IsConsistent {
		t.Error("Expected consistent report; unknown files are not corrections")
	}
	if len(store.adopted) != 0 || len(store.cleared) != 0 {
		t.Errorf("Expected no flag writes, got adopted=%v cleared=%v", store.adopted, store.cleared)
	}
}

func TestSync_ReportReflectsStateBeforeCorrection(t *testing.T) {
	store := &fakeEpisodeStore{episodes: []*models.Episode{
		onDeviceEpisode(1, "a.mp3"),
	}}
	device := deviceWithFiles(t) // app dir exists, no files
	svc := NewReconcileService(store)

	first, err := svc.Sync(context.Background(), device)
	if err != nil {
		t.Fatalf("First sync failed: %v", err)
	}
	if first.IsConsistent {
		t.Error("Expected first sync to report the inconsistency it found")
	}
	if first.UpdatedEpisodes != 1 {
		t.Errorf("Expected 1 update on first sync, got %d", first.UpdatedEpisodes)
	}

	// The flag is corrected now, so a second pass finds nothing to do
	second, err := svc.Sync(context.Background(), device)
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if !second.IsConsistent {
		t.Error("Expected second sync to be consistent")
	}
	if second.UpdatedEpisodes != 0 {
		t.Errorf("Expected no updates on second sync, got %d", second.UpdatedEpisodes)
	}
}

func TestSync_SkipsEpisodesWithoutLocalPath(t *testing.T) {
	broken := &models.Episode{ID: 5, OnDevice: true}
	store := &fakeEpisodeStore{episodes: []*models.Episode{broken}}
	device := deviceWithFiles(t)
	svc := NewReconcileService(store)

	report, err := svc.Sync(context.Background(), device)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if report.UpdatedEpisodes != 0 {
		t.Errorf("Expected no updates for pathless episode, got %d", report.UpdatedEpisodes)
	}
	if len(store.cleared) != 0 {
		t.Errorf("Expected pathless episode left untouched, got cleared=%v", store.cleared)
	}
	if !broken.OnDevice {
		t.Error("Expected pathless episode to keep its flag")
	}
}
