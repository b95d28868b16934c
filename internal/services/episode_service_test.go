package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"podsync-backend/internal/models"
	"podsync-backend/internal/progress"
)

// fakeLibrary is an in-memory EpisodeLibrary for exercising the command
// layer without a database.
type fakeLibrary struct {
	fakeEpisodeStore
}

func (f *fakeLibrary) GetByID(ctx context.Context, id int64) (*models.Episode, error) {
	for _, ep := range f.episodes {
		if ep.ID == id {
			copied := *ep
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("episode %d not found: %w", id, models.ErrNotFound)
}

func (f *fakeLibrary) MarkDownloaded(ctx context.Context, id int64, localPath string, fileSize int64) error {
	for _, ep := range f.episodes {
		if ep.ID == id {
			ep.Downloaded = true
			ep.LocalFilePath = localPath
			ep.FileSize = fileSize
		}
	}
	return nil
}

func (f *fakeLibrary) ClearDownloaded(ctx context.Context, id int64) error {
	for _, ep := range f.episodes {
		if ep.ID == id {
			ep.Downloaded = false
			ep.LocalFilePath = ""
		}
	}
	return nil
}

type fakeResolver struct {
	device models.UsbDevice
	err    error
}

func (f fakeResolver) FindDevice(deviceID string) (models.UsbDevice, error) {
	if f.err != nil {
		return models.UsbDevice{}, f.err
	}
	return f.device, nil
}

func newTestEpisodeService(lib *fakeLibrary, resolver DeviceResolver, table *progress.Table, downloadRoot string) *EpisodeService {
	return NewEpisodeService(
		lib,
		resolver,
		NewDownloadService(table, downloadRoot, 0),
		NewTransferService(table, stubSpace{total: 1 << 30, available: 1 << 30}),
		NewRemovalService(),
		NewReconcileService(lib),
		table,
		nil,
		2,
	)
}

func TestDownloadEpisode_FetchesAndPersists(t *testing.T) {
	body := bytes.Repeat([]byte("audio"), 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))
	defer srv.Close()

	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 42, PodcastID: 7, EpisodeURL: srv.URL + "/shows/ep01.mp3"},
	}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	path, err := svc.DownloadEpisode(context.Background(), 42)
	if err != nil {
		t.Fatalf("DownloadEpisode failed: %v", err)
	}

	ep := lib.episodes[0]
	if !ep.Downloaded {
		t.Error("Expected episode marked downloaded")
	}
	if ep.LocalFilePath != path {
		t.Errorf("Expected local path %s persisted, got %s", path, ep.LocalFilePath)
	}
	if ep.FileSize != int64(len(body)) {
		t.Errorf("Expected file size %d persisted, got %d", len(body), ep.FileSize)
	}
}

func TestDownloadEpisode_NoSourceURL(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{{ID: 1}}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	_, err := svc.DownloadEpisode(context.Background(), 1)
	if err == nil {
		t.Fatal("Expected error for episode without URL, got nil")
	}
	if !strings.Contains(err.Error(), "no source URL") {
		t.Errorf("Expected error about missing URL, got: %v", err)
	}
}

func TestDownloadEpisode_CancelledWaitingForSlot(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 1, PodcastID: 1, EpisodeURL: "http://127.0.0.1:1/ep.mp3"},
	}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	// Occupy every admission slot so the call has to wait
	svc.slots <- struct{}{}
	svc.slots <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.DownloadEpisode(ctx, 1)
	if err == nil {
		t.Fatal("Expected error when cancelled while waiting for a slot, got nil")
	}
	if !strings.Contains(err.Error(), "waiting for a slot") {
		t.Errorf("Expected slot-wait error, got: %v", err)
	}
}

func TestTransferToDevice_RequiresDownload(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{{ID: 3}}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	err := svc.TransferToDevice(context.Background(), 3, "dev1")
	if err == nil {
		t.Fatal("Expected error for undownloaded episode, got nil")
	}
	if !strings.Contains(err.Error(), "not been downloaded") {
		t.Errorf("Expected download-required error, got: %v", err)
	}
}

func TestTransferToDevice_CopiesAndFlags(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep01.mp3", []byte("audio data"))
	device := t.TempDir()

	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 3, Downloaded: true, LocalFilePath: src},
	}}}
	resolver := fakeResolver{device: models.UsbDevice{ID: "dev1", Path: device}}
	svc := newTestEpisodeService(lib, resolver, progress.NewTable(), t.TempDir())

	if err := svc.TransferToDevice(context.Background(), 3, "dev1"); err != nil {
		t.Fatalf("TransferToDevice failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(device, DeviceNamespaceDir, "ep01.mp3")); err != nil {
		t.Errorf("Expected file on device: %v", err)
	}
	if !lib.episodes[0].OnDevice {
		t.Error("Expected on-device flag persisted")
	}
}

func TestTransferToDevice_SanitizesDeviceFilename(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "My Show: E1.mp3", []byte("audio"))
	device := t.TempDir()

	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 4, Downloaded: true, LocalFilePath: src},
	}}}
	resolver := fakeResolver{device: models.UsbDevice{ID: "dev1", Path: device}}
	svc := newTestEpisodeService(lib, resolver, progress.NewTable(), t.TempDir())

	if err := svc.TransferToDevice(context.Background(), 4, "dev1"); err != nil {
		t.Fatalf("TransferToDevice failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(device, DeviceNamespaceDir, "My Show_ E1.mp3")); err != nil {
		t.Errorf("Expected sanitized filename on device: %v", err)
	}
}

func TestRemoveFromDevice_DeletesAndClearsFlag(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep01.mp3", []byte("audio"))
	device := deviceWithFiles(t, "ep01.mp3")

	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 5, Downloaded: true, OnDevice: true, LocalFilePath: src},
	}}}
	resolver := fakeResolver{device: models.UsbDevice{ID: "dev1", Path: device}}
	svc := newTestEpisodeService(lib, resolver, progress.NewTable(), t.TempDir())

	if err := svc.RemoveFromDevice(context.Background(), 5, "dev1"); err != nil {
		t.Fatalf("RemoveFromDevice failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(device, DeviceNamespaceDir, "ep01.mp3")); !os.IsNotExist(err) {
		t.Error("Expected file removed from device")
	}
	if lib.episodes[0].OnDevice {
		t.Error("Expected on-device flag cleared")
	}
}

func TestRemoveFromDevice_RequiresOnDevice(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 6, Downloaded: true, LocalFilePath: "/downloads/1/ep.mp3"},
	}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	err := svc.RemoveFromDevice(context.Background(), 6, "dev1")
	if err == nil {
		t.Fatal("Expected error for episode not on device, got nil")
	}
	if !strings.Contains(err.Error(), "not on any device") {
		t.Errorf("Expected not-on-device error, got: %v", err)
	}
}

func TestDeleteDownloadedEpisode(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep01.mp3", []byte("audio"))

	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 7, Downloaded: true, LocalFilePath: src},
	}}}
	table := progress.NewTable()
	table.Register("7", "", 5)
	table.MarkCompleted("7", "")
	svc := newTestEpisodeService(lib, fakeResolver{}, table, t.TempDir())

	if err := svc.DeleteDownloadedEpisode(context.Background(), 7); err != nil {
		t.Fatalf("DeleteDownloadedEpisode failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("Expected local file deleted")
	}
	if lib.episodes[0].Downloaded {
		t.Error("Expected downloaded flag cleared")
	}
	if _, ok := table.Get("7", ""); ok {
		t.Error("Expected progress entry removed with the file")
	}
}

func TestDeleteDownloadedEpisode_MissingFileStillClears(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 8, Downloaded: true, LocalFilePath: filepath.Join(t.TempDir(), "already-gone.mp3")},
	}}}
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	if err := svc.DeleteDownloadedEpisode(context.Background(), 8); err != nil {
		t.Fatalf("Expected missing file to be tolerated, got: %v", err)
	}
	if lib.episodes[0].Downloaded {
		t.Error("Expected downloaded flag cleared")
	}
}

func TestDeviceEpisodes_GroupsByPodcast(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 1, OnDevice: true, PodcastName: "Alpha", LocalFilePath: "/downloads/1/a.mp3"},
		{ID: 2, OnDevice: true, PodcastName: "Beta", LocalFilePath: "/downloads/2/b.mp3"},
	}}}
	device := deviceWithFiles(t, "a.mp3", "b.mp3", "mystery.mp3")
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	infos, err := svc.DeviceEpisodes(context.Background(), device)
	if err != nil {
		t.Fatalf("DeviceEpisodes failed: %v", err)
	}

	if len(infos) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(infos))
	}
	if infos[0].PodcastName != "Alpha" || infos[0].Filename != "a.mp3" {
		t.Errorf("Expected Alpha/a.mp3 first, got %s/%s", infos[0].PodcastName, infos[0].Filename)
	}
	if infos[1].PodcastName != "Beta" || infos[1].Filename != "b.mp3" {
		t.Errorf("Expected Beta/b.mp3 second, got %s/%s", infos[1].PodcastName, infos[1].Filename)
	}
	if infos[2].PodcastName != "Unknown" || infos[2].Filename != "mystery.mp3" {
		t.Errorf("Expected Unknown/mystery.mp3 last, got %s/%s", infos[2].PodcastName, infos[2].Filename)
	}
}

func TestDeviceStatusIndicators(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 1, OnDevice: true, LocalFilePath: "/downloads/1/a.mp3"},
		{ID: 2, OnDevice: true, LocalFilePath: "/downloads/2/b.mp3"},
	}}}
	device := deviceWithFiles(t, "a.mp3")
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	indicators, err := svc.DeviceStatusIndicators(context.Background(), device)
	if err != nil {
		t.Fatalf("DeviceStatusIndicators failed: %v", err)
	}

	if !indicators["a.mp3"] {
		t.Error("Expected a.mp3 reported present")
	}
	if present, ok := indicators["b.mp3"]; !ok || present {
		t.Errorf("Expected b.mp3 reported absent, got present=%v ok=%v", present, ok)
	}
}

func TestVerifyDevice_UsesOnDeviceEpisodes(t *testing.T) {
	lib := &fakeLibrary{fakeEpisodeStore{episodes: []*models.Episode{
		{ID: 1, OnDevice: true, LocalFilePath: "/downloads/1/a.mp3"},
		{ID: 2, OnDevice: true, LocalFilePath: "/downloads/2/b.mp3"},
		{ID: 3, OnDevice: false, LocalFilePath: "/downloads/3/c.mp3"},
	}}}
	device := deviceWithFiles(t, "a.mp3")
	svc := newTestEpisodeService(lib, fakeResolver{}, progress.NewTable(), t.TempDir())

	report, err := svc.VerifyDevice(context.Background(), device)
	if err != nil {
		t.Fatalf("VerifyDevice failed: %v", err)
	}

	if report.DatabaseEpisodes != 2 {
		t.Errorf("Expected 2 expected episodes, got %d", report.DatabaseEpisodes)
	}
	if len(report.MissingFromDevice) != 1 || report.MissingFromDevice[0] != "b.mp3" {
		t.Errorf("Expected missing_from_device [b.mp3], got %v", report.MissingFromDevice)
	}
}
