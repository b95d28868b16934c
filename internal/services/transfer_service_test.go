package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"podsync-backend/internal/models"
	"podsync-backend/internal/progress"
)

// stubSpace reports fixed device capacity without touching the filesystem.
type stubSpace struct {
	total     uint64
	available uint64
	err       error
}

func (s stubSpace) SpaceForPath(path string) (uint64, uint64, error) {
	return s.total, s.available, s.err
}

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestTransfer_CopiesFileIntoNamespace(t *testing.T) {
	content := bytes.Repeat([]byte("audio"), 30000)
	src := writeTempFile(t, t.TempDir(), "ep01.mp3", content)
	device := t.TempDir()

	table := progress.NewTable()
	svc := NewTransferService(table, stubSpace{total: 1 << 30, available: 1 << 30})

	if err := svc.Transfer(context.Background(), src, device, "ep01.mp3"); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	copied, err := os.ReadFile(filepath.Join(device, DeviceNamespaceDir, "ep01.mp3"))
	if err != nil {
		t.Fatalf("Failed to read copied file: %v", err)
	}
	if !bytes.Equal(copied, content) {
		t.Errorf("Copied content differs: expected %d bytes, got %d", len(content), len(copied))
	}

	entry, ok := table.Get(src, device)
	if !ok {
		t.Fatal("Expected a progress entry keyed by source path and device root")
	}
	if entry.Status.State() != models.StateCompleted {
		t.Errorf("Expected state completed, got %s", entry.Status.State())
	}
	if entry.TotalBytes != uint64(len(content)) {
		t.Errorf("Expected total %d, got %d", len(content), entry.TotalBytes)
	}
	if entry.Percentage != 100 {
		t.Errorf("Expected percentage 100, got %f", entry.Percentage)
	}
}

func TestTransfer_SourceMissing(t *testing.T) {
	device := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope.mp3")

	table := progress.NewTable()
	svc := NewTransferService(table, stubSpace{total: 1 << 30, available: 1 << 30})

	err := svc.Transfer(context.Background(), missing, device, "nope.mp3")
	if err == nil {
		t.Fatal("Expected error for missing source, got nil")
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected a not-found error, got: %v", err)
	}

	entry, ok := table.Get(missing, device)
	if !ok {
		t.Fatal("Expected a progress entry for the failed transfer")
	}
	if entry.Status.State() != models.StateFailed {
		t.Errorf("Expected state failed, got %s", entry.Status.State())
	}
}

func TestTransfer_DeviceMissing(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep01.mp3", []byte("audio"))
	device := filepath.Join(t.TempDir(), "unplugged")

	svc := NewTransferService(progress.NewTable(), stubSpace{total: 1 << 30, available: 1 << 30})

	err := svc.Transfer(context.Background(), src, device, "ep01.mp3")
	if err == nil {
		t.Fatal("Expected error for missing device, got nil")
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected a not-found error, got: %v", err)
	}
}

func TestTransfer_InsufficientSpaceCheckedBeforeWriting(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "big.mp3", bytes.Repeat([]byte("z"), 10000))
	device := t.TempDir()

	table := progress.NewTable()
	svc := NewTransferService(table, stubSpace{total: 1 << 30, available: 16})

	err := svc.Transfer(context.Background(), src, device, "big.mp3")
	if err == nil {
		t.Fatal("Expected error for insufficient space, got nil")
	}
	if !errors.Is(err, models.ErrInsufficientSpace) {
		t.Errorf("Expected an insufficient-space error, got: %v", err)
	}

	// The check runs before anything is written, so not even the app
	// directory may appear on the device
	if _, statErr := os.Stat(filepath.Join(device, DeviceNamespaceDir)); !os.IsNotExist(statErr) {
		t.Error("Expected no app directory on device after space rejection")
	}

	entry, _ := table.Get(src, device)
	if entry.Status.State() != models.StateFailed {
		t.Errorf("Expected state failed, got %s", entry.Status.State())
	}
}

func TestTransfer_ErrorKindsDistinguishable(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep.mp3", []byte("audio data"))

	// Unplugged device
	svc := NewTransferService(progress.NewTable(), stubSpace{total: 1 << 30, available: 1 << 30})
	devErr := svc.Transfer(context.Background(), src, filepath.Join(t.TempDir(), "gone"), "ep.mp3")

	// Full device
	svc = NewTransferService(progress.NewTable(), stubSpace{total: 1 << 30, available: 1})
	spaceErr := svc.Transfer(context.Background(), src, t.TempDir(), "ep.mp3")

	if !errors.Is(devErr, models.ErrNotFound) || errors.Is(devErr, models.ErrInsufficientSpace) {
		t.Errorf("Device error should be not-found only, got: %v", devErr)
	}
	if !errors.Is(spaceErr, models.ErrInsufficientSpace) || errors.Is(spaceErr, models.ErrNotFound) {
		t.Errorf("Space error should be insufficient-space only, got: %v", spaceErr)
	}
}

func TestTransfer_CancelledBeforeCopying(t *testing.T) {
	src := writeTempFile(t, t.TempDir(), "ep.mp3", bytes.Repeat([]byte("a"), 5000))
	device := t.TempDir()

	table := progress.NewTable()
	svc := NewTransferService(table, stubSpace{total: 1 << 30, available: 1 << 30})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Transfer(ctx, src, device, "ep.mp3")
	if err == nil {
		t.Fatal("Expected error for cancelled transfer, got nil")
	}

	entry, ok := table.Get(src, device)
	if !ok {
		t.Fatal("Expected a progress entry for the cancelled transfer")
	}
	if entry.Status.State() != models.StateCancelled {
		t.Errorf("Expected state cancelled, got %s", entry.Status.State())
	}
}
