package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podsync-backend/internal/models"
)

func TestRemove_DeletesFileKeepsDirectory(t *testing.T) {
	device := t.TempDir()
	appDir := filepath.Join(device, DeviceNamespaceDir)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatalf("Failed to create app directory: %v", err)
	}
	target := filepath.Join(appDir, "ep01.mp3")
	if err := os.WriteFile(target, []byte("audio"), 0o644); err != nil {
		t.Fatalf("Failed to create episode file: %v", err)
	}

	svc := NewRemovalService()
	if err := svc.Remove(device, "ep01.mp3"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Expected episode file to be deleted")
	}

	// The app directory itself stays behind
	if _, err := os.Stat(appDir); err != nil {
		t.Errorf("Expected app directory to remain, got: %v", err)
	}
}

func TestRemove_FileNotOnDevice(t *testing.T) {
	device := t.TempDir()
	if err := os.MkdirAll(filepath.Join(device, DeviceNamespaceDir), 0o755); err != nil {
		t.Fatalf("Failed to create app directory: %v", err)
	}

	svc := NewRemovalService()
	err := svc.Remove(device, "ghost.mp3")
	if err == nil {
		t.Fatal("Expected error for missing episode file, got nil")
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected a not-found error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "ghost.mp3") {
		t.Errorf("Expected error to name the file, got: %v", err)
	}
}

func TestRemove_DeviceMissing(t *testing.T) {
	svc := NewRemovalService()
	err := svc.Remove(filepath.Join(t.TempDir(), "unplugged"), "ep01.mp3")
	if err == nil {
		t.Fatal("Expected error for missing device, got nil")
	}
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected a not-found error, got: %v", err)
	}
}
