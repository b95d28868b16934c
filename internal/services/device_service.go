package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"podsync-backend/internal/models"
)

// systemMounts are never reported as removable devices, whatever their
// names look like.
var systemMounts = map[string]bool{
	"/":     true,
	"/boot": true,
	"/etc":  true,
	"/home": true,
	"/opt":  true,
	"/srv":  true,
	"/tmp":  true,
	"/usr":  true,
	"/var":  true,
}

// removableMarkers in a mountpoint or device name suggest removable media.
var removableMarkers = []string{"usb", "removable", "external"}

// DeviceService enumerates mounted removable storage and answers capacity
// queries. Detection is heuristic: desktop Linux mounts removable media
// under /media, /run/media or /mnt, and some setups expose usb markers in
// the device or mount name instead.
type DeviceService struct{}

// NewDeviceService creates a device enumeration collaborator.
func NewDeviceService() *DeviceService {
	return &DeviceService{}
}

// ListDevices returns the currently mounted removable devices with their
// capacity, sorted by mountpoint. Partitions whose usage cannot be read or
// that report zero capacity are skipped.
func (s *DeviceService) ListDevices() ([]models.UsbDevice, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %v: %w", err, models.ErrIO)
	}

	var devices []models.UsbDevice
	for _, part := range partitions {
		if !isRemovableMount(part.Mountpoint, part.Device) {
			continue
		}
		usage, err := disk.Usage(part.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		name := filepath.Base(part.Mountpoint)
		if name == "" || name == "/" || name == "." {
			name = filepath.Base(part.Device)
		}
		devices = append(devices, models.UsbDevice{
			ID:             DeviceID(name, part.Mountpoint),
			Name:           name,
			Path:           part.Mountpoint,
			TotalSpace:     usage.Total,
			AvailableSpace: usage.Free,
			IsConnected:    true,
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// FindDevice resolves a device id to a currently connected device.
func (s *DeviceService) FindDevice(deviceID string) (models.UsbDevice, error) {
	devices, err := s.ListDevices()
	if err != nil {
		return models.UsbDevice{}, err
	}
	for _, d := range devices {
		if d.ID == deviceID {
			return d, nil
		}
	}
	return models.UsbDevice{}, fmt.Errorf("device %s not found or not connected: %w", deviceID, models.ErrNotFound)
}

// SpaceForPath reports total and available bytes for the filesystem holding
// path. This backs the transfer engine's pre-flight check.
func (s *DeviceService) SpaceForPath(path string) (uint64, uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read capacity for %s: %v: %w", path, err, models.ErrIO)
	}
	return usage.Total, usage.Free, nil
}

// DeviceID builds a stable identifier from a device name and mountpoint by
// collapsing path separators and spaces to underscores.
func DeviceID(name, mount string) string {
	id := name + "_" + mount
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, " ", "_")
	return id
}

func isRemovableMount(mount, device string) bool {
	if systemMounts[mount] {
		return false
	}
	if strings.HasPrefix(mount, "/media/") || strings.HasPrefix(mount, "/run/media/") || strings.HasPrefix(mount, "/mnt/") {
		return true
	}
	lowerMount := strings.ToLower(mount)
	lowerDevice := strings.ToLower(device)
	for _, marker := range removableMarkers {
		if strings.Contains(lowerMount, marker) || strings.Contains(lowerDevice, marker) {
			return true
		}
	}
	return false
}
