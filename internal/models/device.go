package models

import "time"

// UsbDevice describes one connected removable storage device
type UsbDevice struct {
	ID             string `json:"id"`              // derived from name + mountpoint
	Name           string `json:"name"`            // volume or device name
	Path           string `json:"path"`            // mountpoint
	TotalSpace     uint64 `json:"total_space"`     // bytes
	AvailableSpace uint64 `json:"available_space"` // bytes
	IsConnected    bool   `json:"is_connected"`
}

// DeviceFileEntry is one file found by a device namespace scan. Ephemeral,
// recomputed on every scan, never persisted.
type DeviceFileEntry struct {
	Filename     string    `json:"filename"`
	SizeBytes    uint64    `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// DeviceEpisodeInfo is a scanned device file joined with the owning episode's
// podcast, for grouped device listings.
type DeviceEpisodeInfo struct {
	Filename     string    `json:"filename"`
	PodcastName  string    `json:"podcast_name"` // "Unknown" when no episode matches
	FileSize     uint64    `json:"file_size"`
	LastModified time.Time `json:"last_modified"`
}
