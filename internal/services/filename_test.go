package services

import (
	"strings"
	"testing"
)

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name      string
		sourceURL string
		episodeID string
		expected  string
	}{
		{"plain segment", "https://cdn.example.com/shows/ep01.mp3", "42", "ep01.mp3"},
		{"query string kept", "https://cdn.example.com/audio/ep.mp3?key=abc123", "42", "ep.mp3?key=abc123"},
		{"no extension", "https://example.com/stream", "42", "42.mp3"},
		{"trailing slash", "https://example.com/files/", "42", "42.mp3"},
		{"no slashes at all", "file.mp3", "42", "file.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeriveFilename(tt.sourceURL, tt.episodeID)
			if result != tt.expected {
				t.Errorf("DeriveFilename(%q, %q) = %q, expected %q",
					tt.sourceURL, tt.episodeID, result, tt.expected)
			}
		})
	}
}

func TestDeriveFilename_OverlongSegment(t *testing.T) {
	// URL segments at or past the filesystem name limit fall back to the id
	long := strings.Repeat("a", 300) + ".mp3"
	result := DeriveFilename("https://example.com/"+long, "7")
	if result != "7.mp3" {
		t.Errorf("Expected fallback name 7.mp3, got %q", result)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Podcast: Episode #1!", "My Podcast_ Episode _1_"},
		{"hello_world-123", "hello_world-123"},
		{"été naïve", "été naïve"},
		{"a/b\\c", "a_b_c"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDeviceFilename(t *testing.T) {
	tests := []struct {
		name      string
		localPath string
		expected  string
	}{
		{"clean name passes through", "/downloads/5/ep01.mp3", "ep01.mp3"},
		{"punctuation in stem", "/downloads/5/Episode #1.mp3", "Episode _1.mp3"},
		{"query string in name", "/downloads/5/ep.mp3?key=abc", "ep.mp3_key_abc"},
		{"no extension", "/downloads/5/rawfile", "rawfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeviceFilename(tt.localPath)
			if result != tt.expected {
				t.Errorf("DeviceFilename(%q) = %q, expected %q", tt.localPath, result, tt.expected)
			}
		})
	}
}
