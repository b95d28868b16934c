package services

import (
	"path/filepath"
	"strings"
	"unicode"
)

// DeriveFilename picks the local filename for an episode download: the last
// slash-separated segment of the URL when it looks like a real filename
// (has an extension dot and stays under the 255-byte name cap), otherwise a
// name built from the episode id. Query strings are kept as-is; on disk
// they are just bytes.
func DeriveFilename(sourceURL, episodeID string) string {
	segment := sourceURL
	if idx := strings.LastIndex(sourceURL, "/"); idx != -1 {
		segment = sourceURL[idx+1:]
	}
	if segment != "" && len(segment) < 255 && strings.Contains(segment, ".") {
		return segment
	}
	return episodeID + ".mp3"
}

// SanitizeFilename replaces every character outside letters, digits, space,
// hyphen and underscore with an underscore, then trims surrounding
// whitespace. Removable players tend to run FAT filesystems that reject
// most punctuation.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// DeviceFilename derives the on-device name for a downloaded episode file:
// the sanitized stem of the local basename plus its sanitized extension.
// For the common URL-derived names this is identical to the local basename,
// which is what keeps device scans matchable against episode records.
func DeviceFilename(localPath string) string {
	base := filepath.Base(localPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext != "" {
		ext = "." + SanitizeFilename(ext[1:])
	}
	return SanitizeFilename(stem) + ext
}
