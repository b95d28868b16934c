package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"podsync-backend/internal/models"
	"podsync-backend/internal/progress"
)

// spaceCheckFile is written and deleted to prove a download directory is
// writable before any network traffic happens.
const spaceCheckFile = ".podsync_space_check"

// defaultDownloadTimeout caps a whole download, not individual chunks.
const defaultDownloadTimeout = 300 * time.Second

// DownloadService streams remote episode files into the local library, one
// directory per podcast, publishing byte-level progress after every chunk.
// It never retries; retry policy belongs to the caller.
type DownloadService struct {
	table        *progress.Table
	downloadRoot string
	client       *http.Client
}

// NewDownloadService creates a download engine rooted at downloadRoot.
// timeout <= 0 selects the default whole-download ceiling.
func NewDownloadService(table *progress.Table, downloadRoot string, timeout time.Duration) *DownloadService {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &DownloadService{
		table:        table,
		downloadRoot: downloadRoot,
		client:       &http.Client{Timeout: timeout},
	}
}

// Download fetches sourceURL into <root>/<podcastID>/<filename> and returns
// the local path. subjectID keys the progress entry (downloads use an empty
// target). When the destination already exists the call is free: a
// completed entry is recorded at 100% and the network is never touched.
func (s *DownloadService) Download(ctx context.Context, sourceURL, subjectID, podcastID string) (string, error) {
	filename := DeriveFilename(sourceURL, subjectID)
	destDir := filepath.Join(s.downloadRoot, podcastID)
	destPath := filepath.Join(destDir, filename)

	if info, err := os.Stat(destPath); err == nil {
		s.table.Register(subjectID, "", uint64(info.Size()))
		s.table.MarkCompleted(subjectID, "")
		log.Printf("[Download] Episode %s already on disk at %s, skipping fetch", subjectID, destPath)
		return destPath, nil
	}

	s.table.Register(subjectID, "", 0)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", s.fail(subjectID, fmt.Errorf("failed to create download directory %s: %v: %w", destDir, err, models.ErrIO))
	}
	probe := filepath.Join(destDir, spaceCheckFile)
	if err := os.WriteFile(probe, []byte("check"), 0o644); err != nil {
		return "", s.fail(subjectID, fmt.Errorf("download directory %s is not writable: %v: %w", destDir, err, models.ErrIO))
	}
	os.Remove(probe)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", s.fail(subjectID, fmt.Errorf("invalid episode URL %s: %v: %w", sourceURL, err, models.ErrNetwork))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			s.table.MarkCancelled(subjectID, "")
			return "", fmt.Errorf("download of %s cancelled: %w", sourceURL, ctx.Err())
		}
		return "", s.fail(subjectID, fmt.Errorf("request failed for %s: %v: %w", sourceURL, err, models.ErrNetwork))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", s.fail(subjectID, fmt.Errorf("HTTP error %d: %s: %w", resp.StatusCode, http.StatusText(resp.StatusCode), models.ErrNetwork))
	}

	// Content-Length may be absent; the percentage then stays 0 throughout.
	var total uint64
	if resp.ContentLength > 0 {
		total = uint64(resp.ContentLength)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return "", s.fail(subjectID, fmt.Errorf("failed to create %s: %v: %w", destPath, err, models.ErrIO))
	}

	s.table.MarkInProgress(subjectID, "")
	start := time.Now()
	var transferred uint64
	buf := make([]byte, copyBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				return "", s.fail(subjectID, fmt.Errorf("failed to write %s: %v: %w", destPath, writeErr, models.ErrIO))
			}
			transferred += uint64(n)
			s.table.UpdateBytes(subjectID, "", transferred, total, transferSpeed(transferred, start), -1)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			if ctx.Err() != nil {
				s.table.MarkCancelled(subjectID, "")
				return "", fmt.Errorf("download of %s cancelled: %w", sourceURL, ctx.Err())
			}
			// Partial file stays on disk for inspection.
			return "", s.fail(subjectID, fmt.Errorf("stream interrupted for %s: %v: %w", sourceURL, readErr, models.ErrNetwork))
		}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return "", s.fail(subjectID, fmt.Errorf("failed to flush %s: %v: %w", destPath, err, models.ErrIO))
	}
	if err := out.Close(); err != nil {
		return "", s.fail(subjectID, fmt.Errorf("failed to close %s: %v: %w", destPath, err, models.ErrIO))
	}

	s.table.MarkCompleted(subjectID, "")
	log.Printf("[Download] Episode %s downloaded to %s (%d bytes)", subjectID, destPath, transferred)
	return destPath, nil
}

// fail records the failure on the progress entry before the error travels
// up, so a concurrent poller sees it regardless of who reads the return.
func (s *DownloadService) fail(subjectID string, err error) error {
	s.table.MarkFailed(subjectID, "", err.Error())
	return err
}
