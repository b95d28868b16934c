package models

import "time"

// Episode listening statuses
const (
	EpisodeStatusNew        = "new"
	EpisodeStatusUnlistened = "unlistened"
	EpisodeStatusListened   = "listened"
)

// Episode is one entry of a podcast feed as stored in the library database.
// RSS fetching lives outside this backend; the feeder writes these rows and
// this backend moves the files around and keeps the flags honest.
type Episode struct {
	ID            int64      `json:"id"`
	PodcastID     int64      `json:"podcast_id"`
	PodcastName   string     `json:"podcast_name,omitempty"` // populated by joined queries
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	EpisodeURL    string     `json:"episode_url"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Duration      int        `json:"duration,omitempty"`  // seconds
	FileSize      int64      `json:"file_size,omitempty"` // bytes, from the feed or the downloaded file
	LocalFilePath string     `json:"local_file_path,omitempty"`
	Status        string     `json:"status"`
	Downloaded    bool       `json:"downloaded"`
	OnDevice      bool       `json:"on_device"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type CreateEpisodeRequest struct {
	PodcastID   int64      `json:"podcast_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	EpisodeURL  string     `json:"episode_url"`
	PublishedAt *time.Time `json:"published_at"`
	Duration    int        `json:"duration"`
	FileSize    int64      `json:"file_size"`
}
