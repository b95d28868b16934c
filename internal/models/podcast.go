package models

import "time"

// Podcast is a subscribed feed. Metadata is maintained by the feed collaborator.
type Podcast struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	FeedURL      string     `json:"feed_url"`
	Description  string     `json:"description,omitempty"`
	ArtworkURL   string     `json:"artwork_url,omitempty"`
	WebsiteURL   string     `json:"website_url,omitempty"`
	LastChecked  *time.Time `json:"last_checked,omitempty"`
	EpisodeCount int        `json:"episode_count,omitempty"` // populated by list queries
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type CreatePodcastRequest struct {
	Name        string `json:"name"`
	FeedURL     string `json:"feed_url"`
	Description string `json:"description"`
	ArtworkURL  string `json:"artwork_url"`
	WebsiteURL  string `json:"website_url"`
}
