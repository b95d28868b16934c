package repositories

import (
	"context"
	"errors"
	"fmt"

	"podsync-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const episodeColumns = `e.id, e.podcast_id, p.name, e.title, e.description, e.episode_url,
	e.published_at, e.duration, e.file_size, e.local_file_path, e.status,
	e.downloaded, e.on_device, e.created_at, e.updated_at`

type EpisodeRepository struct {
	pool *pgxpool.Pool
}

func NewEpisodeRepository(pool *pgxpool.Pool) *EpisodeRepository {
	return &EpisodeRepository{pool: pool}
}

// Create inserts a new episode row and fills in the generated fields
func (r *EpisodeRepository) Create(ctx context.Context, ep *models.Episode) error {
	if ep.Status == "" {
		ep.Status = models.EpisodeStatusNew
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO episodes
			(podcast_id, title, description, episode_url, published_at, duration, file_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		ep.PodcastID, ep.Title, ep.Description, ep.EpisodeURL, ep.PublishedAt,
		ep.Duration, ep.FileSize, ep.Status,
	).Scan(&ep.ID, &ep.CreatedAt, &ep.UpdatedAt)
}

// GetByID returns one episode with its podcast name joined in
func (r *EpisodeRepository) GetByID(ctx context.Context, id int64) (*models.Episode, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE e.id = $1`, id)

	ep, err := scanEpisode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("episode %d not found: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return ep, nil
}

// ListByPodcast returns all episodes of one podcast, newest first
func (r *EpisodeRepository) ListByPodcast(ctx context.Context, podcastID int64) ([]models.Episode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE e.podcast_id = $1
		ORDER BY e.published_at DESC NULLS LAST, e.id DESC`, podcastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// ListRecent returns the newest episodes across all podcasts
func (r *EpisodeRepository) ListRecent(ctx context.Context, limit int) ([]models.Episode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		ORDER BY e.published_at DESC NULLS LAST, e.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// ListDownloaded returns every episode with a local media file
func (r *EpisodeRepository) ListDownloaded(ctx context.Context) ([]models.Episode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE e.downloaded = true
		ORDER BY p.name ASC, e.published_at DESC NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// EpisodesOnDevice returns every episode currently flagged as on-device
func (r *EpisodeRepository) EpisodesOnDevice(ctx context.Context) ([]models.Episode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE e.on_device = true
		ORDER BY e.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// SetOnDevice updates the on-device flag for one episode
func (r *EpisodeRepository) SetOnDevice(ctx context.Context, id int64, onDevice bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE episodes SET on_device = $2, updated_at = NOW()
		WHERE id = $1`, id, onDevice)
	return err
}

// MarkDownloaded records a finished download on the episode row
func (r *EpisodeRepository) MarkDownloaded(ctx context.Context, id int64, localPath string, fileSize int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE episodes
		SET downloaded = true, local_file_path = $2,
		    file_size = CASE WHEN $3 > 0 THEN $3 ELSE file_size END,
		    status = CASE WHEN status = 'new' THEN 'unlistened' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1`, id, localPath, fileSize)
	return err
}

// ClearDownloaded removes the local file reference after a delete
func (r *EpisodeRepository) ClearDownloaded(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE episodes
		SET downloaded = false, local_file_path = '', on_device = false, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// SetStatus updates the listening status for one episode
func (r *EpisodeRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE episodes SET status = $2, updated_at = NOW()
		WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("episode %d not found: %w", id, models.ErrNotFound)
	}
	return nil
}

// PodcastEpisodeCounts aggregates per-podcast episode state for listings.
type PodcastEpisodeCounts struct {
	PodcastID  int64 `json:"podcast_id"`
	Total      int64 `json:"total"`
	Downloaded int64 `json:"downloaded"`
	OnDevice   int64 `json:"on_device"`
	Unlistened int64 `json:"unlistened"`
}

// CountsByPodcast returns aggregate episode counts grouped by podcast
func (r *EpisodeRepository) CountsByPodcast(ctx context.Context) (map[int64]PodcastEpisodeCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT podcast_id,
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE downloaded) as downloaded,
			COUNT(*) FILTER (WHERE on_device) as on_device,
			COUNT(*) FILTER (WHERE status IN ('new', 'unlistened')) as unlistened
		FROM episodes
		GROUP BY podcast_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]PodcastEpisodeCounts)
	for rows.Next() {
		var c PodcastEpisodeCounts
		if err := rows.Scan(&c.PodcastID, &c.Total, &c.Downloaded, &c.OnDevice, &c.Unlistened); err != nil {
			return nil, err
		}
		counts[c.PodcastID] = c
	}
	return counts, rows.Err()
}

func scanEpisode(row pgx.Row) (*models.Episode, error) {
	ep := &models.Episode{}
	err := row.Scan(
		&ep.ID, &ep.PodcastID, &ep.PodcastName, &ep.Title, &ep.Description, &ep.EpisodeURL,
		&ep.PublishedAt, &ep.Duration, &ep.FileSize, &ep.LocalFilePath, &ep.Status,
		&ep.Downloaded, &ep.OnDevice, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func scanEpisodes(rows pgx.Rows) ([]models.Episode, error) {
	var episodes []models.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *ep)
	}
	return episodes, rows.Err()
}
