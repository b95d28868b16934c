package repositories

import (
	"context"
	"errors"
	"fmt"

	"podsync-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PodcastRepository struct {
	pool *pgxpool.Pool
}

func NewPodcastRepository(pool *pgxpool.Pool) *PodcastRepository {
	return &PodcastRepository{pool: pool}
}

// Create inserts a new podcast subscription
func (r *PodcastRepository) Create(ctx context.Context, p *models.Podcast) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO podcasts (name, feed_url, description, artwork_url, website_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.Name, p.FeedURL, p.Description, p.ArtworkURL, p.WebsiteURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns one podcast
func (r *PodcastRepository) GetByID(ctx context.Context, id int64) (*models.Podcast, error) {
	p := &models.Podcast{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, feed_url, description, artwork_url, website_url,
		       last_checked, created_at, updated_at
		FROM podcasts
		WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.FeedURL, &p.Description, &p.ArtworkURL, &p.WebsiteURL,
		&p.LastChecked, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("podcast %d not found: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// List returns all podcasts with their episode counts, alphabetically
func (r *PodcastRepository) List(ctx context.Context) ([]models.Podcast, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.feed_url, p.description, p.artwork_url, p.website_url,
		       p.last_checked, p.created_at, p.updated_at,
		       COUNT(e.id) as episode_count
		FROM podcasts p
		LEFT JOIN episodes e ON e.podcast_id = p.id
		GROUP BY p.id
		ORDER BY p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var podcasts []models.Podcast
	for rows.Next() {
		var p models.Podcast
		if err := rows.Scan(
			&p.ID, &p.Name, &p.FeedURL, &p.Description, &p.ArtworkURL, &p.WebsiteURL,
			&p.LastChecked, &p.CreatedAt, &p.UpdatedAt, &p.EpisodeCount,
		); err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	return podcasts, rows.Err()
}

// Delete removes a podcast; episode rows go with it via the FK cascade
func (r *PodcastRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM podcasts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("podcast %d not found: %w", id, models.ErrNotFound)
	}
	return nil
}

// TouchLastChecked records a completed feed check
func (r *PodcastRepository) TouchLastChecked(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE podcasts SET last_checked = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}
