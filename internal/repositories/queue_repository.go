package repositories

import (
	"context"
	"errors"
	"time"

	"podsync-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxDownloadAttempts is how often a queue item is retried before it is
// parked as failed.
const maxDownloadAttempts = 3

const queueColumns = `id, episode_id, status, attempts, COALESCE(last_error, ''),
	next_retry_at, created_at, updated_at`

type QueueRepository struct {
	pool *pgxpool.Pool
}

func NewQueueRepository(pool *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

// Enqueue adds an episode to the download queue. A partial unique index
// keeps one active entry per episode; re-enqueueing returns that entry.
func (r *QueueRepository) Enqueue(ctx context.Context, episodeID int64) (*models.QueueItem, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO download_queue (episode_id)
		VALUES ($1)
		ON CONFLICT DO NOTHING`, episodeID)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM download_queue
		WHERE episode_id = $1 AND status IN ('pending', 'processing')
		ORDER BY id DESC
		LIMIT 1`, episodeID)
	return scanQueueItem(row)
}

// PickNext atomically claims the next due pending item. Returns (nil, nil)
// when the queue is empty. FOR UPDATE SKIP LOCKED keeps concurrent workers
// off each other's rows.
func (r *QueueRepository) PickNext(ctx context.Context) (*models.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE download_queue
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM download_queue
			WHERE status = 'pending'
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+queueColumns)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// MarkCompleted finishes a claimed item
func (r *QueueRepository) MarkCompleted(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE download_queue
		SET status = 'completed', last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// MarkFailed records a failed attempt. Below the attempt cap the item goes
// back to pending with a growing retry delay, at the cap it is parked as
// failed until an operator resets it.
func (r *QueueRepository) MarkFailed(ctx context.Context, id int64, attempts int, reason string) error {
	if attempts >= maxDownloadAttempts {
		_, err := r.pool.Exec(ctx, `
			UPDATE download_queue
			SET status = 'failed', last_error = $2, next_retry_at = NULL, updated_at = NOW()
			WHERE id = $1`, id, reason)
		return err
	}

	backoffs := []time.Duration{
		30 * time.Second,
		2 * time.Minute,
		10 * time.Minute,
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoffs) {
		idx = len(backoffs) - 1
	}
	nextRetry := time.Now().Add(backoffs[idx])

	_, err := r.pool.Exec(ctx, `
		UPDATE download_queue
		SET status = 'pending', last_error = $2, next_retry_at = $3, updated_at = NOW()
		WHERE id = $1`, id, reason, nextRetry)
	return err
}

// ResetAllFailed puts every parked item back in line for another attempt
func (r *QueueRepository) ResetAllFailed(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE download_queue
		SET status = 'pending', attempts = 0, last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE status = 'failed'`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetStats returns aggregate queue status counts
func (r *QueueRepository) GetStats(ctx context.Context) (*models.QueueStats, error) {
	stats := &models.QueueStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'processing') as processing,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status = 'failed') as failed,
			COUNT(*) as total
		FROM download_queue
	`).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed, &stats.Total)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func scanQueueItem(row pgx.Row) (*models.QueueItem, error) {
	item := &models.QueueItem{}
	err := row.Scan(
		&item.ID, &item.EpisodeID, &item.Status, &item.Attempts, &item.LastError,
		&item.NextRetryAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}
