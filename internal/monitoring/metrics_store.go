package monitoring

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Transfer event kinds recorded in metrics_transfers
const (
	KindDownload       = "download"
	KindDeviceTransfer = "device_transfer"
	KindDeviceRemoval  = "device_removal"
)

// MetricsStore persists request, system and transfer metrics in Postgres.
// If the tables cannot be created the store disables itself and every
// record call becomes a no-op, so metrics never take the API down.
type MetricsStore struct {
	pool    *pgxpool.Pool
	enabled bool
}

func NewMetricsStore(pool *pgxpool.Pool) *MetricsStore {
	store := &MetricsStore{pool: pool}
	if err := store.init(); err != nil {
		log.Printf("[Monitoring] Warning: metrics storage unavailable: %v. Recording disabled.", err)
		store.enabled = false
	} else {
		store.enabled = true
		log.Println("[Monitoring] Metrics storage initialized")
	}
	return store
}

func (ms *MetricsStore) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := ms.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metrics_system (
			time        TIMESTAMPTZ NOT NULL,
			cpu_percent DOUBLE PRECISION,
			mem_used    BIGINT,
			mem_total   BIGINT,
			disk_used   BIGINT,
			disk_total  BIGINT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metrics_system table: %w", err)
	}

	_, err = ms.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metrics_api (
			time        TIMESTAMPTZ NOT NULL,
			method      TEXT,
			path        TEXT,
			status_code INTEGER,
			duration_ms DOUBLE PRECISION,
			ip_address  TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metrics_api table: %w", err)
	}

	_, err = ms.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metrics_transfers (
			time        TIMESTAMPTZ NOT NULL,
			kind        TEXT NOT NULL,
			success     BOOLEAN NOT NULL,
			bytes       BIGINT NOT NULL DEFAULT 0,
			duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metrics_transfers table: %w", err)
	}

	ms.pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_metrics_api_time ON metrics_api (time DESC)")
	ms.pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_metrics_transfers_time ON metrics_transfers (time DESC)")

	return nil
}

func (ms *MetricsStore) RecordSystemMetrics(cpu float64, memUsed, memTotal, diskUsed, diskTotal uint64) error {
	if !ms.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := ms.pool.Exec(ctx, `
		INSERT INTO metrics_system (time, cpu_percent, mem_used, mem_total, disk_used, disk_total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, time.Now(), cpu, memUsed, memTotal, diskUsed, diskTotal)

	return err
}

// RecordAPIRequest runs in the background so requests are never blocked
// on the metrics database
func (ms *MetricsStore) RecordAPIRequest(method, path string, status int, duration time.Duration, ip string) {
	if !ms.enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := ms.pool.Exec(ctx, `
			INSERT INTO metrics_api (time, method, path, status_code, duration_ms, ip_address)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, time.Now(), method, path, status, float64(duration.Milliseconds()), ip)

		if err != nil {
			log.Printf("[Monitoring] Failed to record API metric: %v", err)
		}
	}()
}

// RecordTransferEvent stores one finished download, device copy or removal
func (ms *MetricsStore) RecordTransferEvent(kind string, success bool, bytes uint64, duration time.Duration) {
	if !ms.enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := ms.pool.Exec(ctx, `
			INSERT INTO metrics_transfers (time, kind, success, bytes, duration_ms)
			VALUES ($1, $2, $3, $4, $5)
		`, time.Now(), kind, success, bytes, float64(duration.Milliseconds()))

		if err != nil {
			log.Printf("[Monitoring] Failed to record transfer event: %v", err)
		}
	}()
}

// Analytics Queries

type APISummary struct {
	TotalRequests int64   `json:"total_requests"`
	AvgDuration   float64 `json:"avg_duration"`
	ErrorRate     float64 `json:"error_rate"`
}

type TransferSummary struct {
	Downloads        int64 `json:"downloads"`
	FailedDownloads  int64 `json:"failed_downloads"`
	DownloadedBytes  int64 `json:"downloaded_bytes"`
	DeviceTransfers  int64 `json:"device_transfers"`
	FailedTransfers  int64 `json:"failed_transfers"`
	TransferredBytes int64 `json:"transferred_bytes"`
	DeviceRemovals   int64 `json:"device_removals"`
}

type TimePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

func (ms *MetricsStore) GetAPISummary(ctx context.Context, window time.Duration) (APISummary, error) {
	var summary APISummary
	if !ms.enabled {
		return summary, nil
	}

	err := ms.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(SUM(CASE WHEN status_code >= 500 THEN 1 ELSE 0 END)::float / NULLIF(COUNT(*), 0), 0)
		FROM metrics_api
		WHERE time > NOW() - $1::interval
	`, window.String()).Scan(&summary.TotalRequests, &summary.AvgDuration, &summary.ErrorRate)

	return summary, err
}

func (ms *MetricsStore) GetTransferSummary(ctx context.Context, window time.Duration) (TransferSummary, error) {
	var summary TransferSummary
	if !ms.enabled {
		return summary, nil
	}

	err := ms.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'download' AND success),
			COUNT(*) FILTER (WHERE kind = 'download' AND NOT success),
			COALESCE(SUM(bytes) FILTER (WHERE kind = 'download' AND success), 0),
			COUNT(*) FILTER (WHERE kind = 'device_transfer' AND success),
			COUNT(*) FILTER (WHERE kind = 'device_transfer' AND NOT success),
			COALESCE(SUM(bytes) FILTER (WHERE kind = 'device_transfer' AND success), 0),
			COUNT(*) FILTER (WHERE kind = 'device_removal' AND success)
		FROM metrics_transfers
		WHERE time > NOW() - $1::interval
	`, window.String()).Scan(
		&summary.Downloads,
		&summary.FailedDownloads,
		&summary.DownloadedBytes,
		&summary.DeviceTransfers,
		&summary.FailedTransfers,
		&summary.TransferredBytes,
		&summary.DeviceRemovals,
	)

	return summary, err
}

func (ms *MetricsStore) GetCPUTrend(ctx context.Context, window time.Duration) ([]TimePoint, error) {
	return ms.resourceTrend(ctx, "AVG(cpu_percent)", window)
}

func (ms *MetricsStore) GetMemoryTrend(ctx context.Context, window time.Duration) ([]TimePoint, error) {
	return ms.resourceTrend(ctx, "AVG(mem_used::float / NULLIF(mem_total, 0) * 100)", window)
}

func (ms *MetricsStore) GetDiskTrend(ctx context.Context, window time.Duration) ([]TimePoint, error) {
	return ms.resourceTrend(ctx, "AVG(disk_used::float / NULLIF(disk_total, 0) * 100)", window)
}

func (ms *MetricsStore) resourceTrend(ctx context.Context, expr string, window time.Duration) ([]TimePoint, error) {
	if !ms.enabled {
		return nil, nil
	}

	rows, err := ms.pool.Query(ctx, fmt.Sprintf(`
		SELECT date_trunc('minute', time) AS bucket, %s
		FROM metrics_system
		WHERE time > NOW() - $1::interval
		GROUP BY bucket
		ORDER BY bucket
	`, expr), window.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TimePoint
	for rows.Next() {
		var p TimePoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// APILog represents a single recorded API request
type APILog struct {
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Duration   float64   `json:"duration_ms"`
	IPAddress  string    `json:"ip_address"`
}

func (ms *MetricsStore) GetAPILogs(ctx context.Context, window time.Duration, errorsOnly bool, limit int) ([]APILog, error) {
	if !ms.enabled {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT time, method, path, status_code, duration_ms, ip_address
		FROM metrics_api
		WHERE time > NOW() - $1::interval
	`
	if errorsOnly {
		query += " AND status_code >= 400"
	}
	query += " ORDER BY time DESC LIMIT $2"

	rows, err := ms.pool.Query(ctx, query, window.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []APILog
	for rows.Next() {
		var l APILog
		if err := rows.Scan(&l.Time, &l.Method, &l.Path, &l.StatusCode, &l.Duration, &l.IPAddress); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
