package health

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/disk"
)

type HealthChecker struct {
	db           *pgxpool.Pool
	downloadRoot string
}

type HealthStatus struct {
	Status     string         `json:"status"`
	Database   DatabaseHealth `json:"database"`
	Storage    StorageHealth  `json:"storage"`
	Goroutines int            `json:"goroutines"`
	Memory     MemoryStats    `json:"memory"`
}

type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type StorageHealth struct {
	Status      string  `json:"status"`
	FreeBytes   uint64  `json:"free_bytes"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

func NewHealthChecker(db *pgxpool.Pool, downloadRoot string) *HealthChecker {
	return &HealthChecker{db: db, downloadRoot: downloadRoot}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()
	storageHealth := h.checkStorage()

	status := "healthy"
	if dbHealth.Status != "healthy" || storageHealth.Status != "healthy" {
		status = "unhealthy"
	}

	// Get runtime stats for goroutine leak detection
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return HealthStatus{
		Status:     status,
		Database:   dbHealth,
		Storage:    storageHealth,
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			AllocMB:      float64(memStats.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(memStats.Sys) / 1024 / 1024,
			NumGC:        memStats.NumGC,
		},
	}
}

func (h *HealthChecker) checkDatabase() DatabaseHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

// checkStorage verifies the download root exists and reports how full
// its partition is
func (h *HealthChecker) checkStorage() StorageHealth {
	if _, err := os.Stat(h.downloadRoot); err != nil {
		return StorageHealth{Status: "unhealthy"}
	}

	usage, err := disk.Usage(h.downloadRoot)
	if err != nil {
		return StorageHealth{Status: "unhealthy"}
	}

	return StorageHealth{
		Status:      "healthy",
		FreeBytes:   usage.Free,
		TotalBytes:  usage.Total,
		UsedPercent: usage.UsedPercent,
	}
}
