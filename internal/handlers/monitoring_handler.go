package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"podsync-backend/internal/health"
	"podsync-backend/internal/monitoring"
	"podsync-backend/internal/repositories"
	"podsync-backend/internal/services"
)

type MonitoringHandler struct {
	Store     *monitoring.MetricsStore
	Queue     *services.QueueService
	QueueRepo *repositories.QueueRepository
	Health    *health.HealthChecker
}

func NewMonitoringHandler(store *monitoring.MetricsStore, queue *services.QueueService, queueRepo *repositories.QueueRepository, checker *health.HealthChecker) *MonitoringHandler {
	return &MonitoringHandler{
		Store:     store,
		Queue:     queue,
		QueueRepo: queueRepo,
		Health:    checker,
	}
}

// parseRange reads the ?range= query parameter, defaulting to 24h
func parseRange(r *http.Request, fallback time.Duration) time.Duration {
	if d := r.URL.Query().Get("range"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// GetHealth reports database, storage and runtime health
// GET /health
func (h *MonitoringHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := h.Health.CheckBasic()

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// GetQueueStats returns download queue counters
// GET /api/monitoring/queue
func (h *MonitoringHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Queue.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Failed to get queue stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// RetryFailedDownloads resets permanently failed queue entries to pending
// POST /api/monitoring/queue/retry-failed
func (h *MonitoringHandler) RetryFailedDownloads(w http.ResponseWriter, r *http.Request) {
	count, err := h.QueueRepo.ResetAllFailed(r.Context())
	if err != nil {
		http.Error(w, "Retry failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"reset":   count,
	})
}

// GetTransferSummary returns download and device transfer totals
// GET /api/monitoring/transfers?range=24h
func (h *MonitoringHandler) GetTransferSummary(w http.ResponseWriter, r *http.Request) {
	window := parseRange(r, 24*time.Hour)

	summary, err := h.Store.GetTransferSummary(r.Context(), window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetAPIAnalytics returns request totals and latency for the window
// GET /api/monitoring/api?range=24h
func (h *MonitoringHandler) GetAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	window := parseRange(r, 24*time.Hour)

	summary, err := h.Store.GetAPISummary(r.Context(), window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"summary": summary,
	})
}

// GetRecentAPILogs returns individual recorded requests
// GET /api/monitoring/api/logs?range=1h&errors_only=true&limit=50
func (h *MonitoringHandler) GetRecentAPILogs(w http.ResponseWriter, r *http.Request) {
	window := parseRange(r, 24*time.Hour)
	errorsOnly := r.URL.Query().Get("errors_only") == "true"

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	logs, err := h.Store.GetAPILogs(r.Context(), window, errorsOnly, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return empty array instead of null
	if logs == nil {
		logs = []monitoring.APILog{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs": logs,
	})
}

// GetSystemTrends returns resource usage history for charts
// GET /api/monitoring/system?range=1h
func (h *MonitoringHandler) GetSystemTrends(w http.ResponseWriter, r *http.Request) {
	window := parseRange(r, time.Hour)

	cpuTrend, err := h.Store.GetCPUTrend(r.Context(), window)
	if err != nil {
		cpuTrend = []monitoring.TimePoint{}
	}
	memTrend, err := h.Store.GetMemoryTrend(r.Context(), window)
	if err != nil {
		memTrend = []monitoring.TimePoint{}
	}
	diskTrend, err := h.Store.GetDiskTrend(r.Context(), window)
	if err != nil {
		diskTrend = []monitoring.TimePoint{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"cpu":  cpuTrend,
		"mem":  memTrend,
		"disk": diskTrend,
	})
}
