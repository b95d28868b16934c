package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"podsync-backend/internal/models"
	"podsync-backend/internal/repositories"
	"podsync-backend/internal/services"
)

type EpisodeHandler struct {
	Episodes *repositories.EpisodeRepository
	Service  *services.EpisodeService
	Queue    *services.QueueService
}

func NewEpisodeHandler(episodes *repositories.EpisodeRepository, service *services.EpisodeService, queue *services.QueueService) *EpisodeHandler {
	return &EpisodeHandler{Episodes: episodes, Service: service, Queue: queue}
}

// errorStatus maps service errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientSpace):
		return http.StatusConflict
	case errors.Is(err, models.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CreateEpisode stores a new feed entry. The RSS feeder calls this after
// parsing a feed.
// POST /api/episodes
func (h *EpisodeHandler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PodcastID == 0 || req.Title == "" || req.EpisodeURL == "" {
		http.Error(w, "podcast_id, title and episode_url are required", http.StatusBadRequest)
		return
	}

	episode := &models.Episode{
		PodcastID:   req.PodcastID,
		Title:       req.Title,
		Description: req.Description,
		EpisodeURL:  req.EpisodeURL,
		PublishedAt: req.PublishedAt,
		Duration:    req.Duration,
		FileSize:    req.FileSize,
	}
	if err := h.Episodes.Create(r.Context(), episode); err != nil {
		http.Error(w, "Failed to create episode: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(episode)
}

// ListEpisodes returns the most recent episodes across all podcasts
// GET /api/episodes?limit=50
func (h *EpisodeHandler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	episodes, err := h.Episodes.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return empty array instead of null
	if episodes == nil {
		episodes = []models.Episode{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episodes)
}

// ListDownloaded returns every episode with a local file
// GET /api/episodes/downloaded
func (h *EpisodeHandler) ListDownloaded(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.Episodes.ListDownloaded(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return empty array instead of null
	if episodes == nil {
		episodes = []models.Episode{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episodes)
}

// GetEpisode returns a single episode
// GET /api/episodes/{id}
func (h *EpisodeHandler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	episode, err := h.Episodes.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episode)
}

// DownloadEpisode fetches the episode audio into the local library. The
// request blocks until the download finishes; progress is available on
// the progress feed while it runs.
// POST /api/episodes/{id}/download
func (h *EpisodeHandler) DownloadEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	path, err := h.Service.DownloadEpisode(r.Context(), id)
	if err != nil {
		http.Error(w, "Download failed: "+err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Episode downloaded",
		"local_path": path,
	})
}

// EnqueueDownload queues the episode for a background download
// POST /api/episodes/{id}/queue
func (h *EpisodeHandler) EnqueueDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	if _, err := h.Episodes.GetByID(r.Context(), id); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	item, err := h.Queue.Enqueue(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to enqueue download: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(item)
}

// DeleteDownload removes the local file and clears the downloaded flag
// DELETE /api/episodes/{id}/download
func (h *EpisodeHandler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteDownloadedEpisode(r.Context(), id); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Local file deleted"})
}

// SetStatus updates the listening status of an episode
// PUT /api/episodes/{id}/status
func (h *EpisodeHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case models.EpisodeStatusNew, models.EpisodeStatusUnlistened, models.EpisodeStatusListened:
	default:
		http.Error(w, "Invalid status. Must be 'new', 'unlistened' or 'listened'", http.StatusBadRequest)
		return
	}

	if err := h.Episodes.SetStatus(r.Context(), id, req.Status); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Status updated"})
}

// TransferToDevice copies a downloaded episode onto a connected device
// POST /api/episodes/{id}/transfer
func (h *EpisodeHandler) TransferToDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DeviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.TransferToDevice(r.Context(), id, req.DeviceID); err != nil {
		http.Error(w, "Transfer failed: "+err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Episode transferred to device"})
}

// RemoveFromDevice deletes the episode file from a connected device
// POST /api/episodes/{id}/remove-from-device
func (h *EpisodeHandler) RemoveFromDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DeviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.RemoveFromDevice(r.Context(), id, req.DeviceID); err != nil {
		http.Error(w, "Removal failed: "+err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Episode removed from device"})
}
