package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"podsync-backend/internal/models"
	"podsync-backend/internal/repositories"
)

type PodcastHandler struct {
	Podcasts *repositories.PodcastRepository
	Episodes *repositories.EpisodeRepository
}

func NewPodcastHandler(podcasts *repositories.PodcastRepository, episodes *repositories.EpisodeRepository) *PodcastHandler {
	return &PodcastHandler{Podcasts: podcasts, Episodes: episodes}
}

// CreatePodcast registers a new feed subscription
// POST /api/podcasts
func (h *PodcastHandler) CreatePodcast(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePodcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.FeedURL == "" {
		http.Error(w, "name and feed_url are required", http.StatusBadRequest)
		return
	}

	podcast := &models.Podcast{
		Name:        req.Name,
		FeedURL:     req.FeedURL,
		Description: req.Description,
		ArtworkURL:  req.ArtworkURL,
		WebsiteURL:  req.WebsiteURL,
	}
	if err := h.Podcasts.Create(r.Context(), podcast); err != nil {
		http.Error(w, "Failed to create podcast: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(podcast)
}

// ListPodcasts returns all subscriptions with episode counts
// GET /api/podcasts
func (h *PodcastHandler) ListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := h.Podcasts.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return empty array instead of null
	if podcasts == nil {
		podcasts = []models.Podcast{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(podcasts)
}

// GetPodcast returns a single subscription
// GET /api/podcasts/{id}
func (h *PodcastHandler) GetPodcast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid podcast ID", http.StatusBadRequest)
		return
	}

	podcast, err := h.Podcasts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(podcast)
}

// ListPodcastEpisodes returns the episodes of one podcast
// GET /api/podcasts/{id}/episodes
func (h *PodcastHandler) ListPodcastEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid podcast ID", http.StatusBadRequest)
		return
	}

	episodes, err := h.Episodes.ListByPodcast(r.Context(), id)
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

// GetPodcastCounts returns per-podcast episode counters for the library view
// GET /api/podcasts/counts
func (h *PodcastHandler) GetPodcastCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Episodes.CountsByPodcast(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
}

// DeletePodcast removes a subscription and its episode rows
// DELETE /api/podcasts/{id}
func (h *PodcastHandler) DeletePodcast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid podcast ID", http.StatusBadRequest)
		return
	}

	if err := h.Podcasts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Podcast deleted"})
}
