package handlers

import (
	"encoding/json"
	"net/http"

	"podsync-backend/internal/notifications"
	"podsync-backend/internal/progress"
)

type ProgressHandler struct {
	Table *progress.Table
	Hub   *notifications.Hub
}

func NewProgressHandler(table *progress.Table, hub *notifications.Hub) *ProgressHandler {
	return &ProgressHandler{Table: table, Hub: hub}
}

// GetProgress returns a snapshot of every tracked operation
// GET /api/progress
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"transfers": h.Table.Snapshot(),
	})
}

// GetProgressEntry returns the entry for one subject and target. Downloads
// use the episode ID as subject and an empty target.
// GET /api/progress/entry?subject_id=42&target_id=/media/usb/STICK
func (h *ProgressHandler) GetProgressEntry(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		http.Error(w, "subject_id query parameter is required", http.StatusBadRequest)
		return
	}
	targetID := r.URL.Query().Get("target_id")

	entry, ok := h.Table.Get(subjectID, targetID)
	if !ok {
		http.Error(w, "No progress entry for that operation", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// StreamProgress upgrades to a websocket pushing progress snapshots
// GET /api/progress/ws
func (h *ProgressHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeWS(w, r)
}
