package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"podsync-backend/internal/models"
	"podsync-backend/internal/services"
)

type DeviceHandler struct {
	Devices  *services.DeviceService
	Episodes *services.EpisodeService
}

func NewDeviceHandler(devices *services.DeviceService, episodes *services.EpisodeService) *DeviceHandler {
	return &DeviceHandler{Devices: devices, Episodes: episodes}
}

// resolveDevice turns the device ID route variable into a mounted device
func (h *DeviceHandler) resolveDevice(w http.ResponseWriter, r *http.Request) (models.UsbDevice, bool) {
	deviceID := mux.Vars(r)["deviceID"]
	device, err := h.Devices.FindDevice(deviceID)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return models.UsbDevice{}, false
	}
	return device, true
}

// ListDevices returns the currently mounted removable devices
// GET /api/devices
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Devices.ListDevices()
	if err != nil {
		http.Error(w, "Failed to list devices: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return empty array instead of null
	if devices == nil {
		devices = []models.UsbDevice{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// ListDeviceEpisodes returns the episode files on a device grouped by podcast
// GET /api/devices/{deviceID}/episodes
func (h *DeviceHandler) ListDeviceEpisodes(w http.ResponseWriter, r *http.Request) {
	device, ok := h.resolveDevice(w, r)
	if !ok {
		return
	}

	episodes, err := h.Episodes.DeviceEpisodes(r.Context(), device.Path)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	// Ensure we return empty array instead of null
	if episodes == nil {
		episodes = []models.DeviceEpisodeInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episodes)
}

// GetStatusIndicators reports presence of each on-device episode file
// GET /api/devices/{deviceID}/indicators
func (h *DeviceHandler) GetStatusIndicators(w http.ResponseWriter, r *http.Request) {
	device, ok := h.resolveDevice(w, r)
	if !ok {
		return
	}

	indicators, err := h.Episodes.DeviceStatusIndicators(r.Context(), device.Path)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(indicators)
}

// VerifyDevice runs a read-only consistency check against a device
// GET /api/devices/{deviceID}/verify
func (h *DeviceHandler) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := h.resolveDevice(w, r)
	if !ok {
		return
	}

	report, err := h.Episodes.VerifyDevice(r.Context(), device.Path)
	if err != nil {
		http.Error(w, "Verification failed: "+err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// SyncDevice corrects database flags against the actual device contents
// POST /api/devices/{deviceID}/sync
func (h *DeviceHandler) SyncDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := h.resolveDevice(w, r)
	if !ok {
		return
	}

	report, err := h.Episodes.SyncDevice(r.Context(), device.Path)
	if err != nil {
		http.Error(w, "Sync failed: "+err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
