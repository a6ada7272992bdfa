package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"extwatch/internal/auth"
	"extwatch/internal/directory"
	"extwatch/internal/status"
)

type StatusHandler struct {
	Service   *status.Service
	Directory *directory.Directory
	Logger    *zap.Logger

	// BaseCtx bounds monitoring goroutines to the server lifecycle
	// instead of a single request.
	BaseCtx context.Context
}

// GetStatus godoc
// @Summary      Current status snapshot
// @Description  Last-known status of every monitored extension, with derived counts.
// @Tags         Status
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} status.Snapshot
// @Router       /api/status [get]
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.GetLastStatus()
	if snap == nil {
		empty := status.Snapshot{Extensions: map[string]status.ExtensionStatus{}}
		writeJSON(w, empty)
		return
	}
	writeJSON(w, snap)
}

// GetExtension godoc
// @Summary      Status of a single extension
// @Tags         Status
// @Security     BearerAuth
// @Produce      json
// @Param        extension path string true "extension number"
// @Success      200 {object} status.ExtensionStatus
// @Failure      404 {string} string "unknown extension"
// @Router       /api/status/{extension} [get]
func (h *StatusHandler) GetExtension(w http.ResponseWriter, r *http.Request) {
	ext := chi.URLParam(r, "extension")

	snap := h.Service.GetLastStatus()
	if snap == nil {
		http.Error(w, "unknown extension", http.StatusNotFound)
		return
	}
	st, ok := snap.Extensions[ext]
	if !ok {
		http.Error(w, "unknown extension", http.StatusNotFound)
		return
	}
	writeJSON(w, st)
}

type batchRequest struct {
	Extensions []string `json:"extensions"`
}

// Batch godoc
// @Summary      Status of a bounded extension set
// @Description  Returns last-known status for up to the batch cap of extensions.
// @Tags         Status
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body batchRequest true "extensions to query"
// @Success      200 {object} map[string]status.ExtensionStatus
// @Router       /api/status/batch [post]
func (h *StatusHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	out := make(map[string]status.ExtensionStatus, len(req.Extensions))
	if snap := h.Service.GetLastStatus(); snap != nil {
		for _, ext := range req.Extensions {
			if st, ok := snap.Extensions[ext]; ok {
				out[ext] = st
			}
		}
	}
	writeJSON(w, out)
}

type startRequest struct {
	Context    string   `json:"context"`
	Extensions []string `json:"extensions"`
	Realtime   bool     `json:"realtime"`
}

// Start godoc
// @Summary      Start live monitoring
// @Description  Starts polling for the given view context, or realtime monitoring for an explicit extension list.
// @Tags         Status
// @Security     BearerAuth
// @Accept       json
// @Success      204 {string} string "started"
// @Router       /api/status/start [post]
func (h *StatusHandler) Start(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Monitoring outlives the request, so it runs off the server's
	// lifecycle, not the request context.
	if req.Realtime {
		extensions := req.Extensions
		if len(extensions) == 0 {
			var err error
			extensions, err = h.Directory.ExtensionsByOwner(r.Context(), p.OwnerID)
			if err != nil {
				h.Logger.Warn("load extensions for owner", zap.String("owner", p.OwnerID), zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}
		h.Service.StartRealtimeForAgents(h.BaseCtx, extensions, p.OwnerID)
	} else {
		h.Service.StartAutoUpdate(h.BaseCtx, req.Context)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stop godoc
// @Summary      Stop live monitoring
// @Tags         Status
// @Security     BearerAuth
// @Success      204 {string} string "stopped"
// @Router       /api/status/stop [post]
func (h *StatusHandler) Stop(w http.ResponseWriter, _ *http.Request) {
	h.Service.StopAutoUpdate()
	h.Service.StopRealtime()
	w.WriteHeader(http.StatusNoContent)
}

// Stats godoc
// @Summary      Engine monitoring stats
// @Tags         Status
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} status.EngineStats
// @Router       /api/status/stats [get]
func (h *StatusHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.Service.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
