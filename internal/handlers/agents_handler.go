package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"extwatch/internal/auth"
	"extwatch/internal/directory"
	"extwatch/internal/status"
)

type AgentsHandler struct {
	Directory *directory.Directory
	Service   *status.Service
	Logger    *zap.Logger
}

type agentView struct {
	directory.AgentInfo
	State status.State `json:"state"`
}

// GetAgents godoc
// @Summary      Agents with live state
// @Description  Directory info for the owner's monitored extensions, joined with last-known state.
// @Tags         Agents
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string][]agentView
// @Router       /api/agents [get]
func (h *AgentsHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())

	snap := h.Service.GetLastStatus()
	if snap == nil || len(snap.Extensions) == 0 {
		writeJSON(w, map[string][]agentView{"agents": {}})
		return
	}

	extensions := make([]string, 0, len(snap.Extensions))
	for ext := range snap.Extensions {
		extensions = append(extensions, ext)
	}

	infos, err := h.Directory.AgentsByExtensions(r.Context(), p.OwnerID, extensions)
	if err != nil {
		h.Logger.Error("agents lookup failed", zap.String("owner", p.OwnerID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	agents := make([]agentView, 0, len(infos))
	for _, info := range infos {
		v := agentView{AgentInfo: info, State: status.StateOffline}
		if st, ok := snap.Extensions[info.Extension]; ok {
			v.State = st.State
		}
		agents = append(agents, v)
	}

	writeJSON(w, map[string][]agentView{"agents": agents})
}
