package handler

import (
	"net/http"

	"github.com/pokercrm/playtime/internal/domain"
)

// CreatePlayer handles POST /api/v1/players
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePlayerRequest
	if err := decode(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	player, err := h.service.CreatePlayer(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: player})
}

// ListPlayers handles GET /api/v1/players
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.ListPlayers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, players)
}

// GetPlayer handles GET /api/v1/players/{playerID}
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	player, err := h.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, player)
}

// ListEntries handles GET /api/v1/players/{playerID}/playtime
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := r.URL.Query()
	entries, err := h.service.ListEntries(r.Context(), playerID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, entries)
}

// LogPlaytime handles PUT /api/v1/players/{playerID}/playtime
func (h *Handler) LogPlaytime(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var req domain.LogRequest
	if err := decode(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	entry, err := h.service.LogPlaytime(r.Context(), playerID, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, entry)
}

// EditEntry handles PATCH /api/v1/playtime/{entryID}
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := idParam(r, "entryID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var req domain.EditRequest
	if err := decode(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	entry, err := h.service.EditEntry(r.Context(), entryID, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, entry)
}

// DeleteEntry handles DELETE /api/v1/playtime/{entryID}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := idParam(r, "entryID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.service.DeleteEntry(r.Context(), entryID); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, map[string]int64{"deleted": entryID})
}

// GetSummary handles GET /api/v1/players/{playerID}/playtime/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), playerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, summary)
}

// GetSeries handles GET /api/v1/players/{playerID}/playtime/series
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := r.URL.Query()
	series, err := h.service.Series(r.Context(), playerID, q.Get("granularity"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, series)
}

// GetActiveHours handles GET /api/v1/players/{playerID}/playtime/active-hours
func (h *Handler) GetActiveHours(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	hours, err := h.service.ActiveHours(r.Context(), playerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, hours)
}

// GetLeaderboard handles GET /api/v1/playtime/leaderboard
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, lb)
}

// ImportSessions handles POST /api/v1/playtime/import
func (h *Handler) ImportSessions(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchImport
	if err := decode(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := h.service.ImportSessions(r.Context(), req.Sessions)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, result)
}
