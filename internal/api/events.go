package api

import (
	"net/http"
	"strconv"

	"github.com/user/kvmon/internal/db"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventRepo.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []*db.MonitorEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type statsResponse struct {
	Clients   int              `json:"clients"`
	Published int64            `json:"published"`
	Commands  []db.CommandCount `json:"commands"`
}

func (h *handler) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.eventRepo.CountByCommand(r.Context(), parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	resp := statsResponse{Commands: counts}
	if resp.Commands == nil {
		resp.Commands = []db.CommandCount{}
	}
	if h.hub != nil {
		resp.Clients = h.hub.ClientCount()
		resp.Published = h.hub.EventCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionRepo.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*db.CaptureSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionRepo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handler) listSessionEvents(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionRepo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	events, err := h.eventRepo.ListBySession(r.Context(), session.ID, parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []*db.MonitorEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
