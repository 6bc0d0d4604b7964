package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerEventRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/issues/{id}/events", s.handleGetIssueEvents)
	mux.HandleFunc("GET /api/events/recent", s.handleGetRecentEvents)
	mux.HandleFunc("GET /api/events/since", s.handleGetEventsSince)
	mux.HandleFunc("POST /api/admin/archive-closed", s.handleArchiveClosed)
	mux.HandleFunc("POST /api/admin/compact-events", s.handleCompactEvents)
}

func (s *Server) handleGetIssueEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.GetIssueEvents(r.Context(), r.PathValue("id"), intParam(r.URL.Query(), "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetRecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.GetRecentEvents(r.Context(), intParam(r.URL.Query(), "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEventsSince(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := s.engine.GetEventsSince(r.Context(), int64(intParam(q, "cursor")), intParam(q, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleArchiveClosed(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	archived, err := s.engine.ArchiveClosed(r.Context(), in.OlderThanDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Archived []*types.Issue `json:"archived"`
	}{archived})
}

func (s *Server) handleCompactEvents(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.engine.CompactEvents(r.Context(), in.OlderThanDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted int64 `json:"deleted"`
	}{n})
}
