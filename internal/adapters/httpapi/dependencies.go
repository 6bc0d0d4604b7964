package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerDependencyRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/dependencies", s.handleAddDependency)
	mux.HandleFunc("DELETE /api/dependencies", s.handleRemoveDependency)
	mux.HandleFunc("GET /api/ready", s.handleGetReady)
	mux.HandleFunc("GET /api/blocked", s.handleGetBlocked)
	mux.HandleFunc("GET /api/critical-path", s.handleGetCriticalPath)
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IssueID     string `json:"issue_id"`
		DependsOnID string `json:"depends_on_id"`
		Type        string `json:"type"`
		Actor       string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.AddDependency(r.Context(), in.IssueID, in.DependsOnID, in.Type, in.Actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{true})
}

func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IssueID     string `json:"issue_id"`
		DependsOnID string `json:"depends_on_id"`
		Actor       string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.RemoveDependency(r.Context(), in.IssueID, in.DependsOnID, in.Actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{true})
}

func (s *Server) handleGetReady(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	issues, err := s.engine.GetReady(r.Context(), types.WorkFilter{
		Type: q.Get("type"), Limit: intParam(q, "limit"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleGetBlocked(w http.ResponseWriter, r *http.Request) {
	issues, err := s.engine.GetBlocked(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleGetCriticalPath(w http.ResponseWriter, r *http.Request) {
	path, err := s.engine.GetCriticalPath(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}
