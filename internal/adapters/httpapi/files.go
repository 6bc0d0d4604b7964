package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerFileRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/files", s.handleRegisterFile)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/files/hotspots", s.handleFileHotspots)
	mux.HandleFunc("GET /api/files/{id}/timeline", s.handleFileTimeline)
	mux.HandleFunc("POST /api/files/{id}/scan-results", s.handleProcessScanResults)
	mux.HandleFunc("POST /api/files/{id}/clean-stale", s.handleCleanStaleFindings)
	mux.HandleFunc("POST /api/files/gc", s.handleGCFindings)
	mux.HandleFunc("POST /api/files/{id}/associations", s.handleAddFileAssociation)
}

func (s *Server) handleRegisterFile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Path     string                 `json:"path"`
		Language string                 `json:"language"`
		FileType string                 `json:"file_type"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	file, err := s.engine.RegisterFile(r.Context(), in.Path, in.Language, in.FileType, in.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summaries, total, err := s.engine.ListFilesPaginated(r.Context(), types.FileFilter{
		Language: q.Get("language"), PathPrefix: q.Get("path_prefix"),
		HasSeverity: q.Get("has_severity"), ScanSource: q.Get("scan_source"),
	}, types.PageRequest{Limit: intParam(q, "limit"), Offset: intParam(q, "offset")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Files []types.FileSummary `json:"files"`
		Total int                 `json:"total"`
	}{summaries, total})
}

func (s *Server) handleFileHotspots(w http.ResponseWriter, r *http.Request) {
	hotspots, err := s.engine.GetFileHotspots(r.Context(), intParam(r.URL.Query(), "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hotspots)
}

func (s *Server) handleFileTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeline, err := s.engine.GetFileTimeline(r.Context(), r.PathValue("id"), q.Get("event_type"),
		intParam(q, "limit"), intParam(q, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

func (s *Server) handleProcessScanResults(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ScanSource string               `json:"scan_source"`
		ScanRunID  string               `json:"scan_run_id"`
		Findings   []*types.ScanFinding `json:"findings"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.ProcessScanResults(r.Context(), r.PathValue("id"), in.ScanSource, in.ScanRunID, in.Findings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Ingested int `json:"ingested"`
	}{len(in.Findings)})
}

func (s *Server) handleCleanStaleFindings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ScanSource   string `json:"scan_source"`
		CurrentRunID string `json:"current_run_id"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.engine.CleanStaleFindings(r.Context(), r.PathValue("id"), in.ScanSource, in.CurrentRunID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Flagged int64 `json:"flagged"`
	}{n})
}

func (s *Server) handleGCFindings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		GraceDays int `json:"grace_days"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.engine.GCFindings(r.Context(), in.GraceDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted int64 `json:"deleted"`
	}{n})
}

func (s *Server) handleAddFileAssociation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IssueID   string `json:"issue_id"`
		AssocType string `json:"assoc_type"`
		Actor     string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	assoc, err := s.engine.AddFileAssociation(r.Context(), r.PathValue("id"), in.IssueID, types.AssocType(in.AssocType), in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assoc)
}
