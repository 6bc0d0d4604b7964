package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerIssueRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/issues", s.handleCreateIssue)
	mux.HandleFunc("GET /api/issues", s.handleListIssues)
	mux.HandleFunc("GET /api/issues/{id}", s.handleGetIssue)
	mux.HandleFunc("PATCH /api/issues/{id}", s.handleUpdateIssue)
	mux.HandleFunc("POST /api/issues/{id}/close", s.handleCloseIssue)
	mux.HandleFunc("POST /api/issues/{id}/reopen", s.handleReopenIssue)
	mux.HandleFunc("POST /api/issues/{id}/claim", s.handleClaimIssue)
	mux.HandleFunc("POST /api/issues/claim-next", s.handleClaimNext)
	mux.HandleFunc("POST /api/issues/{id}/release", s.handleReleaseClaim)
	mux.HandleFunc("POST /api/issues/{id}/undo", s.handleUndoLast)
	mux.HandleFunc("POST /api/batch/close", s.handleBatchClose)
	mux.HandleFunc("POST /api/batch/update", s.handleBatchUpdate)
	mux.HandleFunc("GET /api/issues/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /api/issues/{id}/comments", s.handleAddComment)
	mux.HandleFunc("GET /api/issues/{id}/labels", s.handleListLabels)
	mux.HandleFunc("POST /api/issues/{id}/labels", s.handleAddLabel)
	mux.HandleFunc("DELETE /api/issues/{id}/labels/{label}", s.handleRemoveLabel)
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string                 `json:"title"`
		Type        string                 `json:"type"`
		Priority    *int                   `json:"priority"`
		ParentID    string                 `json:"parent_id"`
		Assignee    string                 `json:"assignee"`
		Description string                 `json:"description"`
		Notes       string                 `json:"notes"`
		Fields      map[string]interface{} `json:"fields"`
		Status      string                 `json:"status"`
		Actor       string                 `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Actor == "" {
		writeError(w, ferrors.New(ferrors.CodeValidation, "actor is required"))
		return
	}
	issue, err := s.engine.CreateIssue(r.Context(), engine.CreateIssueInput{
		Title: in.Title, Type: in.Type, Priority: in.Priority, ParentID: in.ParentID,
		Assignee: in.Assignee, Description: in.Description, Notes: in.Notes,
		Fields: in.Fields, Status: in.Status, Actor: in.Actor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.engine.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.IssueFilter{}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("type"); v != "" {
		filter.Type = &v
	}
	if v := q.Get("assignee"); v != "" {
		filter.Assignee = &v
	}
	if v := q.Get("parent_id"); v != "" {
		filter.ParentID = &v
	}
	issues, total, err := s.engine.ListIssues(r.Context(), filter, types.PageRequest{
		Sort: q.Get("sort"), Direction: q.Get("direction"),
		Limit: intParam(q, "limit"), Offset: intParam(q, "offset"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Issues []*types.Issue `json:"issues"`
		Total  int            `json:"total"`
	}{issues, total})
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status              *string                `json:"status"`
		Priority            *int                   `json:"priority"`
		Title               *string                `json:"title"`
		Assignee            *string                `json:"assignee"`
		Description         *string                `json:"description"`
		Notes               *string                `json:"notes"`
		ParentID            *string                `json:"parent_id"`
		Fields              map[string]interface{} `json:"fields"`
		Actor               string                 `json:"actor"`
		SkipTransitionCheck bool                   `json:"skip_transition_check"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	issue, warnings, err := s.engine.UpdateIssue(r.Context(), r.PathValue("id"), engine.UpdateIssueInput{
		Status: in.Status, Priority: in.Priority, Title: in.Title, Assignee: in.Assignee,
		Description: in.Description, Notes: in.Notes, ParentID: in.ParentID, Fields: in.Fields,
		Actor: in.Actor, SkipTransitionCheck: in.SkipTransitionCheck,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Issue    *types.Issue      `json:"issue"`
		Warnings []ferrors.Warning `json:"warnings,omitempty"`
	}{issue, warnings})
}

func (s *Server) handleCloseIssue(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	issue, unblocked, err := s.engine.CloseIssue(r.Context(), r.PathValue("id"), in.Reason, in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Issue          *types.Issue   `json:"issue"`
		NewlyUnblocked []*types.Issue `json:"newly_unblocked,omitempty"`
	}{issue, unblocked})
}

func (s *Server) handleReopenIssue(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	issue, err := s.engine.ReopenIssue(r.Context(), r.PathValue("id"), in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleClaimIssue(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Assignee string `json:"assignee"`
		Actor    string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	issue, err := s.engine.ClaimIssue(r.Context(), r.PathValue("id"), in.Assignee, in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleClaimNext(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Assignee    string `json:"assignee"`
		Type        string `json:"type"`
		PriorityMin *int   `json:"priority_min"`
		PriorityMax *int   `json:"priority_max"`
		Actor       string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.ClaimNext(r.Context(), in.Assignee, types.WorkFilter{
		Type: in.Type, PriorityMin: in.PriorityMin, PriorityMax: in.PriorityMax,
	}, in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReleaseClaim(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	issue, err := s.engine.ReleaseClaim(r.Context(), r.PathValue("id"), in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleUndoLast(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.UndoLast(r.Context(), r.PathValue("id"), in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatchClose(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDs    []string `json:"ids"`
		Reason string   `json:"reason"`
		Actor  string   `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	closed, errs := s.engine.BatchClose(r.Context(), in.IDs, in.Reason, in.Actor)
	writeJSON(w, http.StatusOK, struct {
		Closed []*types.Issue          `json:"closed"`
		Errors []engine.BatchItemError `json:"errors,omitempty"`
	}{closed, errs})
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDs    []string               `json:"ids"`
		Fields map[string]interface{} `json:"fields"`
		Actor  string                 `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, errs := s.engine.BatchUpdate(r.Context(), in.IDs, in.Fields, in.Actor)
	writeJSON(w, http.StatusOK, struct {
		Updated []*types.Issue          `json:"updated"`
		Errors  []engine.BatchItemError `json:"errors,omitempty"`
	}{updated, errs})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.engine.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text  string `json:"text"`
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	comment, err := s.engine.AddComment(r.Context(), r.PathValue("id"), in.Actor, in.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.engine.ListLabels(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleAddLabel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Label string `json:"label"`
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.AddLabel(r.Context(), r.PathValue("id"), in.Label, in.Actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{true})
}

func (s *Server) handleRemoveLabel(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	if err := s.engine.RemoveLabel(r.Context(), r.PathValue("id"), r.PathValue("label"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{true})
}

func intParam(q map[string][]string, name string) int {
	vals, ok := q[name]
	if !ok || len(vals) == 0 {
		return 0
	}
	n := 0
	for _, c := range vals[0] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
