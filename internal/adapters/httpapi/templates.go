package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerTemplateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/types", s.handleListTypes)
	mux.HandleFunc("GET /api/types/{type}", s.handleGetTypeInfo)
	mux.HandleFunc("GET /api/types/{type}/guide", s.handleGetWorkflowGuide)
	mux.HandleFunc("GET /api/types/{type}/states", s.handleGetWorkflowStates)
	mux.HandleFunc("GET /api/types/{type}/states/{state}", s.handleExplainState)
	mux.HandleFunc("GET /api/issues/{id}/transitions", s.handleGetValidTransitions)
}

func (s *Server) templateFor(issueType string) (types.Template, error) {
	tmpl, ok := s.engine.Templates.Current().Template(issueType)
	if !ok {
		return types.Template{}, ferrors.New(ferrors.CodeNotFound, "unknown issue type %q", issueType)
	}
	return tmpl, nil
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Types []string `json:"types"`
	}{s.engine.Templates.Current().Types()})
}

func (s *Server) handleGetTypeInfo(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templateFor(r.PathValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleGetWorkflowGuide(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templateFor(r.PathValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	for _, p := range s.engine.Templates.Current().Packs() {
		if p.Name == tmpl.Pack {
			writeJSON(w, http.StatusOK, struct {
				Pack  string `json:"pack"`
				Guide string `json:"guide"`
			}{p.Name, p.Guide})
			return
		}
	}
	writeError(w, ferrors.New(ferrors.CodeNotFound, "pack %q not found", tmpl.Pack))
}

func (s *Server) handleGetWorkflowStates(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templateFor(r.PathValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		States []types.State `json:"states"`
	}{tmpl.States})
}

func (s *Server) handleExplainState(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templateFor(r.PathValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	state := r.PathValue("state")
	_, terminal := tmpl.TerminalState()
	writeJSON(w, http.StatusOK, struct {
		State       string             `json:"state"`
		Category    types.Category     `json:"category"`
		IsTerminal  bool               `json:"is_terminal"`
		Transitions []types.Transition `json:"outbound_transitions"`
	}{
		State:       state,
		Category:    tmpl.StateCategory(state),
		IsTerminal:  terminal == state,
		Transitions: tmpl.OutboundTransitions(state),
	})
}

func (s *Server) handleGetValidTransitions(w http.ResponseWriter, r *http.Request) {
	issue, err := s.engine.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, err := s.templateFor(issue.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Transitions []types.ValidTransition `json:"transitions"`
	}{templates.ValidTransitions(tmpl, issue.Status, issue.Fields)})
}
