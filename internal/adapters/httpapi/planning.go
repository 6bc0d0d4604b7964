package httpapi

import (
	"net/http"

	"github.com/tachyon-beep/filigree/internal/types"
)

func (s *Server) registerPlanningRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/plans", s.handleCreatePlan)
	mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("GET /api/flow-metrics", s.handleFlowMetrics)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		types.PlanInput
		Actor string `json:"actor"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.engine.CreatePlan(r.Context(), in.PlanInput, in.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.engine.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleFlowMetrics(w http.ResponseWriter, r *http.Request) {
	windowDays := intParam(r.URL.Query(), "window_days")
	metrics, err := s.engine.ComputeFlowMetrics(r.Context(), windowDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
