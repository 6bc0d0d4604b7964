// Package httpapi implements Filigree's browser-facing surface: a REST
// API over the same engine the tool-call and CLI adapters use, plus the
// dashboard's static assets, served by plain net/http with no router
// framework.
package httpapi

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/tachyon-beep/filigree/internal/engine"
)

//go:embed static
var staticFiles embed.FS

// Server wires an *engine.Engine into an http.Handler.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer builds a Server. logger defaults to slog.Default() if nil.
func NewServer(e *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: e, logger: logger}
}

// Handler builds the full route table: REST resources under /api/, the
// dashboard's static assets under /static/.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.registerIssueRoutes(mux)
	s.registerDependencyRoutes(mux)
	s.registerPlanningRoutes(mux)
	s.registerFileRoutes(mux)
	s.registerTemplateRoutes(mux)
	s.registerEventRoutes(mux)

	staticRoot, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// static/ is embedded at build time; a missing subtree means the
		// embed directive itself is broken, not a runtime condition.
		panic(err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))

	return s.withLogging(mux)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
