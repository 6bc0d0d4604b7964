package toolcall

import "github.com/tachyon-beep/filigree/internal/engine"

// RegisterAll registers every tool backed by e onto r. Callers build a
// fresh Registry, call RegisterAll, and hand the result to NewServer.
func RegisterAll(r *Registry, e *engine.Engine) {
	registerIssueTools(r, e)
	registerDependencyTools(r, e)
	registerPlanningTools(r, e)
	registerFileTools(r, e)
	registerTemplateTools(r, e)
	registerEventTools(r, e)
}
