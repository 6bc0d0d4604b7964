package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleAddDependency_ThenGetReadyExcludesBlockedIssue(t *testing.T) {
	ts := newTestServer(t)
	_, blocker := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "blocker", "actor": "alice"})
	_, blocked := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "blocked", "actor": "alice"})
	blockerID := blocker["id"].(string)
	blockedID := blocked["id"].(string)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/dependencies", map[string]any{
		"issue_id": blockedID, "depends_on_id": blockerID, "actor": "alice",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	issues := getList(t, ts, "/api/ready")
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue["id"].(string))
	}
	assert.Contains(t, ids, blockerID)
	assert.NotContains(t, ids, blockedID)
}

func TestHandleAddDependency_CycleReturns422(t *testing.T) {
	ts := newTestServer(t)
	_, a := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "a", "actor": "alice"})
	_, b := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "b", "actor": "alice"})
	aID := a["id"].(string)
	bID := b["id"].(string)

	resp1, _ := doJSON(t, ts, http.MethodPost, "/api/dependencies", map[string]any{
		"issue_id": aID, "depends_on_id": bID, "actor": "alice",
	})
	assert.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, body2 := doJSON(t, ts, http.MethodPost, "/api/dependencies", map[string]any{
		"issue_id": bID, "depends_on_id": aID, "actor": "alice",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)
	errBody, ok := body2["error"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "would_create_cycle", errBody["code"])
	}
}
