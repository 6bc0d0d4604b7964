package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleCreateIssue_Success(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{
		"title": "wire the REST surface", "actor": "alice",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "wire the REST surface", body["title"])
	assert.Equal(t, "open", body["status"])
}

func TestHandleCreateIssue_MissingActorIsValidationError(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "no actor given"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody, ok := body["error"].(map[string]any)
	if assert.True(t, ok, "expected an error envelope") {
		assert.Equal(t, "validation_error", errBody["code"])
	}
}

func TestHandleGetIssue_NotFoundReturns404(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodGet, "/api/issues/demo-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errBody, ok := body["error"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "not_found", errBody["code"])
	}
}

func TestHandleUpdateIssue_HardTransitionMissingFieldReturns422(t *testing.T) {
	ts := newTestServer(t)
	_, created := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{
		"title": "a bug", "type": "bug", "actor": "alice",
	})
	id := created["id"].(string)

	resp, body := doJSON(t, ts, http.MethodPatch, "/api/issues/"+id, map[string]any{
		"status": "confirmed", "actor": "alice",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody, ok := body["error"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "invalid_transition", errBody["code"])
		assert.Contains(t, errBody["missing_fields"], "severity")
	}
}

func TestHandleClaimIssue_ConflictOnSecondDistinctAssignee(t *testing.T) {
	ts := newTestServer(t)
	_, created := doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{
		"title": "claimable", "actor": "alice",
	})
	id := created["id"].(string)

	resp1, _ := doJSON(t, ts, http.MethodPost, "/api/issues/"+id+"/claim", map[string]any{
		"assignee": "agent-a", "actor": "agent-a",
	})
	assert.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, body2 := doJSON(t, ts, http.MethodPost, "/api/issues/"+id+"/claim", map[string]any{
		"assignee": "agent-b", "actor": "agent-b",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)
	errBody, ok := body2["error"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "already_claimed", errBody["code"])
	}
}

func TestHandleListIssues_FiltersByStatus(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "one", "actor": "alice"})
	doJSON(t, ts, http.MethodPost, "/api/issues", map[string]any{"title": "two", "actor": "alice"})

	resp, body := doJSON(t, ts, http.MethodGet, "/api/issues?status=open", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	issues, ok := body["issues"].([]any)
	if assert.True(t, ok) {
		assert.Len(t, issues, 2)
	}
	assert.EqualValues(t, 2, body["total"])
}
