package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleCreatePlan_Success(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/plans", map[string]any{
		"milestone": map[string]any{"title": "ship v1"},
		"phases": []map[string]any{
			{"title": "build", "steps": []map[string]any{
				{"title": "write the handler"},
				{"title": "write the test", "deps": []string{"write the handler"}},
			}},
		},
		"actor": "alice",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["progress_pct"])
}

func TestHandleCreatePlan_UnknownSiblingDepReturnsError(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/plans", map[string]any{
		"milestone": map[string]any{"title": "ship v2"},
		"phases": []map[string]any{
			{"title": "build", "steps": []map[string]any{
				{"title": "write the handler", "deps": []string{"a step that does not exist"}},
			}},
		},
		"actor": "alice",
	})
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["error"])

	_, listBody := doJSON(t, ts, http.MethodGet, "/api/issues", nil)
	assert.EqualValues(t, 0, listBody["total"], "a failed plan should leave no partially-created issues behind")
}
