package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/platform/httpx"
)

func TestJSON(t *testing.T) {
	res := httptest.NewRecorder()
	httpx.JSON(res, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())
}

func TestProblem(t *testing.T) {
	res := httptest.NewRecorder()
	httpx.Problem(res, http.StatusServiceUnavailable, "Queue Unavailable", "queue stats are temporarily unavailable")

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)

	var body httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "Queue Unavailable", body.Title)
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	assert.Equal(t, "queue stats are temporarily unavailable", body.Detail)
}
