package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const answerJSON = `{
  "list_of_all_tasks": {
    "Login": {
      "description": "Auth <flow>",
      "fitting_employees": [{"role": "Backend", "count": 1}],
      "estimated_days": {"min": 1, "most_likely": 2, "max": 3},
      "potential_issues": ["SSO"]
    },
    "Dashboard": {
      "description": "Charts",
      "fitting_employees": [{"role": "Frontend", "count": 2}],
      "estimated_days": {"min": 2, "most_likely": 3, "max": 5},
      "potential_issues": []
    }
  }
}`

func setupExportRouter(t *testing.T, answer string) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.json")
	if answer != "" {
		require.NoError(t, os.WriteFile(path, []byte(answer), 0o644))
	}

	h := NewExportHandler(path)
	router := gin.New()
	router.GET("/api/v1/answer", h.GetAnswer)
	router.POST("/api/v1/export", h.Export)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func postRaw(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetAnswerJSONKeepsOrder(t *testing.T) {
	router := setupExportRouter(t, answerJSON)

	w := get(router, "/api/v1/answer")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"Login"`), strings.Index(body, `"Dashboard"`))
	assert.Equal(t, "2", w.Header().Get("X-Total-Tasks"))
}

func TestGetAnswerHTML(t *testing.T) {
	router := setupExportRouter(t, answerJSON)

	w := get(router, "/api/v1/answer?format=html")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `id="json-content"`)
	assert.Contains(t, body, "Auth &lt;flow&gt;")
	assert.Contains(t, body, "<li>Most Likely: 2</li>")
}

func TestGetAnswerCSV(t *testing.T) {
	before := metrics.Get().Snapshot().Exports.CSV
	router := setupExportRouter(t, answerJSON)

	w := get(router, "/api/v1/answer?format=csv")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "attachment; filename=tasks.csv", w.Header().Get("Content-Disposition"))

	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Login;Auth <flow>;"))
	assert.True(t, strings.HasPrefix(lines[2], "Dashboard;"))
	assert.Equal(t, before+1, metrics.Get().Snapshot().Exports.CSV)
}

func TestGetAnswerErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		w := get(setupExportRouter(t, ""), "/api/v1/answer")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid document", func(t *testing.T) {
		w := get(setupExportRouter(t, `{"tasks":[]}`), "/api/v1/answer")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := get(setupExportRouter(t, answerJSON), "/api/v1/answer?format=pdf")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportXLSX(t *testing.T) {
	router := setupExportRouter(t, "")

	w := postRaw(router, "/api/v1/export?format=xlsx", answerJSON)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=tasks.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "Login", rows[1][0])
}

func TestExportRejectsInvalidDocument(t *testing.T) {
	router := setupExportRouter(t, "")

	w := postRaw(router, "/api/v1/export?format=csv", `{"list_of_all_tasks":{"X":{"description":"d","fitting_employees":[],"estimated_days":{"min":5,"most_likely":2,"max":3}}}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postRaw(router, "/api/v1/export?format=json", answerJSON)
	assert.Equal(t, http.StatusBadRequest, w.Code, "json is not an export format")
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler("test", HealthOptions{DocIntel: true, Completion: true})
	router := gin.New()
	router.GET("/health/live", h.LivenessCheck)
	router.GET("/health/ready", h.ReadinessCheck)
	router.GET("/metrics", h.GetMetrics)

	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)

	w := get(router, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	var health metrics.HealthCheck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "database disabled", health.Components["database"].Message)

	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
}

func TestHealthUnconfiguredUpstream(t *testing.T) {
	h := NewHealthHandler("test", HealthOptions{DocIntel: false, Completion: true})
	router := gin.New()
	router.GET("/health/ready", h.ReadinessCheck)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)
}

func TestDetailedHealthListsKnowledgeBaseWhenConfigured(t *testing.T) {
	for _, search := range []bool{false, true} {
		h := NewHealthHandler("test", HealthOptions{DocIntel: true, Completion: true, Search: search})
		router := gin.New()
		router.GET("/health", h.DetailedHealthCheck)

		var health metrics.HealthCheck
		require.NoError(t, json.Unmarshal(get(router, "/health").Body.Bytes(), &health))
		_, listed := health.Components["knowledge_base"]
		assert.Equal(t, search, listed)
	}
}

func TestFilesHandler(t *testing.T) {
	storage, err := repository.NewLocalStorage(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	require.NoError(t, storage.Write(t.Context(), "uploads/a.pdf", []byte(minimalPDF)))

	router := gin.New()
	router.GET("/files/*path", NewFilesHandler(storage).Serve)

	w := get(router, "/files/uploads/a.pdf")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, minimalPDF, w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(router, "/files/uploads/missing.pdf").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/files/").Code)
}
