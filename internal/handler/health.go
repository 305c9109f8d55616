package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/cache"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// maxHeapMB limite de memória usado nos health checks
const maxHeapMB = 512

// ConnectionCounter expõe o número de conexões websocket (websocket.Hub)
type ConnectionCounter interface {
	GetConnectionCount() int
}

// HealthOptions dependências opcionais do health check
type HealthOptions struct {
	DB         *sql.DB
	Hub        ConnectionCounter
	TextCache  *cache.Cache[string]
	DocIntel   bool
	Completion bool
	// Search base de conhecimento opcional; só aparece no /health quando configurada
	Search bool
}

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	opts      HealthOptions
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, opts HealthOptions) *HealthHandler {
	return &HealthHandler{
		opts:      opts,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := map[string]metrics.HealthStatus{
		"database":      metrics.CheckDatabaseHealth(c.Request.Context(), h.opts.DB),
		"memory":        metrics.CheckMemoryHealth(maxHeapMB),
		"doc_intel":     metrics.CheckConfigured(h.opts.DocIntel),
		"completion_ai": metrics.CheckConfigured(h.opts.Completion),
	}
	h.respond(c, components)
}

// DetailedHealthCheck returns comprehensive health information
// @Summary Detailed health check
// @Tags health
// @Produce json
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health [get]
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	components := map[string]metrics.HealthStatus{
		"database":      metrics.CheckDatabaseHealth(c.Request.Context(), h.opts.DB),
		"memory":        metrics.CheckMemoryHealth(maxHeapMB),
		"doc_intel":     metrics.CheckConfigured(h.opts.DocIntel),
		"completion_ai": metrics.CheckConfigured(h.opts.Completion),
		"analyses":      h.checkAnalysesHealth(),
	}
	if h.opts.Hub != nil {
		components["websocket"] = h.checkWebSocketHealth()
	}
	if h.opts.Search {
		components["knowledge_base"] = metrics.CheckConfigured(true)
	}
	h.respond(c, components)
}

func (h *HealthHandler) respond(c *gin.Context, components map[string]metrics.HealthStatus) {
	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == metrics.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, healthCheck)
}

// checkWebSocketHealth checks WebSocket hub health
func (h *HealthHandler) checkWebSocketHealth() metrics.HealthStatus {
	if h.opts.Hub.GetConnectionCount() > 100 {
		return metrics.HealthStatus{
			Status:  metrics.StatusDegraded,
			Message: "WebSocket connections near limit",
		}
	}
	return metrics.HealthStatus{Status: metrics.StatusHealthy}
}

// checkAnalysesHealth degrada quando a maioria das extrações falha
func (h *HealthHandler) checkAnalysesHealth() metrics.HealthStatus {
	snapshot := metrics.Get().Snapshot()

	total := snapshot.Analyses.Succeeded + snapshot.Analyses.Failed
	if total >= 5 {
		failureRate := float64(snapshot.Analyses.Failed) / float64(total) * 100
		if failureRate > 50 {
			return metrics.HealthStatus{
				Status:  metrics.StatusDegraded,
				Message: "High analysis failure rate",
			}
		}
	}
	return metrics.HealthStatus{Status: metrics.StatusHealthy}
}

// GetMetrics returns application metrics
// @Summary Get application metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} metrics.MetricsSnapshot
// @Router /metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	snapshot := metrics.Get().Snapshot()

	body := gin.H{"metrics": snapshot}
	if h.opts.TextCache != nil {
		body["text_cache"] = h.opts.TextCache.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// GetEndpointMetrics returns metrics for specific endpoints
// @Summary Get endpoint metrics
// @Tags metrics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /metrics/endpoints [get]
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	snapshot := metrics.Get().Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"endpoints": snapshot.Endpoints,
	})
}
