package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Request latency (in milliseconds)
	TotalLatency int64
	RequestCount int64

	// Document Intelligence analyses
	AnalysesStarted   int64
	AnalysesSucceeded int64
	AnalysesFailed    int64
	AnalysesRunning   int64
	StatusPolls       int64

	// Chat completion metrics
	Completions       int64
	CompletionErrors  int64
	CompletionLatency int64

	// Estimation and export metrics
	EstimatesGenerated int64
	EstimateErrors     int64
	ExportsHTML        int64
	ExportsCSV         int64
	ExportsXLSX        int64

	// File upload metrics
	FilesUploaded      int64
	TotalBytesUploaded int64
	FilesExpired       int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesOut int64

	// Authentication metrics
	AuthFailures int64

	// Endpoint-specific metrics
	EndpointMetrics map[string]*EndpointMetrics

	// Start time for uptime calculation
	StartTime time.Time
}

// global metrics instance
var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		globalMetrics = New()
	})
}

// New creates an isolated metrics instance (tests)
func New() *Metrics {
	return &Metrics{
		StartTime:       time.Now(),
		EndpointMetrics: make(map[string]*EndpointMetrics),
	}
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// AnalysisStarted marks a submitted Document Intelligence job
func (m *Metrics) AnalysisStarted() {
	atomic.AddInt64(&m.AnalysesStarted, 1)
	atomic.AddInt64(&m.AnalysesRunning, 1)
}

// AnalysisFinished marks a job leaving the running state
func (m *Metrics) AnalysisFinished(success bool) {
	atomic.AddInt64(&m.AnalysesRunning, -1)
	if success {
		atomic.AddInt64(&m.AnalysesSucceeded, 1)
	} else {
		atomic.AddInt64(&m.AnalysesFailed, 1)
	}
}

// IncrementPolls counts one status poll
func (m *Metrics) IncrementPolls() {
	atomic.AddInt64(&m.StatusPolls, 1)
}

// IncrementCompletion counts a chat completion call
func (m *Metrics) IncrementCompletion(success bool, latencyMs int64) {
	atomic.AddInt64(&m.Completions, 1)
	atomic.AddInt64(&m.CompletionLatency, latencyMs)
	if !success {
		atomic.AddInt64(&m.CompletionErrors, 1)
	}
}

// IncrementEstimate counts an estimation attempt
func (m *Metrics) IncrementEstimate(success bool) {
	if success {
		atomic.AddInt64(&m.EstimatesGenerated, 1)
	} else {
		atomic.AddInt64(&m.EstimateErrors, 1)
	}
}

// IncrementExport counts a rendered or exported answer by format
func (m *Metrics) IncrementExport(format string) {
	switch format {
	case "html":
		atomic.AddInt64(&m.ExportsHTML, 1)
	case "csv":
		atomic.AddInt64(&m.ExportsCSV, 1)
	case "xlsx":
		atomic.AddInt64(&m.ExportsXLSX, 1)
	}
}

// IncrementFileUpload increments file upload counters
func (m *Metrics) IncrementFileUpload(bytes int64) {
	atomic.AddInt64(&m.FilesUploaded, 1)
	atomic.AddInt64(&m.TotalBytesUploaded, bytes)
}

// IncrementFileExpired counts a staged upload removed by the cleanup loop
func (m *Metrics) IncrementFileExpired() {
	atomic.AddInt64(&m.FilesExpired, 1)
}

// IncrementWSConnection increments WebSocket connection counter
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection decrements WebSocket connection counter
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageOut increments WebSocket outgoing message counter
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// IncrementAuthFailure counts a rejected credential
func (m *Metrics) IncrementAuthFailure() {
	atomic.AddInt64(&m.AuthFailures, 1)
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndpointMetrics == nil {
		m.EndpointMetrics = make(map[string]*EndpointMetrics)
	}

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	em.Requests++
	em.TotalLatency += latencyMs
	if statusCode >= 400 {
		em.Errors++
	}
}

// GetEndpointMetrics returns a copy of endpoint metrics
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics, len(m.EndpointMetrics))
	for k, v := range m.EndpointMetrics {
		result[k] = *v
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	count := atomic.LoadInt64(&m.RequestCount)
	if count == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.TotalLatency)
	return float64(total) / float64(count)
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Analyses struct {
		Started   int64 `json:"started"`
		Succeeded int64 `json:"succeeded"`
		Failed    int64 `json:"failed"`
		Running   int64 `json:"running"`
		Polls     int64 `json:"polls"`
	} `json:"analyses"`

	Completions struct {
		Total        int64   `json:"total"`
		Errors       int64   `json:"errors"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"completions"`

	Estimates struct {
		Generated int64 `json:"generated"`
		Errors    int64 `json:"errors"`
	} `json:"estimates"`

	Exports struct {
		HTML int64 `json:"html"`
		CSV  int64 `json:"csv"`
		XLSX int64 `json:"xlsx"`
	} `json:"exports"`

	Files struct {
		Uploaded   int64 `json:"uploaded"`
		TotalBytes int64 `json:"total_bytes"`
		Expired    int64 `json:"expired"`
	} `json:"files"`

	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	Auth struct {
		Failures int64 `json:"failures"`
	} `json:"auth"`

	System struct {
		Goroutines   int    `json:"goroutines"`
		HeapAllocMB  uint64 `json:"heap_alloc_mb"`
		HeapInUseMB  uint64 `json:"heap_inuse_mb"`
		StackInUseMB uint64 `json:"stack_inuse_mb"`
		NumGC        uint32 `json:"num_gc"`
	} `json:"system"`

	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := MetricsSnapshot{}

	snapshot.UptimeSeconds = m.GetUptime().Seconds()
	snapshot.StartTime = m.StartTime.Format(time.RFC3339)

	snapshot.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snapshot.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snapshot.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	snapshot.Requests.AvgLatencyMs = m.GetAverageLatency()

	snapshot.Analyses.Started = atomic.LoadInt64(&m.AnalysesStarted)
	snapshot.Analyses.Succeeded = atomic.LoadInt64(&m.AnalysesSucceeded)
	snapshot.Analyses.Failed = atomic.LoadInt64(&m.AnalysesFailed)
	snapshot.Analyses.Running = atomic.LoadInt64(&m.AnalysesRunning)
	snapshot.Analyses.Polls = atomic.LoadInt64(&m.StatusPolls)

	completions := atomic.LoadInt64(&m.Completions)
	snapshot.Completions.Total = completions
	snapshot.Completions.Errors = atomic.LoadInt64(&m.CompletionErrors)
	if completions > 0 {
		snapshot.Completions.AvgLatencyMs = float64(atomic.LoadInt64(&m.CompletionLatency)) / float64(completions)
	}

	snapshot.Estimates.Generated = atomic.LoadInt64(&m.EstimatesGenerated)
	snapshot.Estimates.Errors = atomic.LoadInt64(&m.EstimateErrors)

	snapshot.Exports.HTML = atomic.LoadInt64(&m.ExportsHTML)
	snapshot.Exports.CSV = atomic.LoadInt64(&m.ExportsCSV)
	snapshot.Exports.XLSX = atomic.LoadInt64(&m.ExportsXLSX)

	snapshot.Files.Uploaded = atomic.LoadInt64(&m.FilesUploaded)
	snapshot.Files.TotalBytes = atomic.LoadInt64(&m.TotalBytesUploaded)
	snapshot.Files.Expired = atomic.LoadInt64(&m.FilesExpired)

	snapshot.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	snapshot.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	snapshot.Auth.Failures = atomic.LoadInt64(&m.AuthFailures)

	snapshot.System.Goroutines = runtime.NumGoroutine()
	snapshot.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.System.HeapInUseMB = memStats.HeapInuse / 1024 / 1024
	snapshot.System.StackInUseMB = memStats.StackInuse / 1024 / 1024
	snapshot.System.NumGC = memStats.NumGC

	endpointMetrics := m.GetEndpointMetrics()
	if len(endpointMetrics) > 0 {
		snapshot.Endpoints = make(map[string]EndpointMetricsSnapshot)
		for k, v := range endpointMetrics {
			em := EndpointMetricsSnapshot{
				Requests: v.Requests,
				Errors:   v.Errors,
			}
			if v.Requests > 0 {
				em.ErrorRate = float64(v.Errors) / float64(v.Requests) * 100
				em.AvgLatencyMs = float64(v.TotalLatency) / float64(v.Requests)
			}
			snapshot.Endpoints[k] = em
		}
	}

	return snapshot
}

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth checks the roles_rates database. A nil db means the
// catalog is disabled, which is reported as healthy.
func CheckDatabaseHealth(ctx context.Context, db *sql.DB) HealthStatus {
	if db == nil {
		return HealthStatus{
			Status:  StatusHealthy,
			Message: "database disabled",
		}
	}

	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return HealthStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: latency,
		}
	}

	if latency > 100 {
		return HealthStatus{
			Status:  StatusDegraded,
			Message: "high latency",
			Latency: latency,
		}
	}

	return HealthStatus{
		Status:  StatusHealthy,
		Latency: latency,
	}
}

// CheckConfigured reports whether an upstream service has credentials set
func CheckConfigured(configured bool) HealthStatus {
	if !configured {
		return HealthStatus{Status: StatusUnhealthy, Message: "not configured"}
	}
	return HealthStatus{Status: StatusHealthy}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024

	if heapMB > maxHeapMB {
		return HealthStatus{
			Status:  StatusUnhealthy,
			Message: "heap memory exceeds limit",
		}
	}

	// Warn if using more than 80% of limit
	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{
			Status:  StatusDegraded,
			Message: "heap memory usage high",
		}
	}

	return HealthStatus{
		Status: StatusHealthy,
	}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasUnhealthy := false
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
