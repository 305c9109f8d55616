package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLoginFailed AuditAction = "LOGIN_FAILED"

	AuditActionFileUpload AuditAction = "FILE_UPLOAD"
	AuditActionFileExpire AuditAction = "FILE_EXPIRE"

	AuditActionAnalysisStart    AuditAction = "ANALYSIS_START"
	AuditActionAnalysisComplete AuditAction = "ANALYSIS_COMPLETE"
	AuditActionAnalysisFailed   AuditAction = "ANALYSIS_FAILED"

	AuditActionEstimate AuditAction = "ESTIMATE"
	AuditActionExport   AuditAction = "EXPORT"

	AuditActionAPIRequest AuditAction = "API_REQUEST"
	AuditActionAPIError   AuditAction = "API_ERROR"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	Username   string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	JobID      string
	Success    bool
	Error      string
	Duration   int64 // ms
	Method     string
	Path       string
	StatusCode int
}

var auditLogger = globalLogger.With().Str("log_type", "audit").Logger()

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.JobID == "" {
		event.JobID = GetJobID(ctx)
	}
	if event.Username == "" {
		event.Username = GetUsername(ctx)
	}

	var logEvent *zerolog.Event
	if event.Success {
		logEvent = auditLogger.Info()
	} else {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.Username != "" {
		logEvent.Str("username", event.Username)
	}
	if event.ClientIP != "" {
		logEvent.Str("client_ip", event.ClientIP)
	}
	if event.JobID != "" {
		logEvent.Str("job_id", event.JobID)
	}
	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}
	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}
	if event.Method != "" {
		logEvent.Str("method", event.Method)
	}
	if event.Path != "" {
		logEvent.Str("path", event.Path)
	}
	if event.StatusCode > 0 {
		logEvent.Int("status_code", event.StatusCode)
	}
	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, clientIP string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   "api",
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    success,
	})
}

// AuditAnalysis logs the outcome of a document or CSV analysis
func AuditAnalysis(ctx context.Context, source, resourceID string, err error, duration time.Duration) {
	event := AuditEvent{
		Action:     AuditActionAnalysisComplete,
		Resource:   source,
		ResourceID: resourceID,
		Success:    err == nil,
		Duration:   duration.Milliseconds(),
	}
	if err != nil {
		event.Action = AuditActionAnalysisFailed
		event.Error = err.Error()
	}
	Audit(ctx, event)
}
