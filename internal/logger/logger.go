package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	LoggerKey    ctxKey = "logger"
	UsernameKey  ctxKey = "username"
	JobIDKey     ctxKey = "job_id"
	TraceIDKey   ctxKey = "trace_id"
)

// ServiceName identifica o serviço nos logs
const ServiceName = "task-estimation-api"

var globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init inicializa o logger global
func Init(level string, jsonFormat bool) {
	var output io.Writer = os.Stdout
	if !jsonFormat {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	InitWithWriter(level, output)
}

// InitWithWriter inicializa o logger global escrevendo em w
func InitWithWriter(level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	globalLogger = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	InitAudit()
}

// Global retorna o logger global
func Global() *zerolog.Logger {
	return &globalLogger
}

// Get retorna logger do contexto ou global
func Get(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok {
		return l
	}
	return &globalLogger
}

// FromGin extrai o logger do contexto Gin
func FromGin(c *gin.Context) *zerolog.Logger {
	return Get(c.Request.Context())
}

// WithRequestID adiciona request_id ao logger e contexto
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &l)
}

// WithTraceID adiciona um trace ID para rastreamento distribuído
func WithTraceID(ctx context.Context, traceID string) context.Context {
	l := Get(ctx).With().Str("trace_id", traceID).Logger()
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	return context.WithValue(ctx, LoggerKey, &l)
}

// WithUsername adiciona o usuário autenticado (basic auth) ao contexto
func WithUsername(ctx context.Context, username string) context.Context {
	l := Get(ctx).With().Str("username", username).Logger()
	ctx = context.WithValue(ctx, UsernameKey, username)
	return context.WithValue(ctx, LoggerKey, &l)
}

// WithJobID associa os logs seguintes a um job de análise
func WithJobID(ctx context.Context, jobID string) context.Context {
	l := Get(ctx).With().Str("job_id", jobID).Logger()
	ctx = context.WithValue(ctx, JobIDKey, jobID)
	return context.WithValue(ctx, LoggerKey, &l)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID extrai request_id do contexto
func GetRequestID(ctx context.Context) string { return value(ctx, RequestIDKey) }

// GetUsername extrai username do contexto
func GetUsername(ctx context.Context) string { return value(ctx, UsernameKey) }

// GetJobID extrai job_id do contexto
func GetJobID(ctx context.Context) string { return value(ctx, JobIDKey) }

// GetTraceID extrai trace_id do contexto
func GetTraceID(ctx context.Context) string { return value(ctx, TraceIDKey) }

// TraceContext retorna todas as informações de rastreamento do contexto
func TraceContext(ctx context.Context) map[string]string {
	return map[string]string{
		"request_id": GetRequestID(ctx),
		"trace_id":   GetTraceID(ctx),
		"username":   GetUsername(ctx),
		"job_id":     GetJobID(ctx),
	}
}
