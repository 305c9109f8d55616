package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/app"
	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/cleberrangel/task-estimation-api/internal/handler"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/middleware"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/cleberrangel/task-estimation-api/internal/web"
	"github.com/cleberrangel/task-estimation-api/internal/websocket"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const Version = "2.0.0"

const shutdownTimeout = 15 * time.Second

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	logger.InitAudit()
	metrics.Init()
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("llm_provider", cfg.LLMProvider).
		Str("storage", cfg.StorageType).
		Bool("rates_db", cfg.DatabaseEnabled()).
		Bool("knowledge_base", cfg.SearchEnabled()).
		Msg("Task Estimation API iniciando")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Servidor encerrado com erro")
	}
	log.Info().Msg("Servidor encerrado")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Global()

	// Inicializa dependências
	storage, err := repository.NewFileStorage(ctx, cfg)
	if err != nil {
		return err
	}
	uploads := service.NewUploadService(storage)

	services, err := app.NewServices(ctx, cfg, uploads)
	if err != nil {
		return err
	}
	defer services.Close()

	hub := websocket.NewHub()
	webhooks := service.NewWebhookService(nil)

	analyzeHandler := handler.NewAnalyzeHandler(services.Analysis, uploads, hub, webhooks)
	exportHandler := handler.NewExportHandler(cfg.AnswerPath)
	staffingHandler := handler.NewStaffingHandler(services.Staffing, cfg.AnswerPath)
	healthHandler := handler.NewHealthHandler(Version, handler.HealthOptions{
		DB:         services.DB,
		Hub:        hub,
		TextCache:  services.TextCache,
		DocIntel:   cfg.DocIntelConfigured(),
		Completion: cfg.CompletionConfigured(),
		Search:     cfg.SearchEnabled(),
	})

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	// Inicializa router
	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())

	// Página (basic auth quando BASIC_AUTH_USERS estiver configurado)
	r.GET("/", middleware.BasicAuth(cfg.BasicAuthUsers), web.Index)

	// Health e métricas (públicos)
	r.GET("/health", healthHandler.DetailedHealthCheck)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)
	r.GET("/metrics", healthHandler.GetMetrics)
	r.GET("/metrics/endpoints", healthHandler.GetEndpointMetrics)

	// Progresso das análises
	r.GET("/ws", websocket.SessionMiddleware(), hub.ServeWS)

	// Uploads servidos ao Document Intelligence
	if local, ok := storage.(*repository.LocalStorage); ok {
		r.GET("/files/*path", handler.NewFilesHandler(local).Serve)
	}

	// Grupo de rotas protegidas
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(middleware.AuthConfig{
		TokenAPI: cfg.TokenAPI,
		Users:    cfg.BasicAuthUsers,
	}))
	api.Use(middleware.AuditMiddleware("/api/v1"))
	{
		api.POST("/analyze/pdf", analyzeHandler.AnalyzePDF)
		api.POST("/analyze/csv", analyzeHandler.AnalyzeCSV)
		api.POST("/estimate", analyzeHandler.Estimate)
		api.GET("/answer", exportHandler.GetAnswer)
		api.POST("/export", exportHandler.Export)
		api.GET("/employees/available", staffingHandler.AvailableForAnswer)
		api.POST("/employees/available", staffingHandler.AvailableForDocument)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return uploads.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Encerrando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
