// Package app monta as dependências compartilhadas entre o servidor e a CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/task-estimation-api/internal/cache"
	"github.com/cleberrangel/task-estimation-api/internal/client"
	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/cleberrangel/task-estimation-api/internal/database"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/migration"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/prompt"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/cleberrangel/task-estimation-api/internal/service"
)

// NewDocIntel cria o cliente do Document Intelligence a partir da configuração
func NewDocIntel(cfg *config.Config) *client.DocIntelClient {
	return client.NewDocIntelClient(client.DocIntelConfig{
		Endpoint:        cfg.DocIntelEndpoint,
		APIKey:          cfg.DocIntelAPIKey,
		Model:           cfg.DocIntelModel,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
	})
}

// NewCompleter escolhe o provedor de completion conforme LLM_PROVIDER
func NewCompleter(ctx context.Context, cfg *config.Config) (service.Completer, error) {
	sampling := model.Sampling{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}

	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return client.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, sampling)
	case config.ProviderAzure:
		return client.NewCompletionClient(client.CompletionConfig{
			Endpoint: cfg.OpenAIEndpoint,
			APIKey:   cfg.OpenAIAPIKey,
			Sampling: sampling,
		}, nil), nil
	default:
		return nil, fmt.Errorf("LLM_PROVIDER inválido: %q", cfg.LLMProvider)
	}
}

// LoadPrompts usa PROMPTS_FILE quando configurado, senão os templates embutidos
func LoadPrompts(cfg *config.Config) (*prompt.Set, error) {
	if cfg.PromptsFile != "" {
		return prompt.LoadFile(cfg.PromptsFile)
	}
	return prompt.Default()
}

// Catalog tabelas do PostgreSQL: perfis e diárias, funcionários
type Catalog struct {
	DB        *sql.DB
	Rates     *repository.RateRepository
	Employees *repository.EmployeeRepository
}

// OpenCatalog conecta ao PostgreSQL e aplica as migrations.
// Retorna nil, nil quando DATABASE_URL não está configurada.
func OpenCatalog(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	if !cfg.DatabaseEnabled() {
		logger.Get(ctx).Info().Msg("DATABASE_URL vazia, estimativas sem catálogo de perfis nem funcionários")
		return nil, nil
	}

	db, err := database.Connect(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	if err := migration.NewMigrator(db).Run(ctx); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("aplicar migrations: %w", err)
	}
	return &Catalog{
		DB:        db,
		Rates:     repository.NewRateRepository(db),
		Employees: repository.NewEmployeeRepository(db),
	}, nil
}

// NewSearch cria o cliente da base de conhecimento ou nil quando não configurada
func NewSearch(cfg *config.Config) *client.SearchClient {
	if !cfg.SearchEnabled() {
		return nil
	}
	return client.NewSearchClient(client.SearchConfig{
		Endpoint: cfg.SearchEndpoint,
		APIKey:   cfg.SearchAPIKey,
		Index:    cfg.SearchIndex,
		Top:      cfg.SearchTop,
	}, nil)
}

// Services dependências do fluxo de análise
type Services struct {
	DB        *sql.DB
	DocIntel  *client.DocIntelClient
	Completer service.Completer
	Prompts   *prompt.Set
	Search    *client.SearchClient
	TextCache *cache.Cache[string]
	Analysis  *service.AnalysisService
	Staffing  *service.StaffingService
}

// Close libera o cache e a conexão com o banco
func (s *Services) Close() {
	if s.TextCache != nil {
		s.TextCache.Stop()
	}
	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			logger.Global().Warn().Err(err).Msg("Erro ao fechar banco")
		}
	}
}

// NewServices monta o AnalysisService. stager pode ser nil (CLI).
func NewServices(ctx context.Context, cfg *config.Config, stager service.Stager) (*Services, error) {
	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	prompts, err := LoadPrompts(cfg)
	if err != nil {
		return nil, fmt.Errorf("carregar prompts: %w", err)
	}
	catalog, err := OpenCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Services{
		DocIntel:  NewDocIntel(cfg),
		Completer: completer,
		Prompts:   prompts,
		Search:    NewSearch(cfg),
		TextCache: cache.NewCache[string](cfg.ExtractionCacheTTL),
		Staffing:  service.NewStaffingService(nil),
	}

	opts := []service.AnalysisOption{service.WithTextCache(s.TextCache)}
	if catalog != nil {
		s.DB = catalog.DB
		s.Staffing = service.NewStaffingService(catalog.Employees)
		opts = append(opts, service.WithRates(catalog.Rates))
	}
	if s.Search != nil {
		opts = append(opts, service.WithSearch(s.Search))
	}
	if stager != nil {
		opts = append(opts, service.WithStager(stager))
	}
	s.Analysis = service.NewAnalysisService(s.DocIntel, s.Completer, s.Prompts, opts...)
	return s, nil
}
