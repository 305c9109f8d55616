package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/cache"
	"github.com/cleberrangel/task-estimation-api/internal/client"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/prompt"
)

// ErrMissingInput estimativa sem pdf_url nem texto
var ErrMissingInput = errors.New("informe pdf_url ou text")

// DocumentAnalyzer extrai texto de PDFs (Azure Document Intelligence)
type DocumentAnalyzer interface {
	SubmitAndAwaitWithProgress(ctx context.Context, sourceURL string, progress client.ProgressFunc) (string, error)
	SubmitDocumentAndAwait(ctx context.Context, document io.Reader, progress client.ProgressFunc) (string, error)
}

// Completer envia prompts ao modelo de linguagem
type Completer interface {
	Ask(ctx context.Context, instruction, contextText string) (string, error)
	Complete(ctx context.Context, text string, sampling model.Sampling) (string, error)
}

// RateLister fornece o catálogo de perfis e diárias
type RateLister interface {
	ListRates(ctx context.Context) ([]model.RoleRate, error)
}

// TaskSearcher busca tasks de projetos anteriores parecidas com a consulta
type TaskSearcher interface {
	Search(ctx context.Context, query string) ([]model.ReferenceTask, error)
}

// Stager grava uploads num storage que gera URLs acessíveis pelo Azure
type Stager interface {
	Stage(ctx context.Context, filename string, data []byte) (*StagedFile, error)
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// AnalysisService liga extração de texto, prompts e o modelo de linguagem
type AnalysisService struct {
	analyzer DocumentAnalyzer
	llm      Completer
	prompts  *prompt.Set
	texts    *cache.Cache[string]
	rates    RateLister
	search   TaskSearcher
	stager   Stager
	metrics  *metrics.Metrics
}

// AnalysisOption configura dependências opcionais
type AnalysisOption func(*AnalysisService)

// WithTextCache reaproveita textos já extraídos
func WithTextCache(c *cache.Cache[string]) AnalysisOption {
	return func(s *AnalysisService) { s.texts = c }
}

// WithRates inclui o catálogo de diárias no prompt de estimativa
func WithRates(r RateLister) AnalysisOption {
	return func(s *AnalysisService) { s.rates = r }
}

// WithSearch inclui tasks de referência da base de conhecimento no prompt de estimativa
func WithSearch(ts TaskSearcher) AnalysisOption {
	return func(s *AnalysisService) { s.search = ts }
}

// WithStager envia PDFs enviados por upload via URL do storage
func WithStager(st Stager) AnalysisOption {
	return func(s *AnalysisService) { s.stager = st }
}

// WithMetrics troca a instância global de métricas
func WithMetrics(m *metrics.Metrics) AnalysisOption {
	return func(s *AnalysisService) { s.metrics = m }
}

// NewAnalysisService cria o serviço de análise
func NewAnalysisService(analyzer DocumentAnalyzer, llm Completer, prompts *prompt.Set, opts ...AnalysisOption) *AnalysisService {
	s := &AnalysisService{
		analyzer: analyzer,
		llm:      llm,
		prompts:  prompts,
		metrics:  metrics.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractText extrai o texto de um PDF público. Erros vêm como *model.ExtractionError.
func (s *AnalysisService) ExtractText(ctx context.Context, pdfURL string, progress client.ProgressFunc) (string, error) {
	key := "url:" + pdfURL
	if text, ok := s.cached(key); ok {
		logger.Get(ctx).Debug().Str("pdf_url", pdfURL).Msg("Texto do PDF vindo do cache")
		return text, nil
	}

	text, err := s.extract(ctx, pdfURL, progress, func(p client.ProgressFunc) (string, error) {
		return s.analyzer.SubmitAndAwaitWithProgress(ctx, pdfURL, p)
	})
	if err != nil {
		return "", err
	}
	s.store(key, text)
	return text, nil
}

// ExtractUploadedText extrai o texto de um PDF enviado por upload.
// Com storage configurado o arquivo vai por URL; sem URL pública os bytes vão no corpo.
func (s *AnalysisService) ExtractUploadedText(ctx context.Context, filename string, data []byte, progress client.ProgressFunc) (string, error) {
	sum := sha256.Sum256(data)
	key := "sha256:" + hex.EncodeToString(sum[:])
	if text, ok := s.cached(key); ok {
		return text, nil
	}

	source := filename
	text, err := s.extract(ctx, source, progress, func(p client.ProgressFunc) (string, error) {
		if url, staged, ok := s.stageForURL(ctx, filename, data); ok {
			defer func() {
				if err := s.stager.Remove(ctx, staged); err != nil {
					logger.Get(ctx).Warn().Err(err).Str("key", staged).Msg("Arquivo fica para a limpeza periódica")
				}
			}()
			return s.analyzer.SubmitAndAwaitWithProgress(ctx, url, p)
		}
		return s.analyzer.SubmitDocumentAndAwait(ctx, bytes.NewReader(data), p)
	})
	if err != nil {
		return "", err
	}
	s.store(key, text)
	return text, nil
}

// stageForURL grava o upload e devolve a URL do storage, quando existir
func (s *AnalysisService) stageForURL(ctx context.Context, filename string, data []byte) (string, string, bool) {
	if s.stager == nil {
		return "", "", false
	}
	log := logger.Get(ctx)

	staged, err := s.stager.Stage(ctx, filename, data)
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao gravar upload, enviando bytes diretamente")
		return "", "", false
	}
	url, err := s.stager.URL(ctx, staged.Key)
	if err != nil {
		log.Debug().Err(err).Msg("Storage sem URL pública, enviando bytes diretamente")
		_ = s.stager.Remove(ctx, staged.Key)
		return "", "", false
	}
	return url, staged.Key, true
}

func (s *AnalysisService) extract(ctx context.Context, source string, progress client.ProgressFunc, run func(client.ProgressFunc) (string, error)) (string, error) {
	start := time.Now()
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionAnalysisStart,
		Resource:   "pdf",
		ResourceID: source,
		Success:    true,
	})
	s.metrics.AnalysisStarted()

	observe := func(job model.AnalysisJob) {
		s.metrics.IncrementPolls()
		if progress != nil {
			progress(job)
		}
	}

	text, err := run(observe)
	s.metrics.AnalysisFinished(err == nil)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("source", source).Msg("Falha na extração de texto do PDF")
		logger.AuditAnalysis(ctx, "pdf", source, err, time.Since(start))
		return "", &model.ExtractionError{Err: err}
	}

	logger.Get(ctx).Info().
		Str("source", source).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Texto do PDF extraído")
	return text, nil
}

// AnalyzePDF extrai o texto do PDF e pergunta sobre o projeto
func (s *AnalysisService) AnalyzePDF(ctx context.Context, pdfURL string, progress client.ProgressFunc) (*model.AnalysisResult, error) {
	text, err := s.ExtractText(ctx, pdfURL, progress)
	if err != nil {
		return nil, err
	}
	return s.ask(ctx, "pdf", pdfURL, s.prompts.ProjectSummary, text)
}

// AnalyzeUploadedPDF igual a AnalyzePDF para um arquivo enviado
func (s *AnalysisService) AnalyzeUploadedPDF(ctx context.Context, filename string, data []byte, progress client.ProgressFunc) (*model.AnalysisResult, error) {
	text, err := s.ExtractUploadedText(ctx, filename, data, progress)
	if err != nil {
		return nil, err
	}
	return s.ask(ctx, "pdf", filename, s.prompts.ProjectSummary, text)
}

// AnalyzeCSV lê um upload CSV/XLSX e pede os principais insights
func (s *AnalysisService) AnalyzeCSV(ctx context.Context, filename string, data []byte) (*model.AnalysisResult, *model.CsvTable, error) {
	table, err := ReadTable(filename, data)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.AnalyzeTable(ctx, filename, table)
	if err != nil {
		return nil, table, err
	}
	return result, table, nil
}

// AnalyzeTable envia as linhas como JSON no contexto do prompt
func (s *AnalysisService) AnalyzeTable(ctx context.Context, source string, table *model.CsvTable) (*model.AnalysisResult, error) {
	rows, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("serializar linhas: %w", err)
	}

	start := time.Now()
	result, err := s.ask(ctx, "csv", source, s.prompts.CSVInsights, string(rows))
	logger.AuditAnalysis(ctx, "csv", source, err, time.Since(start))
	return result, err
}

func (s *AnalysisService) ask(ctx context.Context, kind, source, instruction, contextText string) (*model.AnalysisResult, error) {
	start := time.Now()
	answer, err := s.llm.Ask(ctx, instruction, contextText)
	s.metrics.IncrementCompletion(err == nil, time.Since(start).Milliseconds())
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("kind", kind).Msg("Falha na chamada ao modelo")
		return nil, err
	}
	return &model.AnalysisResult{Answer: answer, Source: source}, nil
}

// Estimate gera o documento list_of_all_tasks para um PDF ou texto
func (s *AnalysisService) Estimate(ctx context.Context, req model.EstimateRequest, progress client.ProgressFunc) (*model.AnswerDocument, error) {
	log := logger.Get(ctx)

	text := strings.TrimSpace(req.Text)
	if req.PDFURL != "" {
		extracted, err := s.ExtractText(ctx, req.PDFURL, progress)
		if err != nil {
			s.metrics.IncrementEstimate(false)
			return nil, err
		}
		text = extracted
	}
	if text == "" {
		return nil, ErrMissingInput
	}

	rates := s.listRates(ctx)
	references := s.referenceTasks(ctx, text, req.Requirements)
	instruction, err := s.prompts.Estimation(req.Requirements, rates, references)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := s.llm.Complete(ctx, prompt.Compose(text, instruction), model.EstimationSampling)
	s.metrics.IncrementCompletion(err == nil, time.Since(start).Milliseconds())
	if err != nil {
		s.metrics.IncrementEstimate(false)
		log.Error().Err(err).Msg("Falha ao gerar estimativa")
		return nil, err
	}

	doc, err := ParseAnswer([]byte(reply))
	s.metrics.IncrementEstimate(err == nil)
	if err != nil {
		log.Warn().Err(err).Str("reply", truncateText(reply, 300)).Msg("Resposta do modelo não é um documento de estimativa válido")
		return nil, err
	}

	logger.Audit(ctx, logger.AuditEvent{
		Action:   logger.AuditActionEstimate,
		Resource: "estimate",
		Success:  true,
		Duration: time.Since(start).Milliseconds(),
		Details: map[string]interface{}{
			"tasks":      doc.Tasks().Len(),
			"roles":      len(rates),
			"references": len(references),
		},
	})
	return doc, nil
}

// listRates é opcional: falha no catálogo gera só um aviso
func (s *AnalysisService) listRates(ctx context.Context) []model.RoleRate {
	if s.rates == nil {
		return nil
	}
	rates, err := s.rates.ListRates(ctx)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Msg("Catálogo de diárias indisponível, estimando sem diárias")
		return nil
	}
	return rates
}

// referenceTasks pede ao modelo uma consulta e busca tasks parecidas no índice.
// É opcional como o catálogo: qualquer falha gera só um aviso.
func (s *AnalysisService) referenceTasks(ctx context.Context, text, requirements string) []model.ReferenceTask {
	if s.search == nil {
		return nil
	}
	log := logger.Get(ctx)

	start := time.Now()
	query, err := s.llm.Ask(ctx, s.prompts.SearchQuery, prompt.SearchContext(text, requirements))
	s.metrics.IncrementCompletion(err == nil, time.Since(start).Milliseconds())
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao gerar consulta de busca, estimando sem tasks de referência")
		return nil
	}
	query = strings.Trim(strings.TrimSpace(query), `"`)
	if query == "" {
		return nil
	}

	tasks, err := s.search.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", truncateText(query, 200)).Msg("Busca de tasks indisponível, estimando sem tasks de referência")
		return nil
	}
	log.Debug().Str("query", truncateText(query, 200)).Int("references", len(tasks)).Msg("Tasks de referência encontradas")
	return tasks
}

func (s *AnalysisService) cached(key string) (string, bool) {
	if s.texts == nil {
		return "", false
	}
	return s.texts.Get(key)
}

func (s *AnalysisService) store(key, text string) {
	if s.texts != nil {
		s.texts.Set(key, text)
	}
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
