package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/client"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/middleware"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/cleberrangel/task-estimation-api/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// asyncTimeout limite das análises entregues por webhook
const asyncTimeout = 5 * time.Minute

// Analyzer operações de análise usadas pelos handlers
type Analyzer interface {
	AnalyzePDF(ctx context.Context, pdfURL string, progress client.ProgressFunc) (*model.AnalysisResult, error)
	AnalyzeUploadedPDF(ctx context.Context, filename string, data []byte, progress client.ProgressFunc) (*model.AnalysisResult, error)
	AnalyzeCSV(ctx context.Context, filename string, data []byte) (*model.AnalysisResult, *model.CsvTable, error)
	Estimate(ctx context.Context, req model.EstimateRequest, progress client.ProgressFunc) (*model.AnswerDocument, error)
}

// ProgressNotifier envia progresso para o navegador (websocket.Hub)
type ProgressNotifier interface {
	SendProgress(sessionID string, progress websocket.ProgressUpdate)
}

// WebhookSender entrega resultados assíncronos
type WebhookSender interface {
	SendAnswer(ctx context.Context, webhookURL string, result *model.AnalysisResult) error
	SendError(ctx context.Context, webhookURL string, message string) error
}

// AnalyzeHandler manipula as análises de PDF e CSV
type AnalyzeHandler struct {
	analyzer Analyzer
	uploads  *service.UploadService
	progress ProgressNotifier
	webhooks WebhookSender
}

// NewAnalyzeHandler cria um novo handler de análises
func NewAnalyzeHandler(analyzer Analyzer, uploads *service.UploadService, progress ProgressNotifier, webhooks WebhookSender) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		uploads:  uploads,
		progress: progress,
		webhooks: webhooks,
	}
}

// pdfJob descreve uma análise de PDF já validada
type pdfJob struct {
	url        string
	filename   string
	data       []byte
	sessionID  string
	webhookURL string
}

func (j pdfJob) source() string {
	if j.url != "" {
		return j.url
	}
	return j.filename
}

// AnalyzePDF extrai o texto de um PDF e pergunta sobre o projeto
// @Summary      Analisa um PDF
// @Description  Aceita JSON {pdf_url, session_id, webhook_url} ou multipart com o campo file
// @Tags         analyze
// @Accept       json,multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} model.Response
// @Success      202 {object} model.Response "Quando webhook_url é fornecido"
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/v1/analyze/pdf [post]
func (h *AnalyzeHandler) AnalyzePDF(c *gin.Context) {
	job, ok := h.bindPDFJob(c)
	if !ok {
		return
	}

	log := logger.FromGin(c)
	log.Info().
		Str("source", job.source()).
		Bool("upload", job.data != nil).
		Bool("webhook", job.webhookURL != "").
		Msg("Iniciando análise de PDF")

	if job.data != nil {
		h.notify(job.sessionID, websocket.ProgressUpdate{Stage: websocket.StageUploaded, Message: job.filename})
	}

	// Se webhook_url foi fornecido, processa de forma assíncrona
	if job.webhookURL != "" {
		ctx := context.WithoutCancel(c.Request.Context())
		go h.processAsync(ctx, job)

		c.JSON(http.StatusAccepted, model.Response{Success: true})
		return
	}

	result, attempts, err := h.runPDF(c.Request.Context(), job)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    result,
		Meta:    &model.Meta{Attempts: attempts},
	})
}

// bindPDFJob lê o corpo JSON ou multipart
func (h *AnalyzeHandler) bindPDFJob(c *gin.Context) (pdfJob, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		filename, data, ok := h.readFile(c)
		if !ok {
			return pdfJob{}, false
		}
		if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Error:   "formato não suportado",
				Details: "envie um arquivo PDF",
			})
			return pdfJob{}, false
		}
		sessionID, ok := canonicalSession(c, c.PostForm("session_id"))
		job := pdfJob{
			filename:   filename,
			data:       data,
			sessionID:  sessionID,
			webhookURL: c.PostForm("webhook_url"),
		}
		return job, ok
	}

	var req model.AnalyzePDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return pdfJob{}, false
	}
	sessionID, ok := canonicalSession(c, req.SessionID)
	job := pdfJob{url: req.PDFURL, sessionID: sessionID, webhookURL: req.WebhookURL}
	return job, ok
}

// runPDF devolve também quantas consultas de status o job precisou
func (h *AnalyzeHandler) runPDF(ctx context.Context, job pdfJob) (*model.AnalysisResult, int, error) {
	notify := h.progressFunc(job.sessionID)
	attempts := 0
	progress := func(j model.AnalysisJob) {
		attempts = j.Attempts
		notify(j)
	}

	var (
		result *model.AnalysisResult
		err    error
	)
	if job.data != nil {
		result, err = h.analyzer.AnalyzeUploadedPDF(ctx, job.filename, job.data, progress)
	} else {
		result, err = h.analyzer.AnalyzePDF(ctx, job.url, progress)
	}

	if err != nil {
		h.notify(job.sessionID, websocket.ProgressUpdate{Stage: websocket.StageFailed, Message: userMessage(err)})
		return nil, attempts, err
	}
	h.notify(job.sessionID, websocket.ProgressUpdate{Stage: websocket.StageDone})
	return result, attempts, nil
}

// processAsync processa a análise e envia o resultado para o webhook
func (h *AnalyzeHandler) processAsync(parent context.Context, job pdfJob) {
	ctx, cancel := context.WithTimeout(parent, asyncTimeout)
	defer cancel()

	log := logger.Get(ctx)
	log.Info().Str("webhook_url", job.webhookURL).Msg("Processando análise para webhook")

	result, _, err := h.runPDF(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("Erro na análise assíncrona")
		if webhookErr := h.webhooks.SendError(ctx, job.webhookURL, userMessage(err)); webhookErr != nil {
			log.Error().Err(webhookErr).Msg("Erro ao enviar webhook de erro")
		}
		return
	}

	if err := h.webhooks.SendAnswer(ctx, job.webhookURL, result); err != nil {
		log.Error().Err(err).Msg("Erro ao enviar webhook de sucesso")
	}
}

// AnalyzeCSV pede os principais insights de um CSV ou XLSX
// @Summary      Analisa um CSV
// @Tags         analyze
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/v1/analyze/csv [post]
func (h *AnalyzeHandler) AnalyzeCSV(c *gin.Context) {
	filename, data, ok := h.readFile(c)
	if !ok {
		return
	}

	result, table, err := h.analyzer.AnalyzeCSV(c.Request.Context(), filename, data)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    result,
		Meta:    &model.Meta{TotalRows: len(table.Rows)},
	})
}

// Estimate gera o documento de estimativa para um PDF ou texto
// @Summary      Gera a estimativa de tasks
// @Tags         estimate
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body model.EstimateRequest true "pdf_url ou text"
// @Success      200 {object} model.AnswerDocument
// @Failure      400 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/v1/estimate [post]
func (h *AnalyzeHandler) Estimate(c *gin.Context) {
	var req model.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}
	sessionID, ok := canonicalSession(c, req.SessionID)
	if !ok {
		return
	}
	req.SessionID = sessionID

	progress := h.progressFunc(req.SessionID)
	if req.PDFURL == "" {
		h.notify(req.SessionID, websocket.ProgressUpdate{Stage: websocket.StageEstimating})
	}
	doc, err := h.analyzer.Estimate(c.Request.Context(), req, func(job model.AnalysisJob) {
		progress(job)
		if job.State == model.AnalysisSucceeded {
			h.notify(req.SessionID, websocket.ProgressUpdate{Stage: websocket.StageEstimating, JobID: job.ID})
		}
	})
	if err != nil {
		h.notify(req.SessionID, websocket.ProgressUpdate{Stage: websocket.StageFailed, Message: userMessage(err)})
		h.handleError(c, err)
		return
	}
	h.notify(req.SessionID, websocket.ProgressUpdate{Stage: websocket.StageDone})

	c.Header("X-Total-Tasks", strconv.Itoa(doc.Tasks().Len()))
	c.JSON(http.StatusOK, doc)
}

// readFile lê o campo file do formulário com nome sanitizado
func (h *AnalyzeHandler) readFile(c *gin.Context) (string, []byte, bool) {
	log := logger.FromGin(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("Erro ao obter arquivo do formulário")
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "arquivo não encontrado no formulário",
			Details: "use o campo 'file' para enviar o arquivo",
		})
		return "", nil, false
	}
	defer file.Close()

	filename := middleware.SanitizeFilename(header.Filename)
	data, err := h.uploads.ReadUpload(filename, file, header.Size)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Upload rejeitado")
		h.handleError(c, err)
		return "", nil, false
	}
	return filename, data, true
}

// progressFunc traduz cada poll do job em mensagem para a sessão
func (h *AnalyzeHandler) progressFunc(sessionID string) client.ProgressFunc {
	return func(job model.AnalysisJob) {
		h.notify(sessionID, websocket.JobProgress(job))
	}
}

func (h *AnalyzeHandler) notify(sessionID string, update websocket.ProgressUpdate) {
	if h.progress == nil || sessionID == "" {
		return
	}
	h.progress.SendProgress(sessionID, update)
}

// canonicalSession aceita vazio ou um UUID e devolve a forma canônica
// usada como chave no hub do /ws
func canonicalSession(c *gin.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", true
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "session_id inválido",
			Details: "use o UUID gerado pela página",
		})
		return "", false
	}
	return id.String(), true
}

// userMessage mensagem segura para o usuário final
func userMessage(err error) string {
	if model.IsExtractionError(err) {
		return model.PDFFailureMessage
	}
	return err.Error()
}

// handleError trata erros e retorna resposta apropriada
func (h *AnalyzeHandler) handleError(c *gin.Context, err error) {
	logger.FromGin(c).Error().Err(err).Msg("Erro ao processar análise")

	var (
		malformed *model.MalformedCsvError
		invalid   *model.InvalidEstimateError
		request   *model.RequestError
	)

	// timeout vence qualquer etapa, inclusive a extração
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, model.ErrorResponse{
			Success: false,
			Error:   "timeout na requisição",
		})
	case model.IsExtractionError(err):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Error:   model.PDFFailureMessage,
		})
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
			Success: false,
			Error:   "arquivo muito grande",
			Details: "o limite máximo é 10MB",
		})
	case errors.Is(err, service.ErrEmptyFile), errors.Is(err, model.ErrEmptyCSV):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "arquivo vazio",
			Details: "o arquivo não contém dados",
		})
	case errors.Is(err, service.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "formato não suportado",
			Details: "apenas arquivos PDF, CSV e XLSX são aceitos",
		})
	case errors.Is(err, service.ErrInvalidFile), errors.Is(err, service.ErrNoColumns):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "arquivo inválido",
			Details: err.Error(),
		})
	case errors.As(err, &malformed):
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{
			Success: false,
			Error:   "CSV malformado",
			Details: err.Error(),
		})
	case errors.Is(err, service.ErrMissingInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "payload inválido",
			Details: err.Error(),
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Error:   "resposta do modelo inválida",
			Details: err.Error(),
		})
	case errors.Is(err, model.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, model.ErrorResponse{
			Success: false,
			Error:   "rate limit excedido",
			Details: "aguarde alguns segundos e tente novamente",
		})
	case errors.As(err, &request), errors.Is(err, model.ErrEmptyCompletion):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Error:   "falha ao consultar o modelo",
			Details: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "erro interno",
			Details: err.Error(),
		})
	}
}
