package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/gin-gonic/gin"
)

// Formatos de saída do documento de estimativa
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const pageTitle = "Estimativa do projeto"

// ExportHandler serve o answer.json local e converte documentos enviados
type ExportHandler struct {
	answerPath string
	excel      *service.ExcelGenerator
}

// NewExportHandler cria um novo handler de exportação
func NewExportHandler(answerPath string) *ExportHandler {
	return &ExportHandler{
		answerPath: answerPath,
		excel:      service.NewExcelGenerator(),
	}
}

// GetAnswer devolve o documento local no formato pedido
// @Summary      Documento de estimativa local
// @Tags         export
// @Produce      json,text/html,text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        format query string false "json, html, csv ou xlsx"
// @Success      200 {object} model.AnswerDocument
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/v1/answer [get]
func (h *ExportHandler) GetAnswer(c *gin.Context) {
	format, ok := parseFormat(c, FormatJSON, FormatHTML, FormatCSV, FormatXLSX)
	if !ok {
		return
	}

	doc, ok := loadLocalAnswer(c, h.answerPath)
	if !ok {
		return
	}
	h.write(c, format, doc)
}

// loadLocalAnswer lê o answer.json local e responde 404/500 quando não consegue
func loadLocalAnswer(c *gin.Context, path string) (*model.AnswerDocument, bool) {
	log := logger.FromGin(c)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Success: false,
				Error:   "documento de estimativa não encontrado",
				Details: "verifique ANSWER_PATH",
			})
			return nil, false
		}
		log.Error().Err(err).Str("path", path).Msg("Erro ao abrir documento")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "erro ao ler documento",
		})
		return nil, false
	}
	defer f.Close()

	doc, err := service.LoadAnswer(f)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Documento local inválido")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "documento de estimativa inválido",
			Details: err.Error(),
		})
		return nil, false
	}
	return doc, true
}

// Export converte o documento enviado no corpo
// @Summary      Exporta um documento de estimativa
// @Tags         export
// @Accept       json
// @Produce      text/html,text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        format query string true "html, csv ou xlsx"
// @Success      200 {file} binary
// @Failure      400 {object} model.ErrorResponse
// @Router       /api/v1/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	format, ok := parseFormat(c, FormatHTML, FormatCSV, FormatXLSX)
	if !ok {
		return
	}

	doc, err := service.LoadAnswer(c.Request.Body)
	if err != nil {
		logger.FromGin(c).Warn().Err(err).Msg("Documento enviado inválido")
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "documento de estimativa inválido",
			Details: err.Error(),
		})
		return
	}

	h.write(c, format, doc)
}

func (h *ExportHandler) write(c *gin.Context, format string, doc *model.AnswerDocument) {
	tasks := doc.Tasks()
	c.Header("X-Total-Tasks", strconv.Itoa(tasks.Len()))

	switch format {
	case FormatJSON:
		c.JSON(http.StatusOK, doc)
		return

	case FormatHTML:
		var buf bytes.Buffer
		if err := service.WritePage(&buf, pageTitle, tasks); err != nil {
			h.renderError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())

	case FormatCSV:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.ExportFilename()))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(service.ToCSV(tasks)))

	case FormatXLSX:
		buf, err := h.excel.Generate(tasks)
		if err != nil {
			h.renderError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.XLSXFilename()))
		c.Header("Content-Length", strconv.Itoa(buf.Len()))
		c.Data(http.StatusOK, service.XLSXContentType(), buf.Bytes())
	}

	metrics.Get().IncrementExport(format)
	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionExport,
		Resource: "estimate",
		ClientIP: c.ClientIP(),
		Success:  true,
		Details: map[string]interface{}{
			"format": format,
			"tasks":  tasks.Len(),
		},
	})
}

func (h *ExportHandler) renderError(c *gin.Context, err error) {
	logger.FromGin(c).Error().Err(err).Msg("Erro ao gerar exportação")
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{
		Success: false,
		Error:   "erro ao gerar arquivo",
		Details: err.Error(),
	})
}

// parseFormat lê ?format=, usando o primeiro permitido como padrão
func parseFormat(c *gin.Context, allowed ...string) (string, bool) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", allowed[0])))
	for _, a := range allowed {
		if format == a {
			return format, true
		}
	}
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Error:   "formato inválido",
		Details: "use " + strings.Join(allowed, ", "),
	})
	return "", false
}
