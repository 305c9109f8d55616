package handler

import (
	"context"
	"net/http"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/gin-gonic/gin"
)

// StaffingFinder cruza os perfis de uma estimativa com funcionários livres
type StaffingFinder interface {
	Enabled() bool
	AvailableFor(ctx context.Context, doc *model.AnswerDocument) (*model.Staffing, error)
}

// StaffingHandler lista funcionários disponíveis para uma estimativa
type StaffingHandler struct {
	staffing   StaffingFinder
	answerPath string
}

// NewStaffingHandler cria um novo handler de funcionários
func NewStaffingHandler(staffing StaffingFinder, answerPath string) *StaffingHandler {
	return &StaffingHandler{staffing: staffing, answerPath: answerPath}
}

// AvailableForAnswer usa o answer.json local
// @Summary      Funcionários disponíveis para o documento local
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Failure      503 {object} model.ErrorResponse
// @Router       /api/v1/employees/available [get]
func (h *StaffingHandler) AvailableForAnswer(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	doc, ok := loadLocalAnswer(c, h.answerPath)
	if !ok {
		return
	}
	h.respond(c, doc)
}

// AvailableForDocument usa o documento enviado no corpo
// @Summary      Funcionários disponíveis para um documento de estimativa
// @Tags         employees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      503 {object} model.ErrorResponse
// @Router       /api/v1/employees/available [post]
func (h *StaffingHandler) AvailableForDocument(c *gin.Context) {
	if !h.enabled(c) {
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
	h.respond(c, doc)
}

func (h *StaffingHandler) enabled(c *gin.Context) bool {
	if h.staffing != nil && h.staffing.Enabled() {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
		Success: false,
		Error:   "catálogo de funcionários indisponível",
		Details: "configure DATABASE_URL",
	})
	return false
}

func (h *StaffingHandler) respond(c *gin.Context, doc *model.AnswerDocument) {
	staffing, err := h.staffing.AvailableFor(c.Request.Context(), doc)
	if err != nil {
		logger.FromGin(c).Error().Err(err).Msg("Erro ao consultar funcionários")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "erro ao consultar funcionários",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    staffing,
		Meta:    &model.Meta{TotalRows: len(staffing.Employees)},
	})
}
