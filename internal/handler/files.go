package handler

import (
	"net/http"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/gin-gonic/gin"
)

// FilesHandler serve os uploads do storage local para o Document Intelligence
type FilesHandler struct {
	storage *repository.LocalStorage
}

// NewFilesHandler cria o handler de arquivos
func NewFilesHandler(storage *repository.LocalStorage) *FilesHandler {
	return &FilesHandler{storage: storage}
}

// Serve GET /files/*path
func (h *FilesHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Error:   "arquivo não encontrado",
		})
		return
	}

	exists, err := h.storage.Exists(c.Request.Context(), key)
	if err != nil {
		logger.FromGin(c).Error().Err(err).Str("key", key).Msg("Erro ao consultar arquivo")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "erro ao ler arquivo",
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Error:   "arquivo não encontrado",
		})
		return
	}

	c.File(h.storage.Path(key))
}
