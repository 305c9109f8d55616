package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmployeeFinder struct {
	employees []model.AvailableEmployee
	err       error
	roles     [][]string
}

func (f *fakeEmployeeFinder) ListAvailable(_ context.Context, roles []string) ([]model.AvailableEmployee, error) {
	f.roles = append(f.roles, roles)
	return f.employees, f.err
}

func setupStaffingRouter(t *testing.T, staffing StaffingFinder, answer string) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.json")
	if answer != "" {
		require.NoError(t, os.WriteFile(path, []byte(answer), 0o644))
	}

	h := NewStaffingHandler(staffing, path)
	router := gin.New()
	router.GET("/api/v1/employees/available", h.AvailableForAnswer)
	router.POST("/api/v1/employees/available", h.AvailableForDocument)
	return router
}

type staffingResponse struct {
	Success bool           `json:"success"`
	Data    model.Staffing `json:"data"`
	Meta    model.Meta     `json:"meta"`
}

func TestAvailableEmployeesForPostedDocument(t *testing.T) {
	finder := &fakeEmployeeFinder{employees: []model.AvailableEmployee{
		{FirstName: "Ana", LastName: "Souza", Email: "ana@example.com", Role: "Backend"},
		{FirstName: "Caio", LastName: "Melo", Email: "caio@example.com", Role: "Frontend"},
	}}
	router := setupStaffingRouter(t, service.NewStaffingService(finder), "")

	w := postRaw(router, "/api/v1/employees/available", answerJSON)

	require.Equal(t, http.StatusOK, w.Code)
	var resp staffingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Backend", "Frontend"}, resp.Data.Roles)
	assert.Equal(t, finder.employees, resp.Data.Employees)
	assert.Equal(t, 2, resp.Meta.TotalRows)
	assert.Equal(t, [][]string{{"Backend", "Frontend"}}, finder.roles)
}

func TestAvailableEmployeesForLocalAnswer(t *testing.T) {
	finder := &fakeEmployeeFinder{}
	router := setupStaffingRouter(t, service.NewStaffingService(finder), answerJSON)

	w := get(router, "/api/v1/employees/available")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"Backend", "Frontend"}}, finder.roles)

	missing := setupStaffingRouter(t, service.NewStaffingService(finder), "")
	assert.Equal(t, http.StatusNotFound, get(missing, "/api/v1/employees/available").Code)
}

func TestAvailableEmployeesErrors(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		router := setupStaffingRouter(t, service.NewStaffingService(nil), answerJSON)
		w := postRaw(router, "/api/v1/employees/available", answerJSON)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "catálogo de funcionários indisponível", decodeError(t, w).Error)
	})

	t.Run("invalid document", func(t *testing.T) {
		router := setupStaffingRouter(t, service.NewStaffingService(&fakeEmployeeFinder{}), "")
		w := postRaw(router, "/api/v1/employees/available", `{"list_of_all_tasks": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("query failure", func(t *testing.T) {
		finder := &fakeEmployeeFinder{err: errors.New("db down")}
		router := setupStaffingRouter(t, service.NewStaffingService(finder), "")
		w := postRaw(router, "/api/v1/employees/available", answerJSON)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
