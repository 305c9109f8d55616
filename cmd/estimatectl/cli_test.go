package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cleberrangel/task-estimation-api/internal/middleware"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleAnswer = `{"list_of_all_tasks": {
  "Setup": {"description": "CI; repo", "fitting_employees": [{"role": "DevOps", "count": 1}],
            "estimated_days": {"min": 1, "most_likely": 1.5, "max": 2}, "potential_issues": []},
  "API": {"description": "REST", "fitting_employees": [{"role": "Backend", "count": 2}],
          "estimated_days": {"min": 3, "most_likely": 5, "max": 8}, "potential_issues": ["auth"]}
}}`

// setupCLI writes the sample document and resets the shared flags
func setupCLI(t *testing.T) (*cobra.Command, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "answer.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleAnswer), 0o644))

	answerPath = path
	outputPath = ""
	exportFormat = "csv"
	pageTitle = "Project estimate"
	t.Cleanup(func() {
		answerPath = "answer.json"
		outputPath = ""
	})

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out, dir
}

func TestRenderCmd(t *testing.T) {
	cmd, out, _ := setupCLI(t)

	require.NoError(t, runRender(cmd, nil))

	html := out.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, `<div id="json-content">`)
	assert.Less(t, strings.Index(html, "Setup"), strings.Index(html, "API"))
}

func TestExportCSVCmd(t *testing.T) {
	cmd, out, _ := setupCLI(t)

	require.NoError(t, runExport(cmd, nil))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], `Setup;"CI; repo";`))
	assert.Contains(t, lines[2], ";3;5;8;")
}

func TestExportXLSXCmd(t *testing.T) {
	cmd, _, dir := setupCLI(t)
	exportFormat = "xlsx"
	outputPath = filepath.Join(dir, "out.xlsx")

	require.NoError(t, runExport(cmd, nil))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	assert.Equal(t, "Setup", rows[1][0])
	assert.Equal(t, "API", rows[2][0])
}

func TestExportErrors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		cmd, _, _ := setupCLI(t)
		exportFormat = "pdf"
		assert.ErrorContains(t, runExport(cmd, nil), "unknown format")
	})

	t.Run("missing document", func(t *testing.T) {
		cmd, _, dir := setupCLI(t)
		answerPath = filepath.Join(dir, "missing.json")
		assert.ErrorIs(t, runExport(cmd, nil), os.ErrNotExist)
	})

	t.Run("invalid document", func(t *testing.T) {
		cmd, _, dir := setupCLI(t)
		answerPath = filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(answerPath, []byte(`{"list_of_all_tasks": []}`), 0o644))
		assert.Error(t, runRender(cmd, nil))
	})
}

func TestParseRate(t *testing.T) {
	rate, err := parseRate(" Backend ", "850.5")
	require.NoError(t, err)
	assert.Equal(t, "Backend", rate.Role)
	assert.Equal(t, 850.5, rate.DailyRate)

	for _, tc := range []struct{ role, value string }{
		{"", "100"},
		{"QA", "abc"},
		{"QA", "-1"},
	} {
		_, err := parseRate(tc.role, tc.value)
		assert.Error(t, err, "%q %q", tc.role, tc.value)
	}
}

func TestHashPasswordCmd(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)
	t.Cleanup(func() { hashPasswordCmd.SetOut(nil) })

	require.NoError(t, hashPasswordCmd.RunE(hashPasswordCmd, []string{"s3cret"}))

	hash := strings.TrimSpace(out.String())
	assert.True(t, middleware.CheckPassword("s3cret", hash))
	assert.False(t, middleware.CheckPassword("other", hash))
}

func TestParseEmployee(t *testing.T) {
	e, err := parseEmployee([]string{" ana@example.com ", "Ana", "Souza", " Backend "})
	require.NoError(t, err)
	assert.Equal(t, model.AvailableEmployee{FirstName: "Ana", LastName: "Souza", Email: "ana@example.com", Role: "Backend"}, e)

	for _, args := range [][]string{
		{"not-an-email", "Ana", "Souza", "Backend"},
		{"ana@example.com", "", "Souza", "Backend"},
		{"ana@example.com", "Ana", "Souza", " "},
	} {
		_, err := parseEmployee(args)
		assert.Error(t, err, "%q", args)
	}
}

func TestPrintStaffing(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStaffing(&out, &model.Staffing{
		Roles: []string{"DevOps", "Backend"},
		Employees: []model.AvailableEmployee{
			{FirstName: "Ana", LastName: "Souza", Email: "ana@example.com", Role: "Backend"},
		},
	}))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Needed roles: DevOps, Backend", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "ROLE"))
	assert.Contains(t, lines[3], "Ana Souza")
	assert.Contains(t, lines[3], "ana@example.com")

	out.Reset()
	require.NoError(t, printStaffing(&out, &model.Staffing{Roles: []string{"QA"}}))
	assert.Contains(t, out.String(), "No available employees found")
}
