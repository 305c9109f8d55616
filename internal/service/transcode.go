package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/model"
)

// ExportHeaders colunas da exportação de tasks (CSV e XLSX)
var ExportHeaders = []string{
	"Task",
	"Description",
	"Fitting Employees",
	"Min Days",
	"Most Likely Days",
	"Max Days",
	"Potential Issues",
}

const (
	// caracteres iniciais que fazem Excel/LibreOffice avaliar a célula
	formulaPrefixes = "=+-@\t\r"

	exportDelimiter = ";"
	exportFilename  = "tasks.csv"
)

// ParseCSV converte um texto CSV com cabeçalho em linhas header -> valor
func ParseCSV(text string) (*model.CsvTable, error) {
	return ParseCSVReader(strings.NewReader(text))
}

// ParseCSVReader lê CSV separado por vírgula. A primeira linha é o cabeçalho,
// valores são aparados e cada linha é associada ao cabeçalho por posição.
// Campos entre aspas podem conter vírgulas e quebras de linha.
// Uma aspa no meio de um campo sem aspas (`55" screen`) é aceita como texto.
func ParseCSVReader(r io.Reader) (*model.CsvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// aspas soltas dentro de campos sem aspas são mantidas como texto
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, model.ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("ler cabeçalho: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if len(headers) == 1 && headers[0] == "" {
		return nil, model.ErrEmptyCSV
	}

	table := &model.CsvTable{Headers: headers, Rows: []model.CsvRow{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("linha %d: %w", parseErr.StartLine, err)
			}
			return nil, fmt.Errorf("ler linha: %w", err)
		}

		if len(record) < len(headers) {
			line, _ := reader.FieldPos(0)
			return nil, &model.MalformedCsvError{Line: line, Got: len(record), Want: len(headers)}
		}

		values := make([]string, len(headers))
		for i := range headers {
			values[i] = strings.TrimSpace(record[i])
		}
		table.Rows = append(table.Rows, model.NewCsvRow(headers, values))
	}

	return table, nil
}

// ToCSV exporta as tasks em CSV separado por ponto e vírgula.
// Perfis e problemas ficam em uma única célula entre aspas, um item por linha.
func ToCSV(tasks *model.TaskCollection) string {
	lines := make([]string, 0, tasks.Len()+1)
	lines = append(lines, strings.Join(ExportHeaders, exportDelimiter))

	for _, t := range tasks.Tasks() {
		cells := []string{
			scalarCell(t.Name),
			scalarCell(t.Description),
			listCell(employeeLines(t.FittingEmployees)),
			formatDays(t.EstimatedDays.Min),
			formatDays(t.EstimatedDays.MostLikely),
			formatDays(t.EstimatedDays.Max),
			listCell(t.PotentialIssues),
		}
		lines = append(lines, strings.Join(cells, exportDelimiter))
	}

	return strings.Join(lines, "\n")
}

// ExportFilename nome fixo do arquivo CSV baixado
func ExportFilename() string {
	return exportFilename
}

func employeeLines(employees []model.Employee) []string {
	out := make([]string, len(employees))
	for i, e := range employees {
		out[i] = e.String()
	}
	return out
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scalarCell(s string) string {
	s = neutralizeFormula(s)
	if strings.ContainsAny(s, exportDelimiter+"\"\r\n") {
		return quote(s)
	}
	return s
}

func listCell(items []string) string {
	return quote(neutralizeFormula(strings.Join(items, "\n")))
}

// neutralizeFormula prefixa com ' células que a planilha trataria como fórmula
func neutralizeFormula(s string) string {
	if s != "" && strings.ContainsRune(formulaPrefixes, rune(s[0])) {
		return "'" + s
	}
	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
