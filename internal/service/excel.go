package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName       = "Estimativa"
	xlsxExportName  = "tasks.xlsx"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	totalRowLabel   = "Total"
	defaultColWidth = 20
	wideColWidth    = 45
)

// ExcelGenerator gera a planilha de estimativa
type ExcelGenerator struct{}

// NewExcelGenerator cria um novo gerador de Excel
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// XLSXFilename nome fixo do arquivo XLSX baixado
func XLSXFilename() string { return xlsxExportName }

// XLSXContentType MIME type do XLSX
func XLSXContentType() string { return xlsxContentType }

// Generate gera a planilha com as mesmas colunas da exportação CSV, uma linha
// por task em ordem de inserção e uma linha final com a soma dos dias
func (g *ExcelGenerator) Generate(tasks *model.TaskCollection) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	if err := g.writeHeaders(f); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	if err := g.writeData(f, tasks); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}

	if tasks.Len() > 0 {
		if err := g.writeTotals(f, tasks.Len()); err != nil {
			return nil, fmt.Errorf("escrever totais: %w", err)
		}
	}

	if err := g.setColumnWidths(f); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("congelar cabeçalho: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	return buf, nil
}

func border(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
	}
}

func (g *ExcelGenerator) writeHeaders(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: border("000000"),
	})
	if err != nil {
		return err
	}

	for col, header := range ExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (g *ExcelGenerator) writeData(f *excelize.File, tasks *model.TaskCollection) error {
	rowStyle := func(fill string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{fill},
				Pattern: 1,
			},
			Alignment: &excelize.Alignment{
				Vertical: "top",
				WrapText: true,
			},
			Border: border("D9D9D9"),
		})
	}
	styleEven, err := rowStyle("FFFFFF")
	if err != nil {
		return err
	}
	styleOdd, err := rowStyle("F2F2F2")
	if err != nil {
		return err
	}

	for i, t := range tasks.Tasks() {
		excelRow := i + 2 // linha 1 é header

		style := styleEven
		if i%2 == 1 {
			style = styleOdd
		}

		values := []interface{}{
			t.Name,
			t.Description,
			strings.Join(employeeLines(t.FittingEmployees), "\n"),
			t.EstimatedDays.Min,
			t.EstimatedDays.MostLikely,
			t.EstimatedDays.Max,
			strings.Join(t.PotentialIssues, "\n"),
		}

		first, _ := excelize.CoordinatesToCellName(1, excelRow)
		last, _ := excelize.CoordinatesToCellName(len(values), excelRow)
		if err := f.SetSheetRow(sheetName, first, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, first, last, style); err != nil {
			return err
		}
	}
	return nil
}

// writeTotals soma as colunas de dias (D, E, F) abaixo da última task
func (g *ExcelGenerator) writeTotals(f *excelize.File, count int) error {
	totalRow := count + 2
	style, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border("000000"),
	})
	if err != nil {
		return err
	}

	labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetCellValue(sheetName, labelCell, totalRowLabel); err != nil {
		return err
	}

	for col := 4; col <= 6; col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		formula := fmt.Sprintf("SUM(%s2:%s%d)", colName, colName, totalRow-1)
		if err := f.SetCellFormula(sheetName, cell, formula); err != nil {
			return err
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(ExportHeaders), totalRow)
	return f.SetCellStyle(sheetName, labelCell, last, style)
}

func (g *ExcelGenerator) setColumnWidths(f *excelize.File) error {
	for col := 1; col <= len(ExportHeaders); col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		width := float64(defaultColWidth)
		switch col {
		case 2, 3, 7:
			width = wideColWidth
		}
		if err := f.SetColWidth(sheetName, colName, colName, width); err != nil {
			return err
		}
	}
	return nil
}
