package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/spf13/cobra"
)

var (
	answerPath   string
	outputPath   string
	exportFormat string
	pageTitle    string
)

// renderCmd writes the HTML page for an answer document
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an answer document as an HTML table",
	Long: `Render reads the answer document (answer.json by default) and writes a full
HTML page whose json-content container holds the task table.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

// exportCmd converts an answer document to a spreadsheet
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an answer document as CSV or XLSX",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, exportCmd} {
		c.Flags().StringVarP(&answerPath, "answer", "a", "answer.json", "Answer document to read")
		c.Flags().StringVarP(&outputPath, "out", "o", "", "Output file (default: stdout, tasks.xlsx for xlsx)")
	}
	renderCmd.Flags().StringVar(&pageTitle, "title", "Project estimate", "Page title")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format: csv or xlsx")
}

func loadAnswerFile(path string) (*model.AnswerDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := service.LoadAnswer(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// output opens --out or falls back to the command's stdout
func output(cmd *cobra.Command, fallback string) (io.Writer, func() error, error) {
	path := outputPath
	if path == "" {
		path = fallback
	}
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, err := loadAnswerFile(answerPath)
	if err != nil {
		return err
	}

	w, closeFn, err := output(cmd, "")
	if err != nil {
		return err
	}
	if err := service.WritePage(w, pageTitle, doc.Tasks()); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, err := loadAnswerFile(answerPath)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "csv":
		w, closeFn, err := output(cmd, "")
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, service.ToCSV(doc.Tasks())+"\n"); err != nil {
			closeFn()
			return err
		}
		return closeFn()

	case "xlsx":
		buf, err := service.NewExcelGenerator().Generate(doc.Tasks())
		if err != nil {
			return err
		}
		w, closeFn, err := output(cmd, service.XLSXFilename())
		if err != nil {
			return err
		}
		if _, err := buf.WriteTo(w); err != nil {
			closeFn()
			return err
		}
		if outputPath == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d tasks)\n", service.XLSXFilename(), doc.Tasks().Len())
		}
		return closeFn()

	default:
		return fmt.Errorf("unknown format %q (use csv or xlsx)", exportFormat)
	}
}
