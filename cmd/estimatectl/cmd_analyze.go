package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/spf13/cobra"
)

var (
	estimatePDFURL       string
	estimateText         string
	estimateRequirements string
)

// analyzePDFCmd summarizes a PDF reachable by URL
var analyzePDFCmd = &cobra.Command{
	Use:   "analyze-pdf <url>",
	Short: "Extract a PDF and ask for a project summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzePDF,
}

// analyzeCSVCmd summarizes a local CSV or XLSX table
var analyzeCSVCmd = &cobra.Command{
	Use:   "analyze-csv <file>",
	Short: "Parse a CSV or XLSX file and ask for insights",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeCSV,
}

// estimateCmd produces an answer document
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Generate a task estimate document",
	Long: `Estimate sends the project text (extracted from --pdf-url, or given with --text)
with the role catalog to the language model and prints the validated answer document.
Use --out answer.json to refresh the document served by GET /api/v1/answer.`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVar(&estimatePDFURL, "pdf-url", "", "Public URL of the project PDF")
	estimateCmd.Flags().StringVar(&estimateText, "text", "", "Project text, used when --pdf-url is empty")
	estimateCmd.Flags().StringVarP(&estimateRequirements, "requirements", "r", "", "Additional requirements")
	estimateCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write the document to this file")
}

// printProgress reports each poll on stderr
func printProgress(cmd *cobra.Command) func(model.AnalysisJob) {
	return func(job model.AnalysisJob) {
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "poll %d: %s\n", job.Attempts, job.State)
		}
	}
}

func runAnalyzePDF(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	services, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	result, err := services.Analysis.AnalyzePDF(ctx, args[0], printProgress(cmd))
	if err != nil {
		if model.IsExtractionError(err) {
			return errors.New(model.PDFFailureMessage)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Answer:\n%s\n", result.Answer)
	return nil
}

func runAnalyzeCSV(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	services, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	result, table, err := services.Analysis.AnalyzeCSV(ctx, filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d rows, %d columns\n", len(table.Rows), len(table.Headers))
	fmt.Fprintf(cmd.OutOrStdout(), "Answer:\n%s\n", result.Answer)
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	services, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	doc, err := services.Analysis.Estimate(ctx, model.EstimateRequest{
		PDFURL:       estimatePDFURL,
		Text:         estimateText,
		Requirements: estimateRequirements,
	}, printProgress(cmd))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d tasks)\n", outputPath, doc.Tasks().Len())
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
