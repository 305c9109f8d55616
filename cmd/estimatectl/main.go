// Command estimatectl runs the estimation pipeline and the exporters from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/app"
	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "estimatectl",
	Short: "Task estimation from project documents",
	Long: `estimatectl extracts text from project PDFs, asks the language model for
summaries and task estimates, and converts answer documents to HTML, CSV or XLSX.

Configuration is read from .env and the environment, like the API server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Init(level, false)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(analyzePDFCmd)
	rootCmd.AddCommand(analyzeCSVCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(employeesCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// commandContext bounds a command by --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// newServices loads and validates the full configuration
func newServices(ctx context.Context) (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewServices(ctx, cfg, nil)
}
