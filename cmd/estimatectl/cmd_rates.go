package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cleberrangel/task-estimation-api/internal/app"
	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/cleberrangel/task-estimation-api/internal/database"
	"github.com/cleberrangel/task-estimation-api/internal/middleware"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/repository"
	"github.com/spf13/cobra"
)

// ratesCmd manages the roles_rates catalog
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the role daily-rate catalog",
	Long: `Manage the roles_rates table used in the estimation prompt.

Available subcommands:
  list - Print every role with its daily rate
  set  - Insert or update the rate of a role`,
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles and daily rates",
	Args:  cobra.NoArgs,
	RunE:  runRatesList,
}

var ratesSetCmd = &cobra.Command{
	Use:   "set <role> <daily-rate>",
	Short: "Insert or update a role's daily rate",
	Args:  cobra.ExactArgs(2),
	RunE:  runRatesSet,
}

// hashPasswordCmd prints a bcrypt hash for BASIC_AUTH_USERS
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for BASIC_AUTH_USERS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := middleware.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	ratesCmd.AddCommand(ratesListCmd)
	ratesCmd.AddCommand(ratesSetCmd)
}

// parseRate validates the positional arguments of "rates set"
func parseRate(role, value string) (model.RoleRate, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return model.RoleRate{}, errors.New("role must not be empty")
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return model.RoleRate{}, fmt.Errorf("invalid daily rate %q: %w", value, err)
	}
	if rate < 0 {
		return model.RoleRate{}, fmt.Errorf("daily rate must not be negative: %v", rate)
	}
	return model.RoleRate{Role: role, DailyRate: rate}, nil
}

// withCatalog opens the database tables for the duration of fn
func withCatalog(cmd *cobra.Command, fn func(context.Context, *app.Catalog) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if !cfg.DatabaseEnabled() {
		return errors.New("DATABASE_URL is not set")
	}

	catalog, err := app.OpenCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close(catalog.DB)
	return fn(ctx, catalog)
}

// withRates opens the role rate table for the duration of fn
func withRates(cmd *cobra.Command, fn func(context.Context, *repository.RateRepository) error) error {
	return withCatalog(cmd, func(ctx context.Context, catalog *app.Catalog) error {
		return fn(ctx, catalog.Rates)
	})
}

func runRatesList(cmd *cobra.Command, args []string) error {
	return withRates(cmd, func(ctx context.Context, repo *repository.RateRepository) error {
		rates, err := repo.ListRates(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tDAILY RATE")
		for _, r := range rates {
			fmt.Fprintf(w, "%s\t%.2f\n", r.Role, r.DailyRate)
		}
		return w.Flush()
	})
}

func runRatesSet(cmd *cobra.Command, args []string) error {
	rate, err := parseRate(args[0], args[1])
	if err != nil {
		return err
	}
	return withRates(cmd, func(ctx context.Context, repo *repository.RateRepository) error {
		if err := repo.UpsertRate(ctx, rate); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %.2f/day\n", rate.Role, rate.DailyRate)
		return nil
	})
}
