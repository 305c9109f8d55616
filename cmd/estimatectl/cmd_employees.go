package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"text/tabwriter"

	"github.com/cleberrangel/task-estimation-api/internal/app"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/cleberrangel/task-estimation-api/internal/service"
	"github.com/spf13/cobra"
)

var (
	allEmployees bool
	unavailable  bool
)

// employeesCmd manages the employees table
var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Find available employees for an estimate",
	Long: `Look up employees for the roles listed in fitting_employees.

Available subcommands:
  available - Print available employees for the roles of an answer document
  set       - Insert or update an employee by email`,
}

var employeesAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List available employees for the roles of an answer document",
	Args:  cobra.NoArgs,
	RunE:  runEmployeesAvailable,
}

var employeesSetCmd = &cobra.Command{
	Use:   "set <email> <firstname> <lastname> <role>",
	Short: "Insert or update an employee",
	Args:  cobra.ExactArgs(4),
	RunE:  runEmployeesSet,
}

func init() {
	employeesAvailableCmd.Flags().StringVarP(&answerPath, "answer", "a", "answer.json", "Answer document to read")
	employeesAvailableCmd.Flags().BoolVar(&allEmployees, "all", false, "Ignore the document and list every available employee")
	employeesSetCmd.Flags().BoolVar(&unavailable, "unavailable", false, "Mark the employee as not available")

	employeesCmd.AddCommand(employeesAvailableCmd)
	employeesCmd.AddCommand(employeesSetCmd)
}

// parseEmployee validates the positional arguments of "employees set"
func parseEmployee(args []string) (model.AvailableEmployee, error) {
	e := model.AvailableEmployee{
		Email:     strings.TrimSpace(args[0]),
		FirstName: strings.TrimSpace(args[1]),
		LastName:  strings.TrimSpace(args[2]),
		Role:      strings.TrimSpace(args[3]),
	}
	if _, err := mail.ParseAddress(e.Email); err != nil {
		return model.AvailableEmployee{}, fmt.Errorf("invalid email %q: %w", e.Email, err)
	}
	if e.FirstName == "" || e.LastName == "" || e.Role == "" {
		return model.AvailableEmployee{}, errors.New("firstname, lastname and role must not be empty")
	}
	return e, nil
}

// printStaffing writes the needed roles and one row per employee
func printStaffing(w io.Writer, staffing *model.Staffing) error {
	if len(staffing.Roles) > 0 {
		fmt.Fprintf(w, "Needed roles: %s\n\n", strings.Join(staffing.Roles, ", "))
	}
	if len(staffing.Employees) == 0 {
		_, err := fmt.Fprintln(w, "No available employees found for the needed roles.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tNAME\tEMAIL")
	for _, e := range staffing.Employees {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\n", e.Role, e.FirstName, e.LastName, e.Email)
	}
	return tw.Flush()
}

func runEmployeesAvailable(cmd *cobra.Command, args []string) error {
	var doc *model.AnswerDocument
	if !allEmployees {
		var err error
		if doc, err = loadAnswerFile(answerPath); err != nil {
			return err
		}
	}

	return withCatalog(cmd, func(ctx context.Context, catalog *app.Catalog) error {
		if allEmployees {
			employees, err := catalog.Employees.ListAvailable(ctx, nil)
			if err != nil {
				return err
			}
			return printStaffing(cmd.OutOrStdout(), &model.Staffing{Employees: employees})
		}

		staffing, err := service.NewStaffingService(catalog.Employees).AvailableFor(ctx, doc)
		if err != nil {
			return err
		}
		return printStaffing(cmd.OutOrStdout(), staffing)
	})
}

func runEmployeesSet(cmd *cobra.Command, args []string) error {
	employee, err := parseEmployee(args)
	if err != nil {
		return err
	}
	return withCatalog(cmd, func(ctx context.Context, catalog *app.Catalog) error {
		if err := catalog.Employees.UpsertEmployee(ctx, employee, !unavailable); err != nil {
			return err
		}
		state := "available"
		if unavailable {
			state = "unavailable"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s>: %s, %s\n", employee.FirstName, employee.LastName, employee.Email, employee.Role, state)
		return nil
	})
}
