package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/lib/pq"
)

// EmployeeRepository lê e grava a tabela employees
type EmployeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository cria um novo repositório de funcionários
func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// ListAvailable retorna os funcionários disponíveis ordenados por perfil e sobrenome.
// Com roles vazio devolve todos os disponíveis.
func (r *EmployeeRepository) ListAvailable(ctx context.Context, roles []string) ([]model.AvailableEmployee, error) {
	query := `
		SELECT firstname, lastname, email, role
		FROM employees
		WHERE is_available AND (cardinality($1::text[]) = 0 OR role = ANY($1))
		ORDER BY role, lastname
	`

	// pq.Array(nil) vira NULL, e cardinality(NULL) não é 0
	if roles == nil {
		roles = []string{}
	}
	rows, err := r.db.QueryContext(ctx, query, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar funcionários: %w", err)
	}
	defer rows.Close()

	employees := []model.AvailableEmployee{}
	for rows.Next() {
		var e model.AvailableEmployee
		if err := rows.Scan(&e.FirstName, &e.LastName, &e.Email, &e.Role); err != nil {
			return nil, fmt.Errorf("erro ao ler funcionário: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar funcionários: %w", err)
	}

	logger.Get(ctx).Debug().
		Int("roles", len(roles)).
		Int("employees", len(employees)).
		Msg("Funcionários disponíveis carregados")
	return employees, nil
}

// UpsertEmployee insere ou atualiza um funcionário pelo email
func (r *EmployeeRepository) UpsertEmployee(ctx context.Context, e model.AvailableEmployee, available bool) error {
	query := `
		INSERT INTO employees (firstname, lastname, email, role, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			firstname = EXCLUDED.firstname,
			lastname = EXCLUDED.lastname,
			role = EXCLUDED.role,
			is_available = EXCLUDED.is_available,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, e.FirstName, e.LastName, e.Email, e.Role, available); err != nil {
		logger.Get(ctx).Error().Err(err).Str("email", e.Email).Msg("Erro ao gravar funcionário")
		return fmt.Errorf("erro ao gravar funcionário %q: %w", e.Email, err)
	}
	return nil
}
