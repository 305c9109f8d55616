package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
)

// RateRepository lê o catálogo roles_rates
type RateRepository struct {
	db *sql.DB
}

// NewRateRepository cria um novo repositório de diárias
func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

// ListRates retorna todos os perfis ordenados por nome
func (r *RateRepository) ListRates(ctx context.Context) ([]model.RoleRate, error) {
	query := `SELECT role, rate FROM roles_rates ORDER BY role`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar diárias: %w", err)
	}
	defer rows.Close()

	rates := []model.RoleRate{}
	for rows.Next() {
		var rate model.RoleRate
		if err := rows.Scan(&rate.Role, &rate.DailyRate); err != nil {
			return nil, fmt.Errorf("erro ao ler diária: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar diárias: %w", err)
	}

	logger.Get(ctx).Debug().Int("roles", len(rates)).Msg("Catálogo de diárias carregado")
	return rates, nil
}

// UpsertRate insere ou atualiza a diária de um perfil
func (r *RateRepository) UpsertRate(ctx context.Context, rate model.RoleRate) error {
	query := `
		INSERT INTO roles_rates (role, rate, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (role) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, rate.Role, rate.DailyRate); err != nil {
		logger.Get(ctx).Error().Err(err).Str("role", rate.Role).Msg("Erro ao gravar diária")
		return fmt.Errorf("erro ao gravar diária de %q: %w", rate.Role, err)
	}
	return nil
}
