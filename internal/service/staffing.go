package service

import (
	"context"
	"errors"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/model"
)

// ErrStaffingDisabled consulta de funcionários sem banco configurado
var ErrStaffingDisabled = errors.New("catálogo de funcionários indisponível: configure DATABASE_URL")

// EmployeeFinder lista funcionários disponíveis por perfil
type EmployeeFinder interface {
	ListAvailable(ctx context.Context, roles []string) ([]model.AvailableEmployee, error)
}

// StaffingService cruza os perfis de uma estimativa com os funcionários livres
type StaffingService struct {
	employees EmployeeFinder
}

// NewStaffingService cria o serviço. employees nil desativa a consulta.
func NewStaffingService(employees EmployeeFinder) *StaffingService {
	return &StaffingService{employees: employees}
}

// Enabled indica se há catálogo de funcionários
func (s *StaffingService) Enabled() bool {
	return s != nil && s.employees != nil
}

// AvailableFor devolve os funcionários disponíveis nos perfis de fitting_employees.
// Um documento sem perfis não consulta o banco.
func (s *StaffingService) AvailableFor(ctx context.Context, doc *model.AnswerDocument) (*model.Staffing, error) {
	if !s.Enabled() {
		return nil, ErrStaffingDisabled
	}

	roles := doc.Tasks().Roles()
	if len(roles) == 0 {
		return &model.Staffing{Roles: []string{}, Employees: []model.AvailableEmployee{}}, nil
	}
	staffing := &model.Staffing{Roles: roles}

	employees, err := s.employees.ListAvailable(ctx, roles)
	if err != nil {
		return nil, err
	}
	staffing.Employees = employees

	logger.Get(ctx).Info().
		Strs("roles", roles).
		Int("employees", len(employees)).
		Msg("Funcionários disponíveis consultados")
	return staffing, nil
}
