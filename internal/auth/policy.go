package auth

import (
	"fmt"

	"github.com/Leganyst/clinic-platform/internal/calendar"
)

// Operation - операция над записями, на которую проверяются права.
type Operation string

const (
	OpCreate    Operation = "create"
	OpGet       Operation = "get"
	OpList      Operation = "list"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpDashboard Operation = "dashboard"
	OpHistory   Operation = "history"
	OpMedicos   Operation = "medicos"
)

var allowed = map[calendar.UserRole]map[Operation]bool{
	calendar.UserRoleAsistente: {
		OpCreate: true, OpGet: true, OpList: true, OpUpdate: true, OpDelete: true,
		OpDashboard: true, OpHistory: true, OpMedicos: true,
	},
	calendar.UserRoleDoctor: {
		OpGet: true, OpList: true, OpUpdate: true, OpDashboard: true, OpHistory: true, OpMedicos: true,
	},
	// пациенту - только свои записи, см. OwnPaciente
	calendar.UserRolePaciente: {
		OpGet: true, OpList: true, OpMedicos: true,
	},
}

// Authorize проверяет, что роль может выполнять операцию.
func Authorize(p *Principal, op Operation) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !allowed[p.Rol][op] {
		return fmt.Errorf("%w: role %s cannot %s", ErrForbidden, p.Rol, op)
	}
	return nil
}

// OwnPaciente возвращает pacienteId, которым ограничены выборки пациента.
// Для остальных ролей - пустая строка (без ограничения).
func OwnPaciente(p *Principal) (string, error) {
	if p == nil || p.Rol != calendar.UserRolePaciente {
		return "", nil
	}
	if p.PacienteID == "" {
		return "", fmt.Errorf("%w: patient account is not linked", ErrForbidden)
	}
	return p.PacienteID, nil
}

// CanSee - пациент видит только записи со своим pacienteId.
func CanSee(p *Principal, pacienteID string) bool {
	own, err := OwnPaciente(p)
	if err != nil {
		return false
	}
	return own == "" || own == pacienteID
}
