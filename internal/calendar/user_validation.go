package calendar

import (
	"context"
	"errors"
	"strings"
)

// Ошибки валидации пользователя.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user is inactive")
	ErrUnknownRole   = errors.New("unknown role")
)

// Статус пользователя в системе.
type UserStatus string

const (
	UserStatusActive   UserStatus = "activo"
	UserStatusInactive UserStatus = "inactivo"
	UserStatusBlocked  UserStatus = "bloqueado"
)

// Роль пользователя в системе.
type UserRole string

const (
	UserRolePaciente  UserRole = "paciente"
	UserRoleAsistente UserRole = "asistente"
	UserRoleDoctor    UserRole = "doctor"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRolePaciente, UserRoleAsistente, UserRoleDoctor:
		return true
	}
	return false
}

// Доменная модель пользователя.
type User struct {
	ID         string
	Email      string
	Role       UserRole
	Status     UserStatus
	PacienteID string
	MedicoID   string
}

// Результат успешной валидации.
type ValidatedUser struct {
	ID         string
	Role       UserRole
	PacienteID string
	MedicoID   string
}

// Источник данных о пользователях.
// В реале это обёртка над БД, в тестах - мок.
type UserStore interface {
	FindUser(ctx context.Context, id string) (*User, error)
}

// ValidateUser:
//   - проверяет идентификатор;
//   - вытаскивает пользователя из хранилища;
//   - проверяет статус и роль;
//   - возвращает нормализованный результат или ошибку.
func ValidateUser(ctx context.Context, store UserStore, id string) (*ValidatedUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidUserID
	}

	u, err := store.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	if u.Status == UserStatusInactive || u.Status == UserStatusBlocked {
		return nil, ErrUserInactive
	}
	if !u.Role.Valid() {
		return nil, ErrUnknownRole
	}

	return &ValidatedUser{
		ID:         u.ID,
		Role:       u.Role,
		PacienteID: u.PacienteID,
		MedicoID:   u.MedicoID,
	}, nil
}
