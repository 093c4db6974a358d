package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Leganyst/clinic-platform/internal/calendar"
)

// Principal - пользователь, от имени которого выполняется запрос.
type Principal struct {
	UsuarioID  string
	Rol        calendar.UserRole
	PacienteID string
	MedicoID   string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticator проверяет токен и сверяет пользователя с хранилищем:
// роль и статус берутся из БД, а не из токена.
type Authenticator struct {
	tokens *Tokens
	users  calendar.UserStore
}

func NewAuthenticator(tokens *Tokens, users calendar.UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate разбирает значение заголовка Authorization ("Bearer <jwt>").
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	raw, ok := bearer(header)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	u, err := calendar.ValidateUser(ctx, a.users, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, calendar.ErrUserNotFound),
		errors.Is(err, calendar.ErrUserInactive),
		errors.Is(err, calendar.ErrInvalidUserID):
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	case errors.Is(err, calendar.ErrUnknownRole):
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	default:
		return nil, err
	}

	return &Principal{
		UsuarioID:  u.ID,
		Rol:        u.Role,
		PacienteID: u.PacienteID,
		MedicoID:   u.MedicoID,
	}, nil
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
