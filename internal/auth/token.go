// Package auth - JWT-токены, текущий пользователь в контексте и политика
// доступа к операциям записи на приём.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Leganyst/clinic-platform/internal/calendar"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Claims - содержимое access-токена. sub - id пользователя.
type Claims struct {
	Rol        string `json:"rol"`
	PacienteID string `json:"pacienteId,omitempty"`
	MedicoID   string `json:"medicoId,omitempty"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет токены HS256.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue подписывает токен для уже проверенного пользователя.
func (t *Tokens) Issue(u *calendar.ValidatedUser) (string, error) {
	if u == nil || u.ID == "" {
		return "", calendar.ErrInvalidUserID
	}
	now := t.now()
	claims := Claims{
		Rol:        string(u.Role),
		PacienteID: u.PacienteID,
		MedicoID:   u.MedicoID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, срок и издателя. Любая ошибка - ErrUnauthenticated.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrUnauthenticated)
	}
	return claims, nil
}
