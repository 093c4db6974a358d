package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

// IdentidadService отдаёт профиль вызывающего пользователя.
type IdentidadService struct {
	usuarios repository.UsuarioRepository
}

func NewIdentidadService(usuarios repository.UsuarioRepository) *IdentidadService {
	return &IdentidadService{usuarios: usuarios}
}

type perfil struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Nombre     string `json:"nombre"`
	Rol        string `json:"rol"`
	Estado     string `json:"estado"`
	PacienteID string `json:"pacienteId,omitempty"`
	MedicoID   string `json:"medicoId,omitempty"`
}

// Perfil - пользователь из токена, роль и привязки из БД.
func (s *IdentidadService) Perfil(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	u, err := s.usuarios.GetByID(ctx, p.UsuarioID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "get user: %v", err)
	}

	out, err := encodeStruct(mapPerfil(u, string(p.Rol)))
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func mapPerfil(u *model.Usuario, rol string) perfil {
	out := perfil{
		ID:     u.ID,
		Email:  u.Email,
		Nombre: u.Nombre,
		Rol:    rol,
		Estado: string(u.Estado),
	}
	if u.PacienteID != nil {
		out.PacienteID = *u.PacienteID
	}
	if u.MedicoID != nil {
		out.MedicoID = *u.MedicoID
	}
	return out
}
