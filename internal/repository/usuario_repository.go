package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
)

type UsuarioRepository interface {
	GetByID(ctx context.Context, id string) (*model.Usuario, error)
	FindByEmail(ctx context.Context, email string) (*model.Usuario, error)
	Create(ctx context.Context, u *model.Usuario) error
	SetRol(ctx context.Context, usuarioID string, codigo string) error
	GetRol(ctx context.Context, usuarioID string) (string, error)
	// FindUser - адаптер для calendar.ValidateUser.
	FindUser(ctx context.Context, id string) (*calendar.User, error)
}

type GormUsuarioRepository struct {
	db *gorm.DB
}

func NewGormUsuarioRepository(db *gorm.DB) *GormUsuarioRepository {
	return &GormUsuarioRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormUsuarioRepository) GetByID(ctx context.Context, id string) (*model.Usuario, error) {
	var u model.Usuario
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (r *GormUsuarioRepository) FindByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	n := normalizeEmail(email)
	if n == "" {
		return nil, ErrNotFound
	}
	var u model.Usuario
	if err := r.db.WithContext(ctx).Where("email = ?", n).First(&u).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (r *GormUsuarioRepository) Create(ctx context.Context, u *model.Usuario) error {
	u.Email = normalizeEmail(u.Email)
	return translateError(r.db.WithContext(ctx).Create(u).Error)
}

func (r *GormUsuarioRepository) SetRol(ctx context.Context, usuarioID string, codigo string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// роль должна существовать
		var rol model.Rol
		if err := tx.Where("codigo = ?", codigo).First(&rol).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			rol = model.Rol{Codigo: codigo, Nombre: codigo}
			if err := tx.Create(&rol).Error; err != nil {
				return err
			}
		}

		// одна роль на пользователя: старые связи удаляем
		if err := tx.Where("usuario_id = ?", usuarioID).Delete(&model.UsuarioRol{}).Error; err != nil {
			return err
		}

		ur := model.UsuarioRol{RolID: rol.ID, UsuarioID: usuarioID}
		return tx.Create(&ur).Error
	})
}

func (r *GormUsuarioRepository) GetRol(ctx context.Context, usuarioID string) (string, error) {
	var rol model.Rol
	err := r.db.WithContext(ctx).
		Joins("JOIN usuario_roles ON usuario_roles.rol_id = roles.id").
		Where("usuario_roles.usuario_id = ?", usuarioID).
		First(&rol).Error
	if err != nil {
		return "", translateError(err)
	}
	return rol.Codigo, nil
}

func (r *GormUsuarioRepository) FindUser(ctx context.Context, id string) (*calendar.User, error) {
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rol, err := r.GetRol(ctx, u.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	out := &calendar.User{
		ID:     u.ID,
		Email:  u.Email,
		Role:   calendar.UserRole(rol),
		Status: calendar.UserStatus(u.Estado),
	}
	if u.PacienteID != nil {
		out.PacienteID = *u.PacienteID
	}
	if u.MedicoID != nil {
		out.MedicoID = *u.MedicoID
	}
	return out, nil
}
