package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-platform/internal/model"
)

type EventoRepository interface {
	Create(ctx context.Context, e *model.Evento) error
	ListByCita(ctx context.Context, citaID string) ([]model.Evento, error)
}

type GormEventoRepository struct {
	db *gorm.DB
}

func NewGormEventoRepository(db *gorm.DB) *GormEventoRepository {
	return &GormEventoRepository{db: db}
}

func (r *GormEventoRepository) Create(ctx context.Context, e *model.Evento) error {
	return translateError(r.db.WithContext(ctx).Create(e).Error)
}

func (r *GormEventoRepository) ListByCita(ctx context.Context, citaID string) ([]model.Evento, error) {
	var eventos []model.Evento
	err := r.db.WithContext(ctx).
		Where("cita_id = ?", citaID).
		Order("creado_en ASC").
		Find(&eventos).Error
	if err != nil {
		return nil, translateError(err)
	}
	return eventos, nil
}
