package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-platform/internal/model"
)

type PacienteRepository interface {
	GetByID(ctx context.Context, id string) (*model.Paciente, error)
	Create(ctx context.Context, p *model.Paciente) error
}

type GormPacienteRepository struct {
	db *gorm.DB
}

func NewGormPacienteRepository(db *gorm.DB) *GormPacienteRepository {
	return &GormPacienteRepository{db: db}
}

func (r *GormPacienteRepository) GetByID(ctx context.Context, id string) (*model.Paciente, error) {
	var p model.Paciente
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (r *GormPacienteRepository) Create(ctx context.Context, p *model.Paciente) error {
	return translateError(r.db.WithContext(ctx).Create(p).Error)
}

type MedicoRepository interface {
	GetByID(ctx context.Context, id string) (*model.Medico, error)
	// Все врачи, по имени.
	List(ctx context.Context) ([]model.Medico, error)
	Create(ctx context.Context, m *model.Medico) error
}

type GormMedicoRepository struct {
	db *gorm.DB
}

func NewGormMedicoRepository(db *gorm.DB) *GormMedicoRepository {
	return &GormMedicoRepository{db: db}
}

func (r *GormMedicoRepository) GetByID(ctx context.Context, id string) (*model.Medico, error) {
	var m model.Medico
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

func (r *GormMedicoRepository) List(ctx context.Context) ([]model.Medico, error) {
	var medicos []model.Medico
	if err := r.db.WithContext(ctx).Order("nombre").Find(&medicos).Error; err != nil {
		return nil, translateError(err)
	}
	return medicos, nil
}

func (r *GormMedicoRepository) Create(ctx context.Context, m *model.Medico) error {
	return translateError(r.db.WithContext(ctx).Create(m).Error)
}
