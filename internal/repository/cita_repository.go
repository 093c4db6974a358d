package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
)

// Колонки citas, которые можно менять через UpdateFields.
const (
	ColPacienteID     = "paciente_id"
	ColPacienteNombre = "paciente_nombre"
	ColDoctorID       = "doctor_id"
	ColDoctorNombre   = "doctor_nombre"
	ColFecha          = "fecha"
	ColMotivo         = "motivo"
	ColNotas          = "notas"
	ColSede           = "sede"
	ColEstado         = "estado"
	ColActualizadaEn  = "actualizada_en"
)

// CitaQuery - фильтры (через AND), порядок и keyset-курсор.
type CitaQuery struct {
	Estado     model.EstadoCita
	DoctorID   string
	PacienteID string
	Desde      *time.Time // fecha >= Desde
	Hasta      *time.Time // fecha < Hasta

	// По умолчанию fecha DESC, id DESC.
	Ascending bool
	Limit     int
	// Строго после этой позиции в выбранном порядке.
	After *calendar.Cursor
}

type CitaRepository interface {
	// Создать запись. id, creada_en и actualizada_en назначает хранилище.
	Create(ctx context.Context, cita *model.Cita) error
	// Получить запись по ID. ErrNotFound, если нет.
	GetByID(ctx context.Context, id string) (*model.Cita, error)
	// Частичное обновление; actualizada_en ставится всегда.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	// Удаление; отсутствие записи ошибкой не считается.
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, q CitaQuery) ([]model.Cita, error)
	// Активные (не отменённые) записи врача ровно на момент fecha, кроме excludeID.
	FindActiveBySlot(ctx context.Context, doctorID string, fecha time.Time, excludeID string) ([]model.Cita, error)
	// Выполнить fn в одной транзакции хранилища.
	Transaction(ctx context.Context, fn func(repo CitaRepository) error) error
}

// Реализация на GORM.
type GormCitaRepository struct {
	db *gorm.DB
}

func NewGormCitaRepository(db *gorm.DB) *GormCitaRepository {
	return &GormCitaRepository{db: db}
}

func (r *GormCitaRepository) Create(ctx context.Context, cita *model.Cita) error {
	now := r.db.NowFunc()
	cita.Fecha = cita.Fecha.UTC()
	cita.CreadaEn = now
	cita.ActualizadaEn = now
	return translateError(r.db.WithContext(ctx).Create(cita).Error)
}

func (r *GormCitaRepository) GetByID(ctx context.Context, id string) (*model.Cita, error) {
	var c model.Cita
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	normalizeCita(&c)
	return &c, nil
}

func (r *GormCitaRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	update := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			v = t.UTC()
		}
		update[k] = v
	}
	update[ColActualizadaEn] = r.db.NowFunc()

	tx := r.db.WithContext(ctx).
		Model(&model.Cita{}).
		Where("id = ?", id).
		Updates(update)
	if tx.Error != nil {
		return translateError(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCitaRepository) Delete(ctx context.Context, id string) error {
	return translateError(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Cita{}).Error)
}

func (r *GormCitaRepository) Query(ctx context.Context, q CitaQuery) ([]model.Cita, error) {
	tx := r.db.WithContext(ctx).Model(&model.Cita{})

	if q.Estado != "" {
		tx = tx.Where("estado = ?", q.Estado)
	}
	if q.DoctorID != "" {
		tx = tx.Where("doctor_id = ?", q.DoctorID)
	}
	if q.PacienteID != "" {
		tx = tx.Where("paciente_id = ?", q.PacienteID)
	}
	if q.Desde != nil {
		tx = tx.Where("fecha >= ?", q.Desde.UTC())
	}
	if q.Hasta != nil {
		tx = tx.Where("fecha < ?", q.Hasta.UTC())
	}

	order := "fecha DESC, id DESC"
	if q.Ascending {
		order = "fecha ASC, id ASC"
	}
	if q.After != nil {
		f := q.After.Fecha.UTC()
		if q.Ascending {
			tx = tx.Where("(fecha > ? OR (fecha = ? AND id > ?))", f, f, q.After.ID)
		} else {
			tx = tx.Where("(fecha < ? OR (fecha = ? AND id < ?))", f, f, q.After.ID)
		}
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var citas []model.Cita
	if err := tx.Order(order).Find(&citas).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range citas {
		normalizeCita(&citas[i])
	}
	return citas, nil
}

func (r *GormCitaRepository) FindActiveBySlot(
	ctx context.Context,
	doctorID string,
	fecha time.Time,
	excludeID string,
) ([]model.Cita, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Cita{}).
		Where("doctor_id = ? AND fecha = ? AND estado <> ?", doctorID, fecha.UTC(), model.EstadoCancelada)
	if excludeID != "" {
		tx = tx.Where("id <> ?", excludeID)
	}

	var citas []model.Cita
	if err := tx.Find(&citas).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range citas {
		normalizeCita(&citas[i])
	}
	return citas, nil
}

func (r *GormCitaRepository) Transaction(ctx context.Context, fn func(repo CitaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCitaRepository{db: tx})
	})
}

// normalizeCita - драйверы возвращают время в разных зонах, наружу отдаём UTC.
func normalizeCita(c *model.Cita) {
	c.Fecha = c.Fecha.UTC()
	c.CreadaEn = c.CreadaEn.UTC()
	c.ActualizadaEn = c.ActualizadaEn.UTC()
}
