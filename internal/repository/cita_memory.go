package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-platform/internal/db"
	"github.com/Leganyst/clinic-platform/internal/model"
)

// MemoryCitaRepository - хранилище в памяти процесса (демо-режим, тесты).
// Уникального индекса по слоту нет: защищает только ядро.
type MemoryCitaRepository struct {
	mu    sync.RWMutex
	citas map[string]model.Cita
	now   func() time.Time
}

func NewMemoryCitaRepository() *MemoryCitaRepository {
	return &MemoryCitaRepository{
		citas: make(map[string]model.Cita),
		now:   db.NowUTC,
	}
}

// WithClock подменяет источник серверного времени.
func (r *MemoryCitaRepository) WithClock(now func() time.Time) *MemoryCitaRepository {
	r.now = func() time.Time { return now().UTC() }
	return r
}

func (r *MemoryCitaRepository) Create(ctx context.Context, cita *model.Cita) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cita.ID = uuid.NewString()
	if cita.Estado == "" {
		cita.Estado = model.EstadoPendiente
	}
	now := r.now()
	cita.Fecha = cita.Fecha.UTC()
	cita.CreadaEn = now
	cita.ActualizadaEn = now
	r.citas[cita.ID] = *cita
	return nil
}

func (r *MemoryCitaRepository) GetByID(ctx context.Context, id string) (*model.Cita, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.citas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCitaRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.citas[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if err := applyField(&c, k, v); err != nil {
			return err
		}
	}
	c.ActualizadaEn = r.now()
	r.citas[id] = c
	return nil
}

func (r *MemoryCitaRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.citas, id)
	return nil
}

func (r *MemoryCitaRepository) Query(ctx context.Context, q CitaQuery) ([]model.Cita, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]model.Cita, 0, len(r.citas))
	for _, c := range r.citas {
		if matches(c, q) {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.Ascending {
			return before(out[i], out[j])
		}
		return before(out[j], out[i])
	})

	if q.After != nil {
		pos := model.Cita{ID: q.After.ID, Fecha: q.After.Fecha.UTC()}
		i := sort.Search(len(out), func(i int) bool {
			if q.Ascending {
				return before(pos, out[i])
			}
			return before(out[i], pos)
		})
		out = out[i:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryCitaRepository) FindActiveBySlot(
	ctx context.Context,
	doctorID string,
	fecha time.Time,
	excludeID string,
) ([]model.Cita, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Cita
	for _, c := range r.citas {
		if c.ID == excludeID || c.DoctorID != doctorID || !c.Estado.Activa() {
			continue
		}
		if c.Fecha.Equal(fecha) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Transaction не даёт изоляции: сериализацию обеспечивает блокировка слота в ядре.
func (r *MemoryCitaRepository) Transaction(ctx context.Context, fn func(repo CitaRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(r)
}

// before - порядок (fecha, id) по возрастанию.
func before(a, b model.Cita) bool {
	if !a.Fecha.Equal(b.Fecha) {
		return a.Fecha.Before(b.Fecha)
	}
	return a.ID < b.ID
}

func matches(c model.Cita, q CitaQuery) bool {
	if q.Estado != "" && c.Estado != q.Estado {
		return false
	}
	if q.DoctorID != "" && c.DoctorID != q.DoctorID {
		return false
	}
	if q.PacienteID != "" && c.PacienteID != q.PacienteID {
		return false
	}
	if q.Desde != nil && c.Fecha.Before(*q.Desde) {
		return false
	}
	if q.Hasta != nil && !c.Fecha.Before(*q.Hasta) {
		return false
	}
	return true
}

func applyField(c *model.Cita, col string, v any) error {
	switch col {
	case ColPacienteID:
		c.PacienteID = v.(string)
	case ColPacienteNombre:
		c.PacienteNombre = v.(string)
	case ColDoctorID:
		c.DoctorID = v.(string)
	case ColDoctorNombre:
		c.DoctorNombre = v.(string)
	case ColFecha:
		c.Fecha = v.(time.Time).UTC()
	case ColMotivo:
		c.Motivo = v.(string)
	case ColNotas:
		c.Notas = v.(string)
	case ColSede:
		c.Sede = v.(string)
	case ColEstado:
		c.Estado = v.(model.EstadoCita)
	default:
		return fmt.Errorf("memory store: unknown column %q", col)
	}
	return nil
}
