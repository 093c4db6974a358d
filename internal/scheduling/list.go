package scheduling

import (
	"context"
	"time"

	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

func citaCursor(c model.Cita) calendar.Cursor {
	return calendar.Cursor{Fecha: c.Fecha, ID: c.ID}
}

// ListAppointments - страница записей по фильтрам, fecha по убыванию.
// NextCursor пуст, когда данных больше нет.
func (s *Scheduler) ListAppointments(ctx context.Context, f ListFilter) (_ calendar.Page[model.Cita], err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("list", resultOf(err), started) }()

	if err := validateList(&f); err != nil {
		return calendar.Page[model.Cita]{}, err
	}
	after, err := calendar.DecodeCursor(f.Cursor)
	if err != nil {
		return calendar.Page[model.Cita]{}, invalid("cursor", "malformed")
	}
	size := calendar.NormalizePageSize(f.PageSize, s.policy.PageSize)

	rows, err := s.repo.Query(ctx, repository.CitaQuery{
		Estado:     f.Estado,
		DoctorID:   f.DoctorID,
		PacienteID: f.PacienteID,
		Desde:      f.Desde,
		Hasta:      f.Hasta,
		Limit:      size + 1, // лишняя строка - признак следующей страницы
		After:      after,
	})
	if err != nil {
		return calendar.Page[model.Cita]{}, mapStoreErr("list appointments", err)
	}
	return calendar.CutPage(rows, size, citaCursor), nil
}
