package scheduling

import (
	"context"
	"time"

	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

const DefaultTodayMax = 6

// StatusCounts - число записей за сегодня по статусам.
type StatusCounts struct {
	Pendiente  int `json:"pendiente"`
	Confirmada int `json:"confirmada"`
	Atendida   int `json:"atendida"`
	Cancelada  int `json:"cancelada"`
}

func (c StatusCounts) Total() int {
	return c.Pendiente + c.Confirmada + c.Atendida + c.Cancelada
}

// Dashboard - сводки «на сегодня». Сегодня - локальные сутки клиники.
type Dashboard struct {
	repo repository.CitaRepository
	loc  *time.Location
	now  func() time.Time
}

func NewDashboard(repo repository.CitaRepository, loc *time.Location, now func() time.Time) *Dashboard {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Dashboard{repo: repo, loc: loc, now: now}
}

// Today - текущие сутки [00:00, следующая 00:00) в часовом поясе клиники.
func (d *Dashboard) Today() calendar.TimeRange {
	return calendar.DayRange(d.now(), d.loc)
}

// CountTodayByStatus - один запрос по диапазону, подсчёт в памяти.
// Неизвестные статусы пропускаются.
func (d *Dashboard) CountTodayByStatus(ctx context.Context) (StatusCounts, error) {
	day := d.Today().UTC()
	rows, err := d.repo.Query(ctx, repository.CitaQuery{Desde: &day.Start, Hasta: &day.End})
	if err != nil {
		return StatusCounts{}, mapStoreErr("count today", err)
	}

	var counts StatusCounts
	for _, c := range rows {
		switch c.Estado {
		case model.EstadoPendiente:
			counts.Pendiente++
		case model.EstadoConfirmada:
			counts.Confirmada++
		case model.EstadoAtendida:
			counts.Atendida++
		case model.EstadoCancelada:
			counts.Cancelada++
		}
	}
	return counts, nil
}

// ListTodayAppointments - записи на сегодня по возрастанию fecha, не больше limit.
func (d *Dashboard) ListTodayAppointments(ctx context.Context, limit int) ([]model.Cita, error) {
	if limit <= 0 {
		limit = DefaultTodayMax
	}
	day := d.Today().UTC()
	rows, err := d.repo.Query(ctx, repository.CitaQuery{
		Desde:     &day.Start,
		Hasta:     &day.End,
		Ascending: true,
		Limit:     limit,
	})
	if err != nil {
		return nil, mapStoreErr("list today", err)
	}
	return rows, nil
}
