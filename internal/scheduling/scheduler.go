// Package scheduling - ядро записи на приём: создание, изменение, удаление,
// выборки и проверка занятости слота врача.
package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-platform/internal/lock"
	"github.com/Leganyst/clinic-platform/internal/metrics"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

// Guard - как защищается проверка слота от гонок.
type Guard string

const (
	// GuardSerialized: блокировка слота + проверка и вставка в одной транзакции.
	GuardSerialized Guard = "serialized"
	// GuardCheckThenInsert: чтение и запись отдельными запросами.
	// Две параллельные записи на один слот могут пройти обе.
	GuardCheckThenInsert Guard = "check_then_insert"
)

type Policy struct {
	Guard Guard
	// Отклонять fecha в прошлом (с допуском PastGrace).
	RejectPast bool
	PastGrace  time.Duration
	// Повторная проверка слота при переносе записи.
	CheckOnUpdate bool
	// Размер страницы по умолчанию для ListAppointments.
	PageSize int
}

func DefaultPolicy() Policy {
	return Policy{
		Guard:         GuardSerialized,
		PastGrace:     60 * time.Second,
		CheckOnUpdate: true,
		PageSize:      10,
	}
}

// AuditLog - журнал событий; ошибки записи в него операцию не ломают.
type AuditLog interface {
	Create(ctx context.Context, e *model.Evento) error
}

type Scheduler struct {
	repo      repository.CitaRepository
	policy    Policy
	directory Directory
	audit     AuditLog
	locker    lock.SlotLocker
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Scheduler)

// WithDirectory включает подстановку имён пациента и врача из справочников.
func WithDirectory(d Directory) Option { return func(s *Scheduler) { s.directory = d } }

func WithAudit(a AuditLog) Option { return func(s *Scheduler) { s.audit = a } }

func WithLocker(l lock.SlotLocker) Option { return func(s *Scheduler) { s.locker = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Scheduler) { s.metrics = m } }

func WithLogger(l zerolog.Logger) Option { return func(s *Scheduler) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

func NewScheduler(repo repository.CitaRepository, policy Policy, opts ...Option) *Scheduler {
	if policy.Guard == "" {
		policy.Guard = GuardSerialized
	}
	s := &Scheduler{
		repo:   repo,
		policy: policy,
		locker: lock.NewKeyedMutex(),
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalizeFecha - UTC и точность Postgres (микросекунды), чтобы равенство
// моментов переживало запись и чтение.
func normalizeFecha(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Scheduler) checkNotPast(fecha time.Time) error {
	if !s.policy.RejectPast {
		return nil
	}
	if fecha.Before(s.now().Add(-s.policy.PastGrace)) {
		return invalid("fecha", "must not be in the past")
	}
	return nil
}

// CreateAppointment проверяет ввод и слот врача и сохраняет новую запись.
func (s *Scheduler) CreateAppointment(ctx context.Context, in CreateInput) (_ *model.Cita, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("create", resultOf(err), started) }()

	if err := validateCreate(&in); err != nil {
		return nil, err
	}
	fecha := normalizeFecha(in.Fecha)
	if err := s.checkNotPast(fecha); err != nil {
		return nil, err
	}
	if err := s.resolveCreate(ctx, &in); err != nil {
		return nil, err
	}

	estado := in.Estado
	if estado == "" {
		estado = model.EstadoPendiente
	}
	cita := &model.Cita{
		PacienteID:     in.PacienteID,
		PacienteNombre: in.PacienteNombre,
		DoctorID:       in.DoctorID,
		DoctorNombre:   in.DoctorNombre,
		Fecha:          fecha,
		Motivo:         in.Motivo,
		Notas:          in.Notas,
		Sede:           in.Sede,
		Estado:         estado,
	}

	err = s.guarded(ctx, cita.DoctorID, cita.Fecha, func(repo repository.CitaRepository) error {
		if err := s.checkSlot(ctx, repo, cita.DoctorID, cita.Fecha, ""); err != nil {
			return err
		}
		return repo.Create(ctx, cita)
	})
	if err != nil {
		err = mapStoreErr("create appointment", err)
		if errors.Is(err, ErrSlotConflict) {
			s.log.Warn().
				Str("doctor_id", cita.DoctorID).
				Time("fecha", cita.Fecha).
				Msg("slot conflict on create")
			s.record(ctx, model.EventoCitaConflicto, nil, "doctor_id="+cita.DoctorID+" fecha="+cita.Fecha.Format(time.RFC3339))
		}
		return nil, err
	}

	s.log.Info().
		Str("cita_id", cita.ID).
		Str("doctor_id", cita.DoctorID).
		Time("fecha", cita.Fecha).
		Msg("appointment created")
	s.record(ctx, model.EventoCitaCreada, &cita.ID, string(cita.Estado))
	return cita, nil
}

// UpdateAppointment применяет частичное изменение. id и creadaEn не меняются.
func (s *Scheduler) UpdateAppointment(ctx context.Context, id string, p Patch) (_ *model.Cita, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("update", resultOf(err), started) }()

	if id == "" {
		return nil, invalid("id", "is required")
	}
	if err := validatePatch(&p); err != nil {
		return nil, err
	}
	if p.Fecha != nil {
		f := normalizeFecha(*p.Fecha)
		p.Fecha = &f
		if err := s.checkNotPast(f); err != nil {
			return nil, err
		}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get appointment", err)
	}
	if err := s.resolvePatch(ctx, current, &p); err != nil {
		return nil, err
	}

	merged, fields := p.apply(*current)

	moved := merged.DoctorID != current.DoctorID ||
		!merged.Fecha.Equal(current.Fecha) ||
		(!current.Estado.Activa() && merged.Estado.Activa())
	needsCheck := s.policy.CheckOnUpdate && moved && merged.Estado.Activa()

	write := func(repo repository.CitaRepository) error {
		if needsCheck {
			if err := s.checkSlot(ctx, repo, merged.DoctorID, merged.Fecha, id); err != nil {
				return err
			}
		}
		return repo.UpdateFields(ctx, id, fields)
	}
	if needsCheck {
		err = s.guarded(ctx, merged.DoctorID, merged.Fecha, write)
	} else {
		err = write(s.repo)
	}
	if err != nil {
		err = mapStoreErr("update appointment", err)
		if errors.Is(err, ErrSlotConflict) {
			s.log.Warn().Str("cita_id", id).Msg("slot conflict on update")
			s.record(ctx, model.EventoCitaConflicto, &id, "update")
		}
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get appointment", err)
	}

	s.log.Info().Str("cita_id", id).Str("estado", string(updated.Estado)).Msg("appointment updated")
	s.record(ctx, model.EventoCitaActualizada, &id, string(updated.Estado))
	return updated, nil
}

// DeleteAppointment - жёсткое удаление; отсутствующий id не ошибка.
func (s *Scheduler) DeleteAppointment(ctx context.Context, id string) (err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("delete", resultOf(err), started) }()

	if id == "" {
		return invalid("id", "is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return mapStoreErr("get appointment", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreErr("delete appointment", err)
	}

	s.log.Info().Str("cita_id", id).Msg("appointment deleted")
	s.record(ctx, model.EventoCitaEliminada, &id, "")
	return nil
}

func (s *Scheduler) GetAppointment(ctx context.Context, id string) (*model.Cita, error) {
	if id == "" {
		return nil, invalid("id", "is required")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get appointment", err)
	}
	return c, nil
}

// guarded выполняет fn согласно политике защиты слота.
func (s *Scheduler) guarded(
	ctx context.Context,
	doctorID string,
	fecha time.Time,
	fn func(repo repository.CitaRepository) error,
) error {
	if s.policy.Guard == GuardCheckThenInsert {
		return fn(s.repo)
	}

	unlock, err := s.locker.Lock(ctx, lock.SlotKey(doctorID, fecha))
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.Transaction(ctx, fn)
}

// checkSlot - точное совпадение (doctorId, fecha) с любой не отменённой записью.
func (s *Scheduler) checkSlot(
	ctx context.Context,
	repo repository.CitaRepository,
	doctorID string,
	fecha time.Time,
	excludeID string,
) error {
	existing, err := repo.FindActiveBySlot(ctx, doctorID, fecha, excludeID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrSlotConflict
	}
	return nil
}

// record пишет событие аудита; сбой только логируется.
func (s *Scheduler) record(ctx context.Context, tipo model.TipoEvento, citaID *string, detalle string) {
	if s.audit == nil {
		return
	}
	e := &model.Evento{Tipo: tipo, CitaID: citaID, Detalle: detalle}
	if actor := ActorFrom(ctx); actor != "" {
		e.UsuarioID = &actor
	}
	if err := s.audit.Create(context.WithoutCancel(ctx), e); err != nil {
		s.log.Error().Err(err).Str("event", string(tipo)).Msg("audit event not recorded")
	}
}

type actorKey struct{}

// WithActor кладёт в контекст id пользователя, выполняющего операцию.
func WithActor(ctx context.Context, usuarioID string) context.Context {
	return context.WithValue(ctx, actorKey{}, usuarioID)
}

func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
