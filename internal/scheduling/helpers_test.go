package scheduling_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-platform/internal/config"
	"github.com/Leganyst/clinic-platform/internal/db"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

var slot = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.NewGormDB(&config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gormDB))

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gormDB
}

// forEachStore гоняет тест на обоих хранилищах.
func forEachStore(t *testing.T, fn func(t *testing.T, repo repository.CitaRepository)) {
	t.Run("memory", func(t *testing.T) { fn(t, repository.NewMemoryCitaRepository()) })
	t.Run("gorm", func(t *testing.T) { fn(t, repository.NewGormCitaRepository(newTestDB(t))) })
}

func input(doctorID string, fecha time.Time) scheduling.CreateInput {
	return scheduling.CreateInput{
		PacienteID:     "p1",
		PacienteNombre: "Ana López",
		DoctorID:       doctorID,
		DoctorNombre:   "Dra. " + doctorID,
		Fecha:          fecha,
		Motivo:         "control",
	}
}

func ptr[T any](v T) *T { return &v }

// barrierRepo задерживает каждого участника после проверки слота, пока
// проверку не пройдут все n: так воспроизводится гонка check-then-insert.
type barrierRepo struct {
	repository.CitaRepository
	wg *sync.WaitGroup
}

func newBarrierRepo(inner repository.CitaRepository, n int) *barrierRepo {
	wg := &sync.WaitGroup{}
	wg.Add(n)
	return &barrierRepo{CitaRepository: inner, wg: wg}
}

func (b *barrierRepo) FindActiveBySlot(ctx context.Context, doctorID string, fecha time.Time, excludeID string) ([]model.Cita, error) {
	res, err := b.CitaRepository.FindActiveBySlot(ctx, doctorID, fecha, excludeID)
	b.wg.Done()
	b.wg.Wait()
	return res, err
}

type recordingAudit struct {
	mu     sync.Mutex
	events []model.Evento
	err    error
}

func (a *recordingAudit) Create(ctx context.Context, e *model.Evento) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, *e)
	return nil
}

func (a *recordingAudit) types() []model.TipoEvento {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.TipoEvento, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Tipo)
	}
	return out
}

type fakeDirectory struct {
	pacientes map[string]*model.Paciente
	medicos   map[string]*model.Medico
}

func (d *fakeDirectory) Paciente(ctx context.Context, id string) (*model.Paciente, error) {
	if p, ok := d.pacientes[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (d *fakeDirectory) Medico(ctx context.Context, id string) (*model.Medico, error) {
	if m, ok := d.medicos[id]; ok {
		return m, nil
	}
	return nil, repository.ErrNotFound
}
