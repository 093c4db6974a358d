package scheduling_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

func TestCatalog_ListMedicosBySede(t *testing.T) {
	gormDB := newTestDB(t)
	medicos := repository.NewGormMedicoRepository(gormDB)
	ctx := context.Background()
	require.NoError(t, medicos.Create(ctx, &model.Medico{ID: "d1", Nombre: "Ruiz", Sedes: []string{"Centro"}}))
	require.NoError(t, medicos.Create(ctx, &model.Medico{ID: "d2", Nombre: "Mora", Sedes: []string{"Norte"}}))
	require.NoError(t, medicos.Create(ctx, &model.Medico{ID: "d3", Nombre: "Gil"}))

	c := scheduling.NewCatalog(medicos, repository.NewGormEventoRepository(gormDB))

	all, err := c.ListMedicos(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	centro, err := c.ListMedicos(ctx, "centro")
	require.NoError(t, err)
	ids := make([]string, 0, len(centro))
	for _, m := range centro {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"d1", "d3"}, ids)
}

func TestCatalog_History(t *testing.T) {
	gormDB := newTestDB(t)
	eventos := repository.NewGormEventoRepository(gormDB)
	s := scheduling.NewScheduler(repository.NewGormCitaRepository(gormDB), scheduling.DefaultPolicy(),
		scheduling.WithAudit(eventos))
	c := scheduling.NewCatalog(repository.NewGormMedicoRepository(gormDB), eventos)
	ctx := scheduling.WithActor(context.Background(), "u-asis")

	created, err := s.CreateAppointment(ctx, input("d1", slot))
	require.NoError(t, err)
	_, err = s.UpdateAppointment(ctx, created.ID, scheduling.Patch{Estado: ptr(model.EstadoConfirmada)})
	require.NoError(t, err)
	require.NoError(t, s.DeleteAppointment(ctx, created.ID))

	// журнал переживает удаление записи
	history, err := c.History(ctx, created.ID)
	require.NoError(t, err)
	tipos := make([]model.TipoEvento, 0, len(history))
	for _, e := range history {
		tipos = append(tipos, e.Tipo)
		require.NotNil(t, e.UsuarioID)
		assert.Equal(t, "u-asis", *e.UsuarioID)
	}
	assert.ElementsMatch(t,
		[]model.TipoEvento{model.EventoCitaCreada, model.EventoCitaActualizada, model.EventoCitaEliminada}, tipos)

	empty, err := c.History(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = c.History(ctx, "  ")
	assert.ErrorIs(t, err, scheduling.ErrValidation)
}

type brokenMedicos struct {
	repository.MedicoRepository
}

func (brokenMedicos) List(ctx context.Context) ([]model.Medico, error) {
	return nil, errors.New("connection refused")
}

func TestCatalog_StoreFailure(t *testing.T) {
	c := scheduling.NewCatalog(brokenMedicos{}, nil)
	_, err := c.ListMedicos(context.Background(), "")
	assert.ErrorIs(t, err, scheduling.ErrStoreUnavailable)
}
