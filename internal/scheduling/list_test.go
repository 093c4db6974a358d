package scheduling_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

// collect проходит все страницы и возвращает id по порядку.
func collect(t *testing.T, s *scheduling.Scheduler, f scheduling.ListFilter) ([]string, int) {
	t.Helper()
	var (
		ids   []string
		pages int
	)
	for {
		page, err := s.ListAppointments(context.Background(), f)
		require.NoError(t, err)
		pages++
		for _, c := range page.Items {
			ids = append(ids, c.ID)
		}
		if page.NextCursor == "" {
			assert.False(t, page.HasNext)
			return ids, pages
		}
		f.Cursor = page.NextCursor
		require.Less(t, pages, 100, "pagination does not terminate")
	}
}

func TestListAppointments_PaginationIsExhaustive(t *testing.T) {
	for _, total := range []int{25, 20, 0} {
		t.Run(fmt.Sprintf("%d rows", total), func(t *testing.T) {
			forEachStore(t, func(t *testing.T, repo repository.CitaRepository) {
				s := scheduling.NewScheduler(repo, scheduling.DefaultPolicy())
				want := make(map[string]bool, total)
				for i := 0; i < total; i++ {
					c, err := s.CreateAppointment(context.Background(), input("d1", slot.Add(time.Duration(i)*time.Hour)))
					require.NoError(t, err)
					want[c.ID] = true
				}

				ids, pages := collect(t, s, scheduling.ListFilter{PageSize: 10})

				require.Len(t, ids, total)
				seen := make(map[string]bool, total)
				for _, id := range ids {
					assert.False(t, seen[id], "duplicate %s", id)
					seen[id] = true
				}
				assert.Equal(t, want, seen)

				wantPages := map[int]int{25: 3, 20: 2, 0: 1}[total]
				assert.Equal(t, wantPages, pages)
			})
		})
	}
}

func TestListAppointments_OrderAndTieBreak(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo repository.CitaRepository) {
		s := scheduling.NewScheduler(repo, scheduling.DefaultPolicy())
		ctx := context.Background()

		// одинаковая fecha у разных врачей: порядок решает id
		for i := 0; i < 5; i++ {
			_, err := s.CreateAppointment(ctx, input(fmt.Sprintf("d%d", i), slot))
			require.NoError(t, err)
		}
		_, err := s.CreateAppointment(ctx, input("d0", slot.Add(time.Hour)))
		require.NoError(t, err)

		var all []model.Cita
		f := scheduling.ListFilter{PageSize: 2}
		for {
			page, err := s.ListAppointments(ctx, f)
			require.NoError(t, err)
			all = append(all, page.Items...)
			if page.NextCursor == "" {
				break
			}
			f.Cursor = page.NextCursor
		}

		require.Len(t, all, 6)
		assert.True(t, all[0].Fecha.Equal(slot.Add(time.Hour)))
		for i := 1; i < len(all)-1; i++ {
			assert.True(t, all[i].Fecha.Equal(slot))
			assert.Greater(t, all[i].ID, all[i+1].ID)
		}
	})
}

func TestListAppointments_Filters(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo repository.CitaRepository) {
		s := scheduling.NewScheduler(repo, scheduling.DefaultPolicy())
		ctx := context.Background()

		a, err := s.CreateAppointment(ctx, input("d1", slot))
		require.NoError(t, err)
		_, err = s.CreateAppointment(ctx, input("d2", slot.Add(2*time.Hour)))
		require.NoError(t, err)
		other := input("d1", slot.Add(24*time.Hour))
		other.PacienteID = "p2"
		_, err = s.CreateAppointment(ctx, other)
		require.NoError(t, err)
		_, err = s.UpdateAppointment(ctx, a.ID, scheduling.Patch{Estado: ptr(model.EstadoConfirmada)})
		require.NoError(t, err)

		count := func(f scheduling.ListFilter) int {
			page, err := s.ListAppointments(ctx, f)
			require.NoError(t, err)
			return len(page.Items)
		}
		desde, hasta := slot, slot.Add(3*time.Hour)

		assert.Equal(t, 3, count(scheduling.ListFilter{}))
		assert.Equal(t, 2, count(scheduling.ListFilter{DoctorID: "d1"}))
		assert.Equal(t, 1, count(scheduling.ListFilter{PacienteID: "p2"}))
		assert.Equal(t, 1, count(scheduling.ListFilter{Estado: model.EstadoConfirmada}))
		assert.Equal(t, 2, count(scheduling.ListFilter{Desde: &desde, Hasta: &hasta}))
		assert.Equal(t, 1, count(scheduling.ListFilter{DoctorID: "d1", Desde: &desde, Hasta: &hasta}))
		// hasta не включительно
		assert.Equal(t, 1, count(scheduling.ListFilter{Desde: &desde, Hasta: ptr(slot.Add(2 * time.Hour))}))
	})
}

func TestListAppointments_InvalidInput(t *testing.T) {
	s := scheduling.NewScheduler(repository.NewMemoryCitaRepository(), scheduling.DefaultPolicy())
	ctx := context.Background()

	_, err := s.ListAppointments(ctx, scheduling.ListFilter{Cursor: "%%%"})
	assert.ErrorIs(t, err, scheduling.ErrValidation)

	_, err = s.ListAppointments(ctx, scheduling.ListFilter{Estado: "perdida"})
	assert.ErrorIs(t, err, scheduling.ErrValidation)

	_, err = s.ListAppointments(ctx, scheduling.ListFilter{Desde: ptr(slot), Hasta: ptr(slot)})
	assert.ErrorIs(t, err, scheduling.ErrValidation)
}

func TestListAppointments_EmptyPageHasItems(t *testing.T) {
	s := scheduling.NewScheduler(repository.NewMemoryCitaRepository(), scheduling.DefaultPolicy())

	page, err := s.ListAppointments(context.Background(), scheduling.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 10, page.PageSize)
	assert.Empty(t, page.NextCursor)
}
