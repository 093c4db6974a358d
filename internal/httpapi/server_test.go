package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/httpapi"
	"github.com/Leganyst/clinic-platform/internal/metrics"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

var today = time.Date(2025, 6, 10, 7, 0, 0, 0, time.UTC)

type users map[string]*calendar.User

func (u users) FindUser(ctx context.Context, id string) (*calendar.User, error) {
	return u[id], nil
}

// medicosStub и eventosStub - справочник и журнал в памяти.
type medicosStub []model.Medico

func (m medicosStub) GetByID(ctx context.Context, id string) (*model.Medico, error) {
	for i := range m {
		if m[i].ID == id {
			return &m[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m medicosStub) List(ctx context.Context) ([]model.Medico, error) {
	return append([]model.Medico(nil), m...), nil
}

func (m medicosStub) Create(ctx context.Context, med *model.Medico) error {
	return errors.New("read only")
}

type eventosStub struct {
	mu    sync.Mutex
	items []model.Evento
}

func (e *eventosStub) Create(ctx context.Context, ev *model.Evento) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, *ev)
	return nil
}

func (e *eventosStub) ListByCita(ctx context.Context, citaID string) ([]model.Evento, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.Evento
	for _, ev := range e.items {
		if ev.CitaID != nil && *ev.CitaID == citaID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type testServer struct {
	e      *echo.Echo
	tokens *auth.Tokens
}

func newTestServer(t *testing.T, repo repository.CitaRepository) *testServer {
	t.Helper()
	now := func() time.Time { return today }
	m := metrics.New()
	eventos := &eventosStub{}
	sched := scheduling.NewScheduler(repo, scheduling.DefaultPolicy(),
		scheduling.WithMetrics(m), scheduling.WithClock(now), scheduling.WithAudit(eventos))
	dash := scheduling.NewDashboard(repo, time.UTC, now)
	catalog := scheduling.NewCatalog(medicosStub{
		{ID: "d1", Nombre: "Dra. Ruiz", Sedes: []string{"Centro"}},
		{ID: "d2", Nombre: "Dr. Mora", Sedes: []string{"Norte"}},
	}, eventos)

	tokens := auth.NewTokens("test-secret", "clinica-core", time.Hour)
	store := users{
		"u-asis": {ID: "u-asis", Role: calendar.UserRoleAsistente, Status: calendar.UserStatusActive},
		"u-doc":  {ID: "u-doc", Role: calendar.UserRoleDoctor, Status: calendar.UserStatusActive, MedicoID: "d1"},
		"u-pac":  {ID: "u-pac", Role: calendar.UserRolePaciente, Status: calendar.UserStatusActive, PacienteID: "p1"},
	}

	e := httpapi.NewServer(httpapi.Deps{
		Handler: httpapi.NewHandler(sched, dash, catalog, 0),
		Auth:    auth.NewAuthenticator(tokens, store),
		Metrics: m,
		Logger:  zerolog.Nop(),
	})
	return &testServer{e: e, tokens: tokens}
}

func (s *testServer) do(t *testing.T, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		tok, err := s.tokens.Issue(&calendar.ValidatedUser{ID: user})
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const citaBody = `{
	"pacienteId": "p1", "pacienteNombre": "Ana López",
	"doctorId": "d1", "doctorNombre": "Dra. Ruiz",
	"fecha": "2025-06-10T09:00:00Z", "motivo": "control"
}`

func TestCitas_CRUD(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	rec := s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Cita](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.EstadoPendiente, created.Estado)

	rec = s.do(t, "u-doc", http.MethodGet, "/api/v1/citas/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[model.Cita](t, rec).ID)

	rec = s.do(t, "u-doc", http.MethodPatch, "/api/v1/citas/"+created.ID, `{"estado":"confirmada"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Cita](t, rec)
	assert.Equal(t, model.EstadoConfirmada, updated.Estado)
	assert.True(t, updated.CreadaEn.Equal(created.CreadaEn))

	rec = s.do(t, "u-asis", http.MethodDelete, "/api/v1/citas/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, "u-asis", http.MethodDelete, "/api/v1/citas/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, "u-asis", http.MethodGet, "/api/v1/citas/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[httpapi.ErrorResponse](t, rec).Code)
}

func TestCitas_ErrorMapping(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	require.Equal(t, http.StatusCreated, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody).Code)

	rec := s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_conflict", decode[httpapi.ErrorResponse](t, rec).Code)

	rec = s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", `{"pacienteId":"p1","doctorId":"d1","fecha":"2025-06-10T11:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpapi.ErrorResponse](t, rec)
	assert.Equal(t, "validation", body.Code)
	assert.Contains(t, body.Fields, "pacienteNombre")

	rec = s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", `{"fecha": 12`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[httpapi.ErrorResponse](t, rec).Code)

	rec = s.do(t, "u-asis", http.MethodGet, "/api/v1/citas?desde=ayer", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[httpapi.ErrorResponse](t, rec).Fields, "desde")

	rec = s.do(t, "u-asis", http.MethodGet, "/api/v1/citas?cursor=zzz", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCitas_BodyFieldErrors(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	bad := strings.Replace(citaBody, "2025-06-10T09:00:00Z", "mañana", 1)
	rec := s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpapi.ErrorResponse](t, rec)
	assert.Equal(t, "validation", body.Code)
	assert.Contains(t, body.Fields, "fecha")

	rec = s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", strings.Replace(citaBody, `"p1"`, "5", 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode[httpapi.ErrorResponse](t, rec)
	assert.Equal(t, "validation", body.Code)
	assert.Contains(t, body.Fields, "pacienteId")

	created := decode[model.Cita](t, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody))
	rec = s.do(t, "u-asis", http.MethodPatch, "/api/v1/citas/"+created.ID, `{"fecha":"10/06/2025"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[httpapi.ErrorResponse](t, rec).Fields, "fecha")
}

func TestMedicos_List(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	for _, user := range []string{"u-asis", "u-doc", "u-pac"} {
		rec := s.do(t, user, http.MethodGet, "/api/v1/medicos", "")
		require.Equal(t, http.StatusOK, rec.Code, user)
		assert.Len(t, decode[[]model.Medico](t, rec), 2, user)
	}

	rec := s.do(t, "u-pac", http.MethodGet, "/api/v1/medicos?sede=norte", "")
	require.Equal(t, http.StatusOK, rec.Code)
	medicos := decode[[]model.Medico](t, rec)
	require.Len(t, medicos, 1)
	assert.Equal(t, "d2", medicos[0].ID)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "", http.MethodGet, "/api/v1/medicos", "").Code)
}

func TestCitas_History(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	created := decode[model.Cita](t, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody))
	require.Equal(t, http.StatusOK,
		s.do(t, "u-doc", http.MethodPatch, "/api/v1/citas/"+created.ID, `{"estado":"confirmada"}`).Code)

	rec := s.do(t, "u-doc", http.MethodGet, "/api/v1/citas/"+created.ID+"/eventos", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eventos := decode[[]model.Evento](t, rec)
	require.Len(t, eventos, 2)
	assert.Equal(t, model.EventoCitaCreada, eventos[0].Tipo)
	require.NotNil(t, eventos[0].UsuarioID)
	assert.Equal(t, "u-asis", *eventos[0].UsuarioID)
	assert.Equal(t, model.EventoCitaActualizada, eventos[1].Tipo)

	rec = s.do(t, "u-asis", http.MethodGet, "/api/v1/citas/missing/eventos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, "u-pac", http.MethodGet, "/api/v1/citas/"+created.ID+"/eventos", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCitas_Authorization(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "", http.MethodGet, "/api/v1/citas", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "ghost", http.MethodGet, "/api/v1/citas", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-doc", http.MethodPost, "/api/v1/citas", citaBody).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-pac", http.MethodPost, "/api/v1/citas", citaBody).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-doc", http.MethodDelete, "/api/v1/citas/x", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-pac", http.MethodGet, "/api/v1/dashboard/hoy", "").Code)

	own := decode[model.Cita](t, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody))
	other := strings.Replace(strings.Replace(citaBody, `"p1"`, `"p2"`, 1), "09:00", "10:00", 1)
	foreign := decode[model.Cita](t, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", other))

	assert.Equal(t, http.StatusOK, s.do(t, "u-pac", http.MethodGet, "/api/v1/citas/"+own.ID, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-pac", http.MethodGet, "/api/v1/citas/"+foreign.ID, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, "u-pac", http.MethodPatch, "/api/v1/citas/"+own.ID, `{"notas":"x"}`).Code)

	// пациент видит только свои записи
	rec := s.do(t, "u-pac", http.MethodGet, "/api/v1/citas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[httpapi.PageResponse](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, own.ID, page.Items[0].ID)

	assert.Equal(t, http.StatusForbidden, s.do(t, "u-pac", http.MethodGet, "/api/v1/citas?pacienteId=p2", "").Code)

	rec = s.do(t, "u-doc", http.MethodGet, "/api/v1/citas?pacienteId=p2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[httpapi.PageResponse](t, rec).Items, 1)
}

func TestCitas_ListPagination(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())
	for i := 0; i < 5; i++ {
		body := strings.Replace(citaBody, "09:00", time.Date(2025, 6, 10, 9+i, 0, 0, 0, time.UTC).Format("15:04"), 1)
		require.Equal(t, http.StatusCreated, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", body).Code)
	}

	var seen []string
	path := "/api/v1/citas?doctorId=d1&pageSize=2"
	for {
		rec := s.do(t, "u-asis", http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		page := decode[httpapi.PageResponse](t, rec)
		for _, c := range page.Items {
			seen = append(seen, c.ID)
		}
		if page.NextCursor == "" {
			break
		}
		path = "/api/v1/citas?doctorId=d1&pageSize=2&cursor=" + page.NextCursor
	}
	assert.Len(t, seen, 5)
}

func TestDashboardHoy(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())
	for i := 0; i < 3; i++ {
		body := strings.Replace(citaBody, "09:00", time.Date(2025, 6, 10, 9+i, 0, 0, 0, time.UTC).Format("15:04"), 1)
		require.Equal(t, http.StatusCreated, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", body).Code)
	}
	tomorrow := strings.Replace(citaBody, "2025-06-10", "2025-06-11", 1)
	require.Equal(t, http.StatusCreated, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", tomorrow).Code)

	rec := s.do(t, "u-doc", http.MethodGet, "/api/v1/dashboard/hoy?max=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[httpapi.TodayResponse](t, rec)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.PorEstado.Pendiente)
	require.Len(t, resp.Proximas, 2)
	assert.True(t, resp.Proximas[0].Fecha.Before(resp.Proximas[1].Fecha))

	assert.Equal(t, http.StatusBadRequest, s.do(t, "u-doc", http.MethodGet, "/api/v1/dashboard/hoy?max=abc", "").Code)
}

type failingRepo struct {
	repository.CitaRepository
}

func (failingRepo) GetByID(ctx context.Context, id string) (*model.Cita, error) {
	return nil, errors.New("connection refused")
}

func TestStoreUnavailable(t *testing.T) {
	s := newTestServer(t, failingRepo{CitaRepository: repository.NewMemoryCitaRepository()})

	rec := s.do(t, "u-asis", http.MethodGet, "/api/v1/citas/c1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[httpapi.ErrorResponse](t, rec)
	assert.Equal(t, "unavailable", body.Code)
	assert.NotContains(t, body.Error, "connection refused")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, repository.NewMemoryCitaRepository())
	require.Equal(t, http.StatusCreated, s.do(t, "u-asis", http.MethodPost, "/api/v1/citas", citaBody).Code)

	assert.Equal(t, http.StatusOK, s.do(t, "", http.MethodGet, "/healthz", "").Code)

	rec := s.do(t, "", http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `citas_operations_total{operation="create",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/citas",status_code="201"`)
}

func TestHealthzReportsUnavailable(t *testing.T) {
	e := httpapi.NewServer(httpapi.Deps{
		Handler: httpapi.NewHandler(nil, nil, nil, 0),
		Auth:    auth.NewAuthenticator(auth.NewTokens("s", "", time.Hour), users{}),
		Health:  func(ctx context.Context) error { return errors.New("db down") },
		Logger:  zerolog.Nop(),
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
