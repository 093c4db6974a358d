package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

type Handler struct {
	sched    *scheduling.Scheduler
	dash     *scheduling.Dashboard
	catalog  *scheduling.Catalog
	todayMax int
}

// NewHandler: catalog может быть nil, тогда /medicos и журнал не регистрируются.
func NewHandler(sched *scheduling.Scheduler, dash *scheduling.Dashboard, catalog *scheduling.Catalog, todayMax int) *Handler {
	if todayMax <= 0 {
		todayMax = scheduling.DefaultTodayMax
	}
	return &Handler{sched: sched, dash: dash, catalog: catalog, todayMax: todayMax}
}

// RegisterRoutes вешает маршруты; права берутся из auth.Authorize.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/citas", h.CreateCita, auth.Require(auth.OpCreate))
	api.GET("/citas", h.ListCitas, auth.Require(auth.OpList))
	api.GET("/citas/:id", h.GetCita, auth.Require(auth.OpGet))
	api.PATCH("/citas/:id", h.UpdateCita, auth.Require(auth.OpUpdate))
	api.DELETE("/citas/:id", h.DeleteCita, auth.Require(auth.OpDelete))
	api.GET("/dashboard/hoy", h.Today, auth.Require(auth.OpDashboard))

	if h.catalog != nil {
		api.GET("/citas/:id/eventos", h.History, auth.Require(auth.OpHistory))
		api.GET("/medicos", h.ListMedicos, auth.Require(auth.OpMedicos))
	}
}

// PageResponse - страница списка записей.
type PageResponse struct {
	Items      []model.Cita `json:"items"`
	PageSize   int          `json:"pageSize"`
	HasNext    bool         `json:"hasNext"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// TodayResponse - сводка на сегодня.
type TodayResponse struct {
	Desde     time.Time               `json:"desde"`
	Hasta     time.Time               `json:"hasta"`
	PorEstado scheduling.StatusCounts `json:"porEstado"`
	Total     int                     `json:"total"`
	Proximas  []model.Cita            `json:"proximas"`
}

func (h *Handler) CreateCita(c echo.Context) error {
	var in scheduling.CreateInput
	if err := c.Bind(&in); err != nil {
		return bindError(err)
	}
	cita, err := h.sched.CreateAppointment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cita)
}

func (h *Handler) GetCita(c echo.Context) error {
	ctx := c.Request().Context()
	cita, err := h.sched.GetAppointment(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	p, _ := auth.PrincipalFrom(ctx)
	if !auth.CanSee(p, cita.PacienteID) {
		return auth.ErrForbidden
	}
	return c.JSON(http.StatusOK, cita)
}

func (h *Handler) ListCitas(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	p, _ := auth.PrincipalFrom(ctx)
	own, err := auth.OwnPaciente(p)
	if err != nil {
		return err
	}
	if own != "" {
		if f.PacienteID != "" && f.PacienteID != own {
			return auth.ErrForbidden
		}
		f.PacienteID = own
	}

	page, err := h.sched.ListAppointments(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PageResponse{
		Items:      page.Items,
		PageSize:   page.PageSize,
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
	})
}

func (h *Handler) UpdateCita(c echo.Context) error {
	var p scheduling.Patch
	if err := c.Bind(&p); err != nil {
		return bindError(err)
	}
	cita, err := h.sched.UpdateAppointment(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cita)
}

func (h *Handler) DeleteCita(c echo.Context) error {
	if err := h.sched.DeleteAppointment(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Today(c echo.Context) error {
	limit := h.todayMax
	if raw := c.QueryParam("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > calendar.MaxPageSize {
			return &scheduling.ValidationError{Field: "max", Message: "must be between 1 and 100"}
		}
		limit = n
	}

	ctx := c.Request().Context()
	counts, err := h.dash.CountTodayByStatus(ctx)
	if err != nil {
		return err
	}
	proximas, err := h.dash.ListTodayAppointments(ctx, limit)
	if err != nil {
		return err
	}
	day := h.dash.Today()
	return c.JSON(http.StatusOK, TodayResponse{
		Desde:     day.Start,
		Hasta:     day.End,
		PorEstado: counts,
		Total:     counts.Total(),
		Proximas:  proximas,
	})
}

func (h *Handler) History(c echo.Context) error {
	eventos, err := h.catalog.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eventos)
}

// ListMedicos - врачи для выбора при записи, ?sede= сужает список.
func (h *Handler) ListMedicos(c echo.Context) error {
	medicos, err := h.catalog.ListMedicos(c.Request().Context(), c.QueryParam("sede"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, medicos)
}

// bindError: неразобранная дата или поле не того типа - ошибка валидации
// с именем поля, остальное - 400 без деталей.
func bindError(err error) error {
	var perr *time.ParseError
	if errors.As(err, &perr) {
		return &scheduling.ValidationError{Field: "fecha", Message: "must be an RFC 3339 timestamp"}
	}
	var terr *json.UnmarshalTypeError
	if errors.As(err, &terr) && terr.Field != "" {
		return &scheduling.ValidationError{Field: terr.Field, Message: "has the wrong type"}
	}
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
}

// listFilter читает фильтры из query: estado, doctorId, pacienteId,
// desde, hasta (RFC 3339), pageSize, cursor.
func listFilter(c echo.Context) (scheduling.ListFilter, error) {
	f := scheduling.ListFilter{
		Estado:     model.EstadoCita(c.QueryParam("estado")),
		DoctorID:   c.QueryParam("doctorId"),
		PacienteID: c.QueryParam("pacienteId"),
		Cursor:     c.QueryParam("cursor"),
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"desde", &f.Desde},
		{"hasta", &f.Hasta},
	} {
		raw := c.QueryParam(q.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, &scheduling.ValidationError{Field: q.name, Message: "must be an RFC 3339 timestamp"}
		}
		*q.dst = &t
	}
	if raw := c.QueryParam("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, &scheduling.ValidationError{Field: "pageSize", Message: "must be a positive integer"}
		}
		f.PageSize = n
	}
	return f, nil
}
