package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	citasv1 "github.com/Leganyst/clinic-platform/internal/api/citas/v1"
	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/calendar"
	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

// CitasService - gRPC-обёртка над ядром записи.
type CitasService struct {
	citasv1.UnimplementedCitasServiceServer

	sched    *scheduling.Scheduler
	dash     *scheduling.Dashboard
	catalog  *scheduling.Catalog
	todayMax int
	log      zerolog.Logger
}

// NewCitasService: без catalog ListarMedicos и HistorialCita отвечают Unimplemented.
func NewCitasService(
	sched *scheduling.Scheduler,
	dash *scheduling.Dashboard,
	catalog *scheduling.Catalog,
	todayMax int,
	log zerolog.Logger,
) *CitasService {
	if todayMax <= 0 {
		todayMax = scheduling.DefaultTodayMax
	}
	return &CitasService{sched: sched, dash: dash, catalog: catalog, todayMax: todayMax, log: log}
}

type idRequest struct {
	ID string `json:"id"`
}

type updateRequest struct {
	ID string `json:"id"`
	scheduling.Patch
}

type listRequest struct {
	Estado     model.EstadoCita `json:"estado"`
	DoctorID   string           `json:"doctorId"`
	PacienteID string           `json:"pacienteId"`
	Desde      *time.Time       `json:"desde"`
	Hasta      *time.Time       `json:"hasta"`
	PageSize   int              `json:"pageSize"`
	Cursor     string           `json:"cursor"`
}

type listResponse struct {
	Items      []model.Cita `json:"items"`
	PageSize   int          `json:"pageSize"`
	HasNext    bool         `json:"hasNext"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

type todayRequest struct {
	Max int `json:"max"`
}

type medicosRequest struct {
	Sede string `json:"sede"`
}

// Struct - всегда объект, поэтому списки отдаются под items.
type medicosResponse struct {
	Items []model.Medico `json:"items"`
}

type historyResponse struct {
	Items []model.Evento `json:"items"`
}

type todayResponse struct {
	Desde     time.Time               `json:"desde"`
	Hasta     time.Time               `json:"hasta"`
	PorEstado scheduling.StatusCounts `json:"porEstado"`
	Total     int                     `json:"total"`
	Proximas  []model.Cita            `json:"proximas"`
}

// principal проверяет права вызывающего на операцию.
func principal(ctx context.Context, op auth.Operation) (*auth.Principal, error) {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if err := auth.Authorize(p, op); err != nil {
		return nil, auth.GRPCError(err)
	}
	return p, nil
}

func decode(in *structpb.Struct, dst any) error {
	if err := decodeStruct(in, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func (s *CitasService) CrearCita(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpCreate); err != nil {
		return nil, err
	}
	var in scheduling.CreateInput
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	cita, err := s.sched.CreateAppointment(ctx, in)
	if err != nil {
		return nil, s.statusError(err)
	}
	return s.reply(cita)
}

func (s *CitasService) ObtenerCita(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := principal(ctx, auth.OpGet)
	if err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	cita, err := s.sched.GetAppointment(ctx, in.ID)
	if err != nil {
		return nil, s.statusError(err)
	}
	if !auth.CanSee(p, cita.PacienteID) {
		return nil, status.Error(codes.PermissionDenied, "appointment belongs to another patient")
	}
	return s.reply(cita)
}

func (s *CitasService) ActualizarCita(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpUpdate); err != nil {
		return nil, err
	}
	var in updateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	cita, err := s.sched.UpdateAppointment(ctx, in.ID, in.Patch)
	if err != nil {
		return nil, s.statusError(err)
	}
	return s.reply(cita)
}

func (s *CitasService) EliminarCita(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpDelete); err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.sched.DeleteAppointment(ctx, in.ID); err != nil {
		return nil, s.statusError(err)
	}
	return &structpb.Struct{}, nil
}

func (s *CitasService) ListarCitas(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := principal(ctx, auth.OpList)
	if err != nil {
		return nil, err
	}
	var in listRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	own, err := auth.OwnPaciente(p)
	if err != nil {
		return nil, auth.GRPCError(err)
	}
	if own != "" {
		if in.PacienteID != "" && in.PacienteID != own {
			return nil, status.Error(codes.PermissionDenied, "patients can only list their own appointments")
		}
		in.PacienteID = own
	}

	page, err := s.sched.ListAppointments(ctx, scheduling.ListFilter{
		Estado:     in.Estado,
		DoctorID:   in.DoctorID,
		PacienteID: in.PacienteID,
		Desde:      in.Desde,
		Hasta:      in.Hasta,
		PageSize:   in.PageSize,
		Cursor:     in.Cursor,
	})
	if err != nil {
		return nil, s.statusError(err)
	}
	return s.reply(listResponse{
		Items:      page.Items,
		PageSize:   page.PageSize,
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
	})
}

func (s *CitasService) ResumenHoy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpDashboard); err != nil {
		return nil, err
	}
	var in todayRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	limit := s.todayMax
	if in.Max != 0 {
		if in.Max < 0 || in.Max > calendar.MaxPageSize {
			return nil, status.Error(codes.InvalidArgument, "max must be between 1 and 100")
		}
		limit = in.Max
	}

	counts, err := s.dash.CountTodayByStatus(ctx)
	if err != nil {
		return nil, s.statusError(err)
	}
	proximas, err := s.dash.ListTodayAppointments(ctx, limit)
	if err != nil {
		return nil, s.statusError(err)
	}
	day := s.dash.Today()
	return s.reply(todayResponse{
		Desde:     day.Start,
		Hasta:     day.End,
		PorEstado: counts,
		Total:     counts.Total(),
		Proximas:  proximas,
	})
}

func (s *CitasService) ListarMedicos(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpMedicos); err != nil {
		return nil, err
	}
	if s.catalog == nil {
		return s.UnimplementedCitasServiceServer.ListarMedicos(ctx, req)
	}
	var in medicosRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	medicos, err := s.catalog.ListMedicos(ctx, in.Sede)
	if err != nil {
		return nil, s.statusError(err)
	}
	return s.reply(medicosResponse{Items: medicos})
}

func (s *CitasService) HistorialCita(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := principal(ctx, auth.OpHistory); err != nil {
		return nil, err
	}
	if s.catalog == nil {
		return s.UnimplementedCitasServiceServer.HistorialCita(ctx, req)
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	eventos, err := s.catalog.History(ctx, in.ID)
	if err != nil {
		return nil, s.statusError(err)
	}
	return s.reply(historyResponse{Items: eventos})
}

func (s *CitasService) reply(v any) (*structpb.Struct, error) {
	out, err := encodeStruct(v)
	if err != nil {
		s.log.Error().Err(err).Msg("encode grpc response")
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

// statusError переводит ошибки ядра в коды gRPC.
func (s *CitasService) statusError(err error) error {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, scheduling.ErrSlotConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		s.log.Error().Err(err).Msg("store unavailable")
		return status.Error(codes.Unavailable, "store unavailable")
	}
	s.log.Error().Err(err).Msg("unexpected error")
	return status.Error(codes.Internal, "internal error")
}
