// Package citasv1 - описание gRPC-сервисов clinica.citas.v1 и
// clinica.identidad.v1. Сообщения - google.protobuf.Struct, поля названы
// как в JSON-представлении записи, моменты времени - RFC 3339.
package citasv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CitasServiceName     = "clinica.citas.v1.CitasService"
	IdentidadServiceName = "clinica.identidad.v1.IdentidadService"

	CrearCitaMethod      = "/" + CitasServiceName + "/CrearCita"
	ObtenerCitaMethod    = "/" + CitasServiceName + "/ObtenerCita"
	ActualizarCitaMethod = "/" + CitasServiceName + "/ActualizarCita"
	EliminarCitaMethod   = "/" + CitasServiceName + "/EliminarCita"
	ListarCitasMethod    = "/" + CitasServiceName + "/ListarCitas"
	ResumenHoyMethod     = "/" + CitasServiceName + "/ResumenHoy"
	ListarMedicosMethod  = "/" + CitasServiceName + "/ListarMedicos"
	HistorialCitaMethod  = "/" + CitasServiceName + "/HistorialCita"
	PerfilMethod         = "/" + IdentidadServiceName + "/Perfil"
)

type CitasServiceServer interface {
	CrearCita(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ObtenerCita(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActualizarCita(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EliminarCita(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListarCitas(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResumenHoy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListarMedicos(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HistorialCita(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCitasServiceServer встраивается в реализации.
type UnimplementedCitasServiceServer struct{}

func (UnimplementedCitasServiceServer) CrearCita(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CrearCita not implemented")
}

func (UnimplementedCitasServiceServer) ObtenerCita(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ObtenerCita not implemented")
}

func (UnimplementedCitasServiceServer) ActualizarCita(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ActualizarCita not implemented")
}

func (UnimplementedCitasServiceServer) EliminarCita(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EliminarCita not implemented")
}

func (UnimplementedCitasServiceServer) ListarCitas(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListarCitas not implemented")
}

func (UnimplementedCitasServiceServer) ResumenHoy(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResumenHoy not implemented")
}

func (UnimplementedCitasServiceServer) ListarMedicos(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListarMedicos not implemented")
}

func (UnimplementedCitasServiceServer) HistorialCita(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HistorialCita not implemented")
}

type IdentidadServiceServer interface {
	Perfil(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// unary строит обработчик метода с поддержкой интерсепторов.
func unary(
	fullMethod string,
	call func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var CitasServiceDesc = grpc.ServiceDesc{
	ServiceName: CitasServiceName,
	HandlerType: (*CitasServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CrearCita", Handler: unary(CrearCitaMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).CrearCita(ctx, in)
			})},
		{MethodName: "ObtenerCita", Handler: unary(ObtenerCitaMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).ObtenerCita(ctx, in)
			})},
		{MethodName: "ActualizarCita", Handler: unary(ActualizarCitaMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).ActualizarCita(ctx, in)
			})},
		{MethodName: "EliminarCita", Handler: unary(EliminarCitaMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).EliminarCita(ctx, in)
			})},
		{MethodName: "ListarCitas", Handler: unary(ListarCitasMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).ListarCitas(ctx, in)
			})},
		{MethodName: "ResumenHoy", Handler: unary(ResumenHoyMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).ResumenHoy(ctx, in)
			})},
		{MethodName: "ListarMedicos", Handler: unary(ListarMedicosMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).ListarMedicos(ctx, in)
			})},
		{MethodName: "HistorialCita", Handler: unary(HistorialCitaMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(CitasServiceServer).HistorialCita(ctx, in)
			})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinica/citas/v1/citas.proto",
}

var IdentidadServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentidadServiceName,
	HandlerType: (*IdentidadServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Perfil", Handler: unary(PerfilMethod,
			func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(IdentidadServiceServer).Perfil(ctx, in)
			})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinica/identidad/v1/identidad.proto",
}

func RegisterCitasServiceServer(s grpc.ServiceRegistrar, srv CitasServiceServer) {
	s.RegisterService(&CitasServiceDesc, srv)
}

func RegisterIdentidadServiceServer(s grpc.ServiceRegistrar, srv IdentidadServiceServer) {
	s.RegisterService(&IdentidadServiceDesc, srv)
}

// Client - клиент обоих сервисов; ответы - Struct.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call вызывает унарный метод по полному имени (например, CrearCitaMethod).
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
