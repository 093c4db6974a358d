package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	intercept := LoggingInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: "/clinica.citas.v1.CitasService/ObtenerCita"}

	resp, err := intercept(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
	if !strings.Contains(buf.String(), `"code":"OK"`) || !strings.Contains(buf.String(), info.FullMethod) {
		t.Fatalf("unexpected log line: %s", buf.String())
	}

	buf.Reset()
	_, err = intercept(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "appointment not found")
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s", status.Code(err))
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected warn level: %s", buf.String())
	}

	buf.Reset()
	_, err = intercept(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Unavailable, "store unavailable")
	})
	if status.Code(err) != codes.Unavailable || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("code=%s log=%s", status.Code(err), buf.String())
	}
}

func TestLoggingInterceptor_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	intercept := LoggingInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: "/x/Y"}

	resp, err := intercept(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	if resp != nil {
		t.Fatalf("resp = %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %s", status.Code(err))
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}
