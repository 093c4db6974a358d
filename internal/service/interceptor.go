package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor - одна строка на вызов и перехват паники.
// Ставится первым в цепочке, до аутентификации.
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				logger.Error().
					Str("method", info.FullMethod).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			evt := logger.Info()
			switch code {
			case codes.OK:
			case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
				evt = logger.Error().Err(err)
			default:
				evt = logger.Warn().Str("error", status.Convert(err).Message())
			}
			evt.
				Str("method", info.FullMethod).
				Str("code", code.String()).
				Dur("latency", time.Since(start)).
				Msg("rpc")
		}()
		return handler(ctx, req)
	}
}
