package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

// Middleware - проверка bearer-токена для echo. Principal кладётся в контекст
// запроса, id пользователя - в контекст ядра для аудита.
func Middleware(a *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			p, err := a.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return httpError(err)
			}
			ctx := scheduling.WithActor(WithPrincipal(req.Context(), p), p.UsuarioID)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// Require пропускает запрос, если Authorize разрешает операцию роли
// пользователя. Та же таблица прав, что и в gRPC.
func Require(op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := PrincipalFrom(c.Request().Context())
			if err := Authorize(p, op); err != nil {
				return httpError(err)
			}
			return next(c)
		}
	}
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "identity store unavailable")
}

// UnaryInterceptor - то же для gRPC: токен из метаданных "authorization".
// Методы из public проходят без проверки.
func UnaryInterceptor(a *Authenticator, public ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(public))
	for _, m := range public {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return handler(ctx, req)
		}
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				header = v[0]
			}
		}
		p, err := a.Authenticate(ctx, header)
		if err != nil {
			return nil, GRPCError(err)
		}
		ctx = scheduling.WithActor(WithPrincipal(ctx, p), p.UsuarioID)
		return handler(ctx, req)
	}
}

// GRPCError переводит ошибки доступа в статусы gRPC.
func GRPCError(err error) error {
	switch {
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return status.Errorf(codes.Unavailable, "identity store unavailable: %v", err)
}
