// Package httpapi - HTTP/JSON API записи на приём поверх echo.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/metrics"
)

// HealthCheck проверяет зависимости для /healthz (обычно ping БД).
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Handler *Handler
	Auth    *auth.Authenticator
	Metrics *metrics.Metrics
	Health  HealthCheck
	Logger  zerolog.Logger
}

// NewServer собирает echo с общими middleware, /healthz, /metrics и /api/v1.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(d.Logger)

	e.Use(echomw.RequestID())
	e.Use(d.Metrics.Middleware())
	e.Use(Logger(d.Logger))
	e.Use(Recovery(d.Logger))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/healthz", func(c echo.Context) error {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	api := e.Group("/api/v1", auth.Middleware(d.Auth))
	d.Handler.RegisterRoutes(api)
	return e
}
