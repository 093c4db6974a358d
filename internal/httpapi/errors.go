package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-platform/internal/auth"
	"github.com/Leganyst/clinic-platform/internal/scheduling"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// StatusClientClosedRequest - нестандартный 499 (как у nginx) для
// запросов, отменённых клиентом.
const StatusClientClosedRequest = 499

// statusOf переводит ошибки ядра и доступа в HTTP-статус и код.
func statusOf(err error) (int, ErrorResponse) {
	var (
		verr *scheduling.ValidationError
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{
			Error:  verr.Error(),
			Code:   "validation",
			Fields: map[string]string{verr.Field: verr.Message},
		}
	case errors.Is(err, scheduling.ErrSlotConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "slot_conflict"}
	case errors.Is(err, scheduling.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "insufficient permissions", Code: "forbidden"}
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "unauthenticated"}
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable", Code: "unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out", Code: "timeout"}
	case errors.Is(err, context.Canceled):
		// Клиент ушёл сам: не ошибка сервера.
		return StatusClientClosedRequest, ErrorResponse{Error: "client closed request", Code: "canceled"}
	case errors.As(err, &herr):
		msg, ok := herr.Message.(string)
		if !ok {
			msg = http.StatusText(herr.Code)
		}
		return herr.Code, ErrorResponse{Error: msg, Code: codeOf(herr.Code)}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"}
}

func codeOf(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "error"
}

// errorHandler - единый обработчик ошибок echo.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := statusOf(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}
