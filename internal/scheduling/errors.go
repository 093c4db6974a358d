package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leganyst/clinic-platform/internal/repository"
)

var (
	// ErrSlotConflict - у врача уже есть активная запись на этот момент.
	ErrSlotConflict = errors.New("slot conflict: practitioner already has an active appointment at this time")
	ErrNotFound     = errors.New("appointment not found")
	// ErrStoreUnavailable оборачивает исходную ошибку хранилища.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValidation       = errors.New("validation error")
)

// ValidationError - некорректный ввод; Field - имя поля в JSON.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// mapStoreErr переводит ошибки репозитория в таксономию ядра.
func mapStoreErr(op string, err error) error {
	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrNotFound), errors.As(err, &verr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		// сработал уникальный индекс по активному слоту
		return ErrSlotConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// resultOf - метка результата для метрик и логов.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
