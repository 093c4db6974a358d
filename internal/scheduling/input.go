package scheduling

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

// CreateInput - данные новой записи. Имена можно не передавать,
// если подключён справочник (WithDirectory).
type CreateInput struct {
	PacienteID     string           `json:"pacienteId" validate:"required,max=64"`
	PacienteNombre string           `json:"pacienteNombre" validate:"max=255"`
	DoctorID       string           `json:"doctorId" validate:"required,max=64"`
	DoctorNombre   string           `json:"doctorNombre" validate:"max=255"`
	Fecha          time.Time        `json:"fecha"`
	Motivo         string           `json:"motivo,omitempty" validate:"max=2000"`
	Notas          string           `json:"notas,omitempty" validate:"max=4000"`
	Sede           string           `json:"sede,omitempty" validate:"max=255"`
	Estado         model.EstadoCita `json:"estado,omitempty" validate:"omitempty,estado"`
}

// Patch - частичное изменение; nil означает «не трогать».
type Patch struct {
	PacienteID     *string           `json:"pacienteId,omitempty" validate:"omitempty,min=1,max=64"`
	PacienteNombre *string           `json:"pacienteNombre,omitempty" validate:"omitempty,min=1,max=255"`
	DoctorID       *string           `json:"doctorId,omitempty" validate:"omitempty,min=1,max=64"`
	DoctorNombre   *string           `json:"doctorNombre,omitempty" validate:"omitempty,min=1,max=255"`
	Fecha          *time.Time        `json:"fecha,omitempty"`
	Motivo         *string           `json:"motivo,omitempty" validate:"omitempty,max=2000"`
	Notas          *string           `json:"notas,omitempty" validate:"omitempty,max=4000"`
	Sede           *string           `json:"sede,omitempty" validate:"omitempty,max=255"`
	Estado         *model.EstadoCita `json:"estado,omitempty" validate:"omitempty,estado"`
}

// ListFilter - фильтры списка (через AND) и курсор страницы.
type ListFilter struct {
	Estado     model.EstadoCita
	DoctorID   string
	PacienteID string
	Desde      *time.Time // включительно
	Hasta      *time.Time // не включительно
	PageSize   int
	Cursor     string
}

var validate = newValidator()

// estadoMsg - текст ошибки со списком допустимых статусов.
var estadoMsg = func() string {
	names := make([]string, len(model.EstadosCita))
	for i, e := range model.EstadosCita {
		names[i] = string(e)
	}
	return "must be one of " + strings.Join(names, ", ")
}()

func newValidator() *validator.Validate {
	v := validator.New()
	// в ошибках - имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("estado", func(fl validator.FieldLevel) bool {
		return slices.Contains(model.EstadosCita, model.EstadoCita(fl.Field().String()))
	})
	return v
}

// structErr переводит первую ошибку validator в ValidationError.
func structErr(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("body", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "min":
		return invalid(fe.Field(), "is required")
	case "max":
		return invalid(fe.Field(), "is too long")
	case "estado":
		return invalid(fe.Field(), estadoMsg)
	}
	return invalid(fe.Field(), "failed "+fe.Tag())
}

func validateCreate(in *CreateInput) error {
	in.PacienteID = strings.TrimSpace(in.PacienteID)
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.PacienteNombre = strings.TrimSpace(in.PacienteNombre)
	in.DoctorNombre = strings.TrimSpace(in.DoctorNombre)

	if err := validate.Struct(in); err != nil {
		return structErr(err)
	}
	if in.Fecha.IsZero() {
		return invalid("fecha", "is required")
	}
	return nil
}

func validatePatch(p *Patch) error {
	if err := validate.Struct(p); err != nil {
		return structErr(err)
	}
	required := []struct {
		field string
		v     *string
	}{
		{"pacienteId", p.PacienteID},
		{"pacienteNombre", p.PacienteNombre},
		{"doctorId", p.DoctorID},
		{"doctorNombre", p.DoctorNombre},
	}
	for _, r := range required {
		if r.v == nil {
			continue
		}
		if strings.TrimSpace(*r.v) == "" {
			return invalid(r.field, "must not be empty")
		}
	}
	if p.Estado != nil && !p.Estado.Valid() {
		return invalid("estado", estadoMsg)
	}
	if p.Fecha != nil && p.Fecha.IsZero() {
		return invalid("fecha", "is required")
	}
	return nil
}

func validateList(f *ListFilter) error {
	if f.Estado != "" && !f.Estado.Valid() {
		return invalid("estado", estadoMsg)
	}
	if f.Desde != nil && f.Hasta != nil && !f.Hasta.After(*f.Desde) {
		return invalid("hasta", "must be after desde")
	}
	return nil
}

// apply возвращает запись после изменения и набор колонок для UpdateFields.
func (p Patch) apply(c model.Cita) (model.Cita, map[string]any) {
	fields := make(map[string]any)
	setStr := func(dst *string, v *string, col string) {
		if v != nil {
			*dst = *v
			fields[col] = *v
		}
	}
	setStr(&c.PacienteID, p.PacienteID, repository.ColPacienteID)
	setStr(&c.PacienteNombre, p.PacienteNombre, repository.ColPacienteNombre)
	setStr(&c.DoctorID, p.DoctorID, repository.ColDoctorID)
	setStr(&c.DoctorNombre, p.DoctorNombre, repository.ColDoctorNombre)
	setStr(&c.Motivo, p.Motivo, repository.ColMotivo)
	setStr(&c.Notas, p.Notas, repository.ColNotas)
	setStr(&c.Sede, p.Sede, repository.ColSede)
	if p.Fecha != nil {
		c.Fecha = *p.Fecha
		fields[repository.ColFecha] = *p.Fecha
	}
	if p.Estado != nil {
		c.Estado = *p.Estado
		fields[repository.ColEstado] = *p.Estado
	}
	return c, fields
}
