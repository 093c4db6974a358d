package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EstadoCita string

const (
	EstadoPendiente  EstadoCita = "pendiente"
	EstadoConfirmada EstadoCita = "confirmada"
	EstadoAtendida   EstadoCita = "atendida"
	EstadoCancelada  EstadoCita = "cancelada"
)

// EstadosCita - все допустимые статусы, в порядке жизненного цикла.
var EstadosCita = []EstadoCita{EstadoPendiente, EstadoConfirmada, EstadoAtendida, EstadoCancelada}

func (e EstadoCita) Valid() bool {
	return slices.Contains(EstadosCita, e)
}

// Activa - занимает ли запись слот врача.
func (e EstadoCita) Activa() bool {
	return e != EstadoCancelada
}

// citas - записи на приём.
// Имена пациента и врача денормализованы и пишутся только в момент записи.
type Cita struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	PacienteID     string `gorm:"type:varchar(64);not null;index" json:"pacienteId"`
	PacienteNombre string `gorm:"type:varchar(255);not null" json:"pacienteNombre"`

	DoctorID     string `gorm:"type:varchar(64);not null;index:idx_citas_doctor_fecha,priority:1" json:"doctorId"`
	DoctorNombre string `gorm:"type:varchar(255);not null" json:"doctorNombre"`

	// Момент начала приёма, всегда UTC. Длительности нет.
	Fecha time.Time `gorm:"not null;index;index:idx_citas_doctor_fecha,priority:2" json:"fecha"`

	Motivo string `gorm:"type:text" json:"motivo,omitempty"`
	Notas  string `gorm:"type:text" json:"notas,omitempty"`
	Sede   string `gorm:"type:varchar(255)" json:"sede,omitempty"`

	Estado EstadoCita `gorm:"type:varchar(32);not null;default:'pendiente';index" json:"estado"`

	CreadaEn      time.Time `gorm:"not null" json:"creadaEn"`
	ActualizadaEn time.Time `gorm:"not null" json:"actualizadaEn"`
}

func (Cita) TableName() string { return "citas" }

// BeforeCreate назначает идентификатор, если хранилище его не получило.
func (c *Cita) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
