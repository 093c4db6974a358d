package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Тип события аудита.
type TipoEvento string

const (
	EventoCitaCreada      TipoEvento = "cita_creada"
	EventoCitaActualizada TipoEvento = "cita_actualizada"
	EventoCitaEliminada   TipoEvento = "cita_eliminada"
	EventoCitaConflicto   TipoEvento = "cita_conflicto"
)

// eventos - журнал аудита изменений записей.
// Без внешних ключей: после удаления cita событие остаётся.
type Evento struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	Tipo TipoEvento `gorm:"type:varchar(64);not null;index" json:"tipo"`

	CreadoEn time.Time `gorm:"not null;index" json:"creadoEn"`

	UsuarioID *string `gorm:"type:varchar(36);index" json:"usuarioId,omitempty"`
	CitaID    *string `gorm:"type:varchar(36);index" json:"citaId,omitempty"`

	Detalle string `gorm:"type:text" json:"detalle,omitempty"`
}

func (Evento) TableName() string { return "eventos" }

func (e *Evento) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreadoEn.IsZero() {
		e.CreadoEn = tx.NowFunc()
	}
	return nil
}
