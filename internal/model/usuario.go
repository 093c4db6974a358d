package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EstadoUsuario string

const (
	UsuarioActivo    EstadoUsuario = "activo"
	UsuarioInactivo  EstadoUsuario = "inactivo"
	UsuarioBloqueado EstadoUsuario = "bloqueado"
)

// Коды ролей.
const (
	RolPaciente  = "paciente"
	RolAsistente = "asistente"
	RolDoctor    = "doctor"
)

// usuarios
type Usuario struct {
	ID string `gorm:"type:varchar(36);primaryKey"`

	Email  string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	Nombre string        `gorm:"type:varchar(255)"`
	Estado EstadoUsuario `gorm:"type:varchar(16);not null;default:'activo'"`

	// Привязка к карточке пациента / врача (для ролей paciente и doctor).
	PacienteID *string `gorm:"type:varchar(64);index"`
	MedicoID   *string `gorm:"type:varchar(64);index"`

	CreadoEn      time.Time `gorm:"autoCreateTime"`
	ActualizadoEn time.Time `gorm:"autoUpdateTime"`
}

func (Usuario) TableName() string { return "usuarios" }

func (u *Usuario) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// roles
type Rol struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	Codigo string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Nombre string `gorm:"type:varchar(255)"`
}

func (Rol) TableName() string { return "roles" }

// usuario_roles - связывает пользователей и роли (комбинированный PK)
type UsuarioRol struct {
	RolID     int64  `gorm:"primaryKey;index"`
	UsuarioID string `gorm:"type:varchar(36);primaryKey;index"`

	Rol     *Rol     `gorm:"foreignKey:RolID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Usuario *Usuario `gorm:"foreignKey:UsuarioID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (UsuarioRol) TableName() string { return "usuario_roles" }
