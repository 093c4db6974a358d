package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// pacientes - справочник пациентов (ядро только читает).
type Paciente struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Nombre    string    `gorm:"type:varchar(255);not null" json:"nombre"`
	Apellidos string    `gorm:"type:varchar(255)" json:"apellidos,omitempty"`
	Telefono  string    `gorm:"type:varchar(32)" json:"telefono,omitempty"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	CreadoEn  time.Time `gorm:"autoCreateTime" json:"creadoEn"`
}

func (Paciente) TableName() string { return "pacientes" }

func (p *Paciente) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// NombreCompleto - имя для денормализации в citas.
func (p *Paciente) NombreCompleto() string {
	return strings.TrimSpace(p.Nombre + " " + p.Apellidos)
}

// medicos - справочник врачей.
type Medico struct {
	ID           string `gorm:"type:varchar(64);primaryKey" json:"id"`
	Nombre       string `gorm:"type:varchar(255);not null;index" json:"nombre"`
	Especialidad string `gorm:"type:varchar(255)" json:"especialidad,omitempty"`

	// Список площадок (sedes), где принимает врач. Пустой - без ограничений.
	Sedes datatypes.JSONSlice[string] `json:"sedes,omitempty"`

	CreadoEn time.Time `gorm:"autoCreateTime" json:"creadoEn"`
}

func (Medico) TableName() string { return "medicos" }

func (m *Medico) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// AtiendeEn проверяет, принимает ли врач на указанной площадке.
func (m *Medico) AtiendeEn(sede string) bool {
	if len(m.Sedes) == 0 || sede == "" {
		return true
	}
	for _, s := range m.Sedes {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(sede)) {
			return true
		}
	}
	return false
}
