package model

import (
	"fmt"

	"gorm.io/gorm"
)

// IndiceSlotActivo - не более одной активной записи на (doctor_id, fecha).
const IndiceSlotActivo = "ux_citas_doctor_fecha_activa"

// AutoMigrate выполняет миграцию всех сущностей ядра записи.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Usuario{},
		&Rol{},
		&UsuarioRol{},
		&Paciente{},
		&Medico{},
		&Cita{},
		&Evento{},
	); err != nil {
		return err
	}

	// Частичный уникальный индекс: отменённые записи слот не занимают.
	// Синтаксис одинаков для Postgres и SQLite.
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON citas (doctor_id, fecha) WHERE estado <> '%s'",
		IndiceSlotActivo, EstadoCancelada,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", IndiceSlotActivo, err)
	}

	return seedRoles(db)
}

func seedRoles(db *gorm.DB) error {
	for _, code := range []string{RolPaciente, RolAsistente, RolDoctor} {
		r := Rol{Codigo: code, Nombre: code}
		if err := db.Where(Rol{Codigo: code}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", code, err)
		}
	}
	return nil
}
