package scheduling

import (
	"context"
	"errors"

	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

// Directory - справочники пациентов и врачей (только чтение).
// Имена копируются в запись в момент записи; последующие переименования
// на существующие записи не распространяются.
type Directory interface {
	Paciente(ctx context.Context, id string) (*model.Paciente, error)
	Medico(ctx context.Context, id string) (*model.Medico, error)
}

type repoDirectory struct {
	pacientes repository.PacienteRepository
	medicos   repository.MedicoRepository
}

func NewDirectory(pacientes repository.PacienteRepository, medicos repository.MedicoRepository) Directory {
	return &repoDirectory{pacientes: pacientes, medicos: medicos}
}

func (d *repoDirectory) Paciente(ctx context.Context, id string) (*model.Paciente, error) {
	return d.pacientes.GetByID(ctx, id)
}

func (d *repoDirectory) Medico(ctx context.Context, id string) (*model.Medico, error) {
	return d.medicos.GetByID(ctx, id)
}

func (s *Scheduler) pacienteNombre(ctx context.Context, id string) (string, error) {
	p, err := s.directory.Paciente(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", invalid("pacienteId", "unknown patient")
	}
	if err != nil {
		return "", mapStoreErr("lookup patient", err)
	}
	return p.NombreCompleto(), nil
}

func (s *Scheduler) medico(ctx context.Context, id string) (*model.Medico, error) {
	m, err := s.directory.Medico(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("doctorId", "unknown practitioner")
	}
	if err != nil {
		return nil, mapStoreErr("lookup practitioner", err)
	}
	return m, nil
}

func checkSede(m *model.Medico, sede string) error {
	if !m.AtiendeEn(sede) {
		return invalid("sede", "practitioner does not attend at this location")
	}
	return nil
}

// resolveCreate дополняет имена из справочников и проверяет sede.
func (s *Scheduler) resolveCreate(ctx context.Context, in *CreateInput) error {
	if s.directory == nil {
		if in.PacienteNombre == "" {
			return invalid("pacienteNombre", "is required")
		}
		if in.DoctorNombre == "" {
			return invalid("doctorNombre", "is required")
		}
		return nil
	}

	if in.PacienteNombre == "" {
		name, err := s.pacienteNombre(ctx, in.PacienteID)
		if err != nil {
			return err
		}
		in.PacienteNombre = name
	}

	if in.DoctorNombre == "" || in.Sede != "" {
		m, err := s.medico(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if in.DoctorNombre == "" {
			in.DoctorNombre = m.Nombre
		}
		if err := checkSede(m, in.Sede); err != nil {
			return err
		}
	}
	return nil
}

// resolvePatch - то же для изменения: смена pacienteId/doctorId без нового
// имени требует справочника.
func (s *Scheduler) resolvePatch(ctx context.Context, current *model.Cita, p *Patch) error {
	pacienteChanged := p.PacienteID != nil && *p.PacienteID != current.PacienteID
	if pacienteChanged && p.PacienteNombre == nil {
		if s.directory == nil {
			return invalid("pacienteNombre", "is required when pacienteId changes")
		}
		name, err := s.pacienteNombre(ctx, *p.PacienteID)
		if err != nil {
			return err
		}
		p.PacienteNombre = &name
	}

	doctorID := current.DoctorID
	if p.DoctorID != nil {
		doctorID = *p.DoctorID
	}
	doctorChanged := doctorID != current.DoctorID
	if doctorChanged && p.DoctorNombre == nil && s.directory == nil {
		return invalid("doctorNombre", "is required when doctorId changes")
	}
	if s.directory == nil {
		return nil
	}

	sede := current.Sede
	if p.Sede != nil {
		sede = *p.Sede
	}
	needSede := sede != "" && (doctorChanged || p.Sede != nil)
	if (doctorChanged && p.DoctorNombre == nil) || needSede {
		m, err := s.medico(ctx, doctorID)
		if err != nil {
			return err
		}
		if doctorChanged && p.DoctorNombre == nil {
			p.DoctorNombre = &m.Nombre
		}
		if needSede {
			if err := checkSede(m, sede); err != nil {
				return err
			}
		}
	}
	return nil
}
