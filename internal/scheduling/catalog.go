package scheduling

import (
	"context"
	"strings"

	"github.com/Leganyst/clinic-platform/internal/model"
	"github.com/Leganyst/clinic-platform/internal/repository"
)

// Catalog - чтение справочника врачей и журнала событий по записи.
type Catalog struct {
	medicos repository.MedicoRepository
	eventos repository.EventoRepository
}

func NewCatalog(medicos repository.MedicoRepository, eventos repository.EventoRepository) *Catalog {
	return &Catalog{medicos: medicos, eventos: eventos}
}

// ListMedicos возвращает врачей по имени. Непустая sede оставляет только
// тех, кто на ней принимает (врач без sedes принимает везде).
func (c *Catalog) ListMedicos(ctx context.Context, sede string) ([]model.Medico, error) {
	all, err := c.medicos.List(ctx)
	if err != nil {
		return nil, mapStoreErr("list medicos", err)
	}
	out := make([]model.Medico, 0, len(all))
	for i := range all {
		if all[i].AtiendeEn(sede) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// History - события аудита по записи, от старых к новым. После удаления
// записи её события остаются, поэтому неизвестный id даёт пустой список.
func (c *Catalog) History(ctx context.Context, citaID string) ([]model.Evento, error) {
	citaID = strings.TrimSpace(citaID)
	if citaID == "" {
		return nil, invalid("id", "is required")
	}
	eventos, err := c.eventos.ListByCita(ctx, citaID)
	if err != nil {
		return nil, mapStoreErr("list eventos", err)
	}
	if eventos == nil {
		eventos = []model.Evento{}
	}
	return eventos, nil
}
