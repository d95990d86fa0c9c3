package storage

import (
	"time"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
)

type ProgramadaFilter struct {
	Activa *bool
	Limit  int
	Offset int
}

type OcurrenciaFilter struct {
	ProgramadaID string
	Estado       model.Estado
	// Fluid selects only non-terminal rows; used by the reevaluator.
	Fluid  bool
	Limit  int
	Offset int
}

type PedidoFilter struct {
	Estado   model.TareaEstado
	SectorID string
	Limit    int
	Offset   int
}

type TareaFilter struct {
	PedidoID string
	Limit    int
	Offset   int
}

// Finish is the single-row conditional terminal transition. The update only
// applies while the ocurrencia is still fluid, so a double submission loses
// the race cleanly instead of overwriting history.
type Finish struct {
	OcurrenciaID string
	Estado       model.Estado
	CompletedAt  time.Time
	FinishedBy   string
	DelayMinutes int
}
