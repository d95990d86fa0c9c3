package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEstado   = errors.New("model: invalid estado")
	ErrMissingAsignado = errors.New("model: at least one assigned user is required")
)

// Programada is a scheduled task definition. A definition spawns occurrences
// over time; deactivating it stops new occurrences without deleting history.
type Programada struct {
	ID          string
	Descripcion string
	Recurrence  RecurrenceRule
	Asignados   []string
	CreadoPor   string
	Activa      bool
	CreatedAt   time.Time
}

func (p Programada) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("model: programada id is required")
	}
	if strings.TrimSpace(p.Descripcion) == "" {
		return errors.New("model: programada descripcion is required")
	}
	if len(p.Asignados) == 0 {
		return ErrMissingAsignado
	}
	if strings.TrimSpace(p.CreadoPor) == "" {
		return errors.New("model: programada creado_por is required")
	}
	if p.CreatedAt.IsZero() {
		return errors.New("model: programada created_at is required")
	}
	return p.Recurrence.Validate()
}

// Ocurrencia is one concrete due-instance of a Programada. Estado is derived
// from DueAt while fluid; Realizada/Cancelada are final history and carry the
// frozen completion fields.
type Ocurrencia struct {
	ID           string
	ProgramadaID string
	Descripcion  string
	DueAt        time.Time
	Asignados    []string
	CreadoPor    string
	Estado       Estado
	CompletedAt  *time.Time
	FinishedBy   string
	DelayMinutes *int
	CreatedAt    time.Time
}

func (o Ocurrencia) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("model: ocurrencia id is required")
	}
	if strings.TrimSpace(o.ProgramadaID) == "" {
		return errors.New("model: ocurrencia programada_id is required")
	}
	if strings.TrimSpace(o.Descripcion) == "" {
		return errors.New("model: ocurrencia descripcion is required")
	}
	if o.DueAt.IsZero() {
		return errors.New("model: ocurrencia due_at is required")
	}
	if !o.Estado.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEstado, o.Estado)
	}
	if o.Estado.IsTerminal() {
		if o.CompletedAt == nil {
			return errors.New("model: completed_at is required for a terminal ocurrencia")
		}
		if o.DelayMinutes == nil {
			return errors.New("model: delay_minutes is required for a terminal ocurrencia")
		}
	} else {
		if o.CompletedAt != nil {
			return errors.New("model: completed_at must be nil while the ocurrencia is fluid")
		}
		if o.DelayMinutes != nil {
			return errors.New("model: delay_minutes must be nil while the ocurrencia is fluid")
		}
	}
	return nil
}

func (o Ocurrencia) IsTerminal() bool {
	return o.Estado.IsTerminal()
}
