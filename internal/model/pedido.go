package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTareaEstado = errors.New("model: invalid tarea estado")

type TareaEstado string

const (
	TareaEnCurso  TareaEstado = "En curso"
	TareaEnEspera TareaEstado = "En espera"
	TareaResuelto TareaEstado = "Resuelto"
)

func (e TareaEstado) IsValid() bool {
	switch e {
	case TareaEnCurso, TareaEnEspera, TareaResuelto:
		return true
	default:
		return false
	}
}

// Pedido is an incident request raised against a sector.
type Pedido struct {
	ID           string
	Problema     string
	SectorID     string
	Puesto       string
	Estado       TareaEstado
	CreadoPor    string
	CreatedAt    time.Time
	Finalizacion *time.Time
	Transcurrido string
	Solucion     string
	Resolvio     string
}

func (p Pedido) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("model: pedido id is required")
	}
	if strings.TrimSpace(p.Problema) == "" {
		return errors.New("model: pedido problema is required")
	}
	if !p.Estado.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTareaEstado, p.Estado)
	}
	if p.CreatedAt.IsZero() {
		return errors.New("model: pedido created_at is required")
	}
	return nil
}

// Tarea is a work-log entry attached to a pedido. TiempoDesdeUltimo is the
// elapsed-time string relative to the previous tarea on the same pedido, or
// to the pedido's creation for the first one.
type Tarea struct {
	ID                string
	PedidoID          string
	Descripcion       string
	Estado            TareaEstado
	Asignados         []string
	CreadoPor         string
	Puesto            string
	TiempoDesdeUltimo string
	CreatedAt         time.Time
}

func (t Tarea) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: tarea id is required")
	}
	if strings.TrimSpace(t.PedidoID) == "" {
		return errors.New("model: tarea pedido_id is required")
	}
	if strings.TrimSpace(t.Descripcion) == "" {
		return errors.New("model: tarea descripcion is required")
	}
	if !t.Estado.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTareaEstado, t.Estado)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: tarea created_at is required")
	}
	return nil
}

type Sector struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Abrev  string `json:"abrev"`
}

type Usuario struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}
