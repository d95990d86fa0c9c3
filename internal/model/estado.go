package model

type Estado string

const (
	EstadoPendiente Estado = "Pendiente"
	EstadoPorVencer Estado = "Por vencer"
	EstadoVencida   Estado = "Vencida"
	EstadoRealizada Estado = "Realizada"
	EstadoCancelada Estado = "Cancelada"
)

func (e Estado) IsValid() bool {
	switch e {
	case EstadoPendiente, EstadoPorVencer, EstadoVencida, EstadoRealizada, EstadoCancelada:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the estado is a sticky terminal state. Terminal
// estados are written once by an explicit transition and never recomputed;
// the rest are derived from the due time on every evaluation.
func (e Estado) IsTerminal() bool {
	return e == EstadoRealizada || e == EstadoCancelada
}
