package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validOcurrencia() Ocurrencia {
	return Ocurrencia{
		ID:           "occ-1",
		ProgramadaID: "prog-1",
		Descripcion:  "Backup diario",
		DueAt:        time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Asignados:    []string{"user-1"},
		CreadoPor:    "user-1",
		Estado:       EstadoPendiente,
		CreatedAt:    time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC),
	}
}

func TestOcurrenciaValidate(t *testing.T) {
	if err := validOcurrencia().Validate(); err != nil {
		t.Fatalf("valid ocurrencia rejected: %v", err)
	}

	bad := validOcurrencia()
	bad.Estado = "Perdida"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidEstado) {
		t.Fatalf("expected ErrInvalidEstado, got %v", err)
	}

	bad = validOcurrencia()
	bad.Descripcion = "   "
	if err := bad.Validate(); err == nil {
		t.Fatal("blank descripcion accepted")
	}
}

func TestOcurrenciaTerminalRequiresCompletionFields(t *testing.T) {
	occ := validOcurrencia()
	occ.Estado = EstadoRealizada
	if err := occ.Validate(); err == nil || !strings.Contains(err.Error(), "completed_at") {
		t.Fatalf("terminal without completed_at accepted: %v", err)
	}

	done := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
	delay := 5
	occ.CompletedAt = &done
	occ.DelayMinutes = &delay
	if err := occ.Validate(); err != nil {
		t.Fatalf("terminal with completion fields rejected: %v", err)
	}
}

func TestOcurrenciaFluidRejectsCompletionFields(t *testing.T) {
	occ := validOcurrencia()
	done := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
	occ.CompletedAt = &done
	if err := occ.Validate(); err == nil {
		t.Fatal("fluid ocurrencia with completed_at accepted")
	}
}

func TestProgramadaValidate(t *testing.T) {
	prog := Programada{
		ID:          "prog-1",
		Descripcion: "Reiniciar terminales",
		Recurrence:  RecurrenceRule{Kind: RecurrenceWeekly, Interval: 1},
		Asignados:   []string{"user-1", "user-2"},
		CreadoPor:   "user-1",
		Activa:      true,
		CreatedAt:   time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := prog.Validate(); err != nil {
		t.Fatalf("valid programada rejected: %v", err)
	}

	prog.Asignados = nil
	if err := prog.Validate(); !errors.Is(err, ErrMissingAsignado) {
		t.Fatalf("expected ErrMissingAsignado, got %v", err)
	}
}

func TestEstadoIsTerminal(t *testing.T) {
	terminal := map[Estado]bool{
		EstadoPendiente: false,
		EstadoPorVencer: false,
		EstadoVencida:   false,
		EstadoRealizada: true,
		EstadoCancelada: true,
	}
	for estado, want := range terminal {
		if got := estado.IsTerminal(); got != want {
			t.Fatalf("%q.IsTerminal() got %v want %v", estado, got, want)
		}
	}
}
