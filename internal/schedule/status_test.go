package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/timemath"
)

func fluidOcurrencia(due time.Time) model.Ocurrencia {
	return model.Ocurrencia{
		ID:           "occ-1",
		ProgramadaID: "prog-1",
		Descripcion:  "Backup de cierre",
		DueAt:        due,
		Asignados:    []string{"user-1"},
		CreadoPor:    "user-1",
		Estado:       model.EstadoPendiente,
		CreatedAt:    due.Add(-24 * time.Hour),
	}
}

func TestEvaluateClassifiesByDueTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := StatusEngine{}

	cases := []struct {
		name    string
		due     time.Time
		want    model.Estado
		display string
	}{
		{"far future is pendiente", now.Add(2 * time.Hour), model.EstadoPendiente, "2h 0m"},
		{"just over the window is pendiente", now.Add(31 * time.Minute), model.EstadoPendiente, "31m"},
		{"inside window is por vencer", now.Add(25 * time.Minute), model.EstadoPorVencer, "25m"},
		{"window boundary is por vencer", now.Add(30 * time.Minute), model.EstadoPorVencer, "30m"},
		{"due now is vencida", now, model.EstadoVencida, "0m"},
		{"past due is vencida", now.Add(-10 * time.Minute), model.EstadoVencida, "10m"},
		{"long overdue rolls components", now.Add(-26*time.Hour - 5*time.Minute), model.EstadoVencida, "1d 2h 5m"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval, err := engine.Evaluate(fluidOcurrencia(tc.due), now)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if eval.Estado != tc.want {
				t.Fatalf("estado got %q want %q", eval.Estado, tc.want)
			}
			if eval.Display != tc.display {
				t.Fatalf("display got %q want %q", eval.Display, tc.display)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	occ := fluidOcurrencia(now.Add(25 * time.Minute))
	engine := StatusEngine{}

	first, err := engine.Evaluate(occ, now)
	if err != nil {
		t.Fatalf("first evaluate failed: %v", err)
	}
	second, err := engine.Evaluate(occ, now)
	if err != nil {
		t.Fatalf("second evaluate failed: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs diverged: %#v vs %#v", first, second)
	}
}

func TestEvaluateTerminalIsNeverRecomputed(t *testing.T) {
	due := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	done := due.Add(5 * time.Minute)
	delay := 5

	occ := fluidOcurrencia(due)
	occ.Estado = model.EstadoRealizada
	occ.CompletedAt = &done
	occ.FinishedBy = "user-1"
	occ.DelayMinutes = &delay

	engine := StatusEngine{}
	for _, now := range []time.Time{due.Add(-time.Hour), due, due.Add(1000 * time.Hour)} {
		eval, err := engine.Evaluate(occ, now)
		if err != nil {
			t.Fatalf("evaluate terminal failed: %v", err)
		}
		if eval.Estado != model.EstadoRealizada {
			t.Fatalf("terminal estado recomputed to %q at now=%s", eval.Estado, now)
		}
		if eval.Display != "5m" {
			t.Fatalf("frozen delay display got %q want %q", eval.Display, "5m")
		}
	}
}

func TestEvaluateCustomWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := StatusEngine{DueSoonWindow: 10 * time.Minute}

	eval, err := engine.Evaluate(fluidOcurrencia(now.Add(25*time.Minute)), now)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if eval.Estado != model.EstadoPendiente {
		t.Fatalf("25m out with a 10m window should be pendiente, got %q", eval.Estado)
	}
}

func TestEvaluateFlagsMissingDueTime(t *testing.T) {
	occ := fluidOcurrencia(time.Time{})
	_, err := StatusEngine{}.Evaluate(occ, time.Now())
	if !errors.Is(err, timemath.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

// The scenario from the card view: due in 25 minutes reads "Por vencer",
// and 35 minutes later with no action it reads "Vencida" by 10 minutes.
func TestEvaluateDueSoonThenOverdue(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	occ := fluidOcurrencia(now.Add(25 * time.Minute))
	engine := StatusEngine{}

	eval, err := engine.Evaluate(occ, now)
	if err != nil {
		t.Fatalf("first evaluate failed: %v", err)
	}
	if eval.Estado != model.EstadoPorVencer || eval.Display != "25m" {
		t.Fatalf("unexpected first evaluation: %#v", eval)
	}

	eval, err = engine.Evaluate(occ, now.Add(35*time.Minute))
	if err != nil {
		t.Fatalf("second evaluate failed: %v", err)
	}
	if eval.Estado != model.EstadoVencida || eval.Display != "10m" {
		t.Fatalf("unexpected second evaluation: %#v", eval)
	}
}
