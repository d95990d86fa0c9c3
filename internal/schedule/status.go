// Package schedule implements the programada lifecycle: estado evaluation
// against the clock, terminal transitions, and the periodic reevaluation
// loop that keeps derived estados current without user action.
package schedule

import (
	"fmt"
	"time"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/timemath"
)

// DefaultDueSoonWindow is how close to the due time an ocurrencia flips to
// "Por vencer". Configurable via StatusEngine.DueSoonWindow; 30 minutes
// matches the previous system.
const DefaultDueSoonWindow = 30 * time.Minute

type Evaluation struct {
	Estado  model.Estado
	Display string
}

// StatusEngine derives the current estado of an ocurrencia from its due time.
// Evaluation is pure: no timers, no writes, recomputed on every observation.
type StatusEngine struct {
	DueSoonWindow time.Duration
}

func (e StatusEngine) window() time.Duration {
	if e.DueSoonWindow <= 0 {
		return DefaultDueSoonWindow
	}
	return e.DueSoonWindow
}

// Evaluate classifies occ at the given instant. A terminal ocurrencia is
// returned as-is with its frozen delay string; fluid estados are a pure
// function of (DueAt, now). A zero DueAt reports the record as unevaluable
// so batch callers can skip it.
func (e StatusEngine) Evaluate(occ model.Ocurrencia, now time.Time) (Evaluation, error) {
	if occ.Estado.IsTerminal() {
		display := ""
		if occ.DelayMinutes != nil {
			display = timemath.FromMinutes(*occ.DelayMinutes).String()
		}
		return Evaluation{Estado: occ.Estado, Display: display}, nil
	}

	if occ.DueAt.IsZero() {
		return Evaluation{}, fmt.Errorf("%w: ocurrencia %s has no usable due time", timemath.ErrInvalidTimestamp, occ.ID)
	}

	diff := timemath.MinutesBetween(now, occ.DueAt)
	display := timemath.ElapsedBetween(now, occ.DueAt).String()

	switch {
	case diff <= 0:
		return Evaluation{Estado: model.EstadoVencida, Display: display}, nil
	case diff <= int(e.window()/time.Minute):
		return Evaluation{Estado: model.EstadoPorVencer, Display: display}, nil
	default:
		return Evaluation{Estado: model.EstadoPendiente, Display: display}, nil
	}
}
