package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
	"github.com/Gonzalez-Esteban/tareasd/internal/timemath"
)

var ErrAlreadyTerminal = errors.New("schedule: ocurrencia already terminal")

// Lifecycle performs the terminal transitions. It holds no state beyond the
// in-flight call; all effects go through the repository.
type Lifecycle struct {
	repo   storage.Repository
	engine StatusEngine
	log    zerolog.Logger
}

func NewLifecycle(repo storage.Repository, engine StatusEngine, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{repo: repo, engine: engine, log: log}
}

// TransitionResult carries the finished ocurrencia and, for a completed
// recurring programada, the freshly spawned successor. SuccessorErr reports
// a failed successor creation without invalidating the transition itself.
type TransitionResult struct {
	Ocurrencia   model.Ocurrencia
	Successor    *model.Ocurrencia
	SuccessorErr error
}

// Complete marks the ocurrencia Realizada, freezing the delay against its
// due time, and spawns the next occurrence when the owning programada is
// active and recurring. The successor is best-effort: its failure is
// reported in the result, never rolled into the completion.
func (l *Lifecycle) Complete(ctx context.Context, ocurrenciaID, actor string, now time.Time) (TransitionResult, error) {
	occ, err := l.finish(ctx, ocurrenciaID, actor, now, model.EstadoRealizada)
	if err != nil {
		return TransitionResult{}, err
	}

	result := TransitionResult{Ocurrencia: occ}
	successor, err := l.spawnSuccessor(ctx, occ, now)
	if err != nil {
		l.log.Error().Err(err).
			Str("ocurrencia", occ.ID).
			Str("programada", occ.ProgramadaID).
			Msg("successor creation failed; completion stands")
		result.SuccessorErr = err
		return result, nil
	}
	result.Successor = successor
	return result, nil
}

// Cancel marks the ocurrencia Cancelada. It never spawns a successor; a
// recurring programada stays active for manual re-triggering, while a
// one-shot definition is deactivated since its only occurrence is spent.
func (l *Lifecycle) Cancel(ctx context.Context, ocurrenciaID, actor string, now time.Time) (TransitionResult, error) {
	occ, err := l.finish(ctx, ocurrenciaID, actor, now, model.EstadoCancelada)
	if err != nil {
		return TransitionResult{}, err
	}

	if prog, progErr := l.repo.GetProgramada(ctx, occ.ProgramadaID); progErr == nil && !prog.Recurrence.Repeats() && prog.Activa {
		if deactErr := l.repo.SetProgramadaActiva(ctx, prog.ID, false); deactErr != nil {
			l.log.Warn().Err(deactErr).Str("programada", prog.ID).Msg("could not deactivate one-shot programada")
		}
	}
	return TransitionResult{Ocurrencia: occ}, nil
}

func (l *Lifecycle) finish(ctx context.Context, ocurrenciaID, actor string, now time.Time, estado model.Estado) (model.Ocurrencia, error) {
	occ, err := l.repo.GetOcurrencia(ctx, ocurrenciaID)
	if err != nil {
		return model.Ocurrencia{}, fmt.Errorf("load ocurrencia: %w", err)
	}
	if occ.Estado.IsTerminal() {
		return model.Ocurrencia{}, fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, occ.ID, occ.Estado)
	}

	delay := 0
	if !occ.DueAt.IsZero() {
		if d := timemath.MinutesBetween(occ.DueAt, now); d > 0 {
			delay = d
		}
	}

	err = l.repo.FinishOcurrencia(ctx, storage.Finish{
		OcurrenciaID: occ.ID,
		Estado:       estado,
		CompletedAt:  now,
		FinishedBy:   actor,
		DelayMinutes: delay,
	})
	if errors.Is(err, storage.ErrAlreadyFinished) {
		// Lost a race with a concurrent submission; same outcome as the
		// read-side guard above.
		return model.Ocurrencia{}, fmt.Errorf("%w: %s", ErrAlreadyTerminal, occ.ID)
	}
	if err != nil {
		return model.Ocurrencia{}, fmt.Errorf("finish ocurrencia: %w", err)
	}

	completed := now
	occ.Estado = estado
	occ.CompletedAt = &completed
	occ.FinishedBy = actor
	occ.DelayMinutes = &delay

	l.log.Info().
		Str("ocurrencia", occ.ID).
		Str("estado", string(estado)).
		Str("actor", actor).
		Int("delay_minutes", delay).
		Msg("ocurrencia finished")
	return occ, nil
}

// spawnSuccessor advances the recurrence from the finished ocurrencia's own
// due time, not from now, so a late completion does not shift the cadence.
func (l *Lifecycle) spawnSuccessor(ctx context.Context, occ model.Ocurrencia, now time.Time) (*model.Ocurrencia, error) {
	prog, err := l.repo.GetProgramada(ctx, occ.ProgramadaID)
	if err != nil {
		return nil, fmt.Errorf("load programada: %w", err)
	}
	if !prog.Activa || !prog.Recurrence.Repeats() {
		return nil, nil
	}

	nextDue, err := prog.Recurrence.Next(occ.DueAt)
	if err != nil {
		return nil, fmt.Errorf("compute next occurrence: %w", err)
	}

	successor := model.Ocurrencia{
		ID:           uuid.NewString(),
		ProgramadaID: prog.ID,
		Descripcion:  occ.Descripcion,
		DueAt:        nextDue,
		Asignados:    append([]string(nil), occ.Asignados...),
		CreadoPor:    occ.CreadoPor,
		Estado:       model.EstadoPendiente,
		CreatedAt:    now,
	}
	if err := l.repo.CreateOcurrencia(ctx, successor); err != nil {
		return nil, fmt.Errorf("persist successor: %w", err)
	}

	l.log.Info().
		Str("programada", prog.ID).
		Str("ocurrencia", successor.ID).
		Time("due_at", nextDue).
		Msg("successor ocurrencia created")
	return &successor, nil
}
