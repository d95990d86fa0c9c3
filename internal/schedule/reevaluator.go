package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

const (
	DefaultReevalInterval = 60 * time.Second
	refreshTimeout        = 10 * time.Second
)

// TaskView is the per-ocurrencia presentation contract: derived estado, the
// remaining/elapsed display string, and which transitions the caller may
// offer.
type TaskView struct {
	Ocurrencia  model.Ocurrencia
	Estado      model.Estado
	Display     string
	CanComplete bool
	CanCancel   bool
}

// Snapshot is an immutable view over the fluid task set. Each refresh builds
// a new one and swaps it in whole; consumers never see a half-updated list.
type Snapshot struct {
	Tasks   []TaskView
	TakenAt time.Time
	Skipped int
}

// Reevaluator re-runs the status engine across the fluid ocurrencias on a
// fixed interval and immediately on storage change events. It performs no
// writes: fluid estados are derived, only Complete/Cancel ever persist one.
type Reevaluator struct {
	repo     storage.Repository
	engine   StatusEngine
	interval time.Duration
	log      zerolog.Logger

	feed      *storage.Feed
	changes   <-chan storage.Change
	cancelSub func()

	mu       sync.RWMutex
	snapshot Snapshot

	updates chan Snapshot
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	lifeMu  sync.Mutex
	started bool
	stopped bool
}

func NewReevaluator(repo storage.Repository, feed *storage.Feed, engine StatusEngine, interval time.Duration, log zerolog.Logger) *Reevaluator {
	if interval <= 0 {
		interval = DefaultReevalInterval
	}
	return &Reevaluator{
		repo:     repo,
		engine:   engine,
		interval: interval,
		log:      log,
		feed:     feed,
		updates:  make(chan Snapshot, 1),
		wakeup:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Updates emits a snapshot after each refresh. The send is non-blocking with
// a buffer of one: a slow consumer only ever misses intermediate snapshots,
// and Snapshot() always has the latest.
func (r *Reevaluator) Updates() <-chan Snapshot {
	return r.updates
}

func (r *Reevaluator) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Reevaluator) Start() {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.started {
		return
	}
	r.started = true
	if r.feed != nil {
		r.changes, r.cancelSub = r.feed.Subscribe(16)
	}
	go r.loop()
}

func (r *Reevaluator) Stop() {
	r.lifeMu.Lock()
	if !r.started || r.stopped {
		r.lifeMu.Unlock()
		return
	}
	r.stopped = true
	close(r.stopCh)
	r.lifeMu.Unlock()
	<-r.doneCh
	if r.cancelSub != nil {
		r.cancelSub()
	}
}

// Wake forces an immediate refresh outside the tick cadence.
func (r *Reevaluator) Wake() {
	select {
	case r.wakeup <- struct{}{}:
	default:
	}
}

func (r *Reevaluator) loop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(time.Now().UTC())
	for {
		select {
		case <-ticker.C:
			r.refresh(time.Now().UTC())
		case _, ok := <-r.changes:
			if !ok {
				r.changes = nil
				continue
			}
			r.drainChanges()
			r.refresh(time.Now().UTC())
		case <-r.wakeup:
			r.refresh(time.Now().UTC())
		case <-r.stopCh:
			return
		}
	}
}

// drainChanges coalesces a burst of change events into a single refresh.
func (r *Reevaluator) drainChanges() {
	for {
		select {
		case _, ok := <-r.changes:
			if !ok {
				r.changes = nil
				return
			}
		default:
			return
		}
	}
}

func (r *Reevaluator) refresh(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	fluid, err := r.repo.ListOcurrencias(ctx, storage.OcurrenciaFilter{Fluid: true})
	if err != nil {
		r.log.Error().Err(err).Msg("reevaluation reload failed; keeping previous snapshot")
		return
	}

	next := Snapshot{Tasks: make([]TaskView, 0, len(fluid)), TakenAt: now}
	for _, occ := range fluid {
		eval, evalErr := r.engine.Evaluate(occ, now)
		if evalErr != nil {
			// One bad record never blocks the rest of the batch.
			next.Skipped++
			r.log.Warn().Err(evalErr).Str("ocurrencia", occ.ID).Msg("skipping unevaluable ocurrencia")
			continue
		}
		next.Tasks = append(next.Tasks, TaskView{
			Ocurrencia:  occ,
			Estado:      eval.Estado,
			Display:     eval.Display,
			CanComplete: !eval.Estado.IsTerminal(),
			CanCancel:   !eval.Estado.IsTerminal(),
		})
	}

	r.mu.Lock()
	r.snapshot = next
	r.mu.Unlock()

	select {
	case r.updates <- next:
	default:
		// Consumer still holds the previous update; Snapshot() has this one.
	}
}
