package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
	"github.com/Gonzalez-Esteban/tareasd/internal/timemath"
)

// userHeader carries the acting user's id. The identity provider behind it
// is swappable; the handlers only care that someone resolved.
const userHeader = "X-User"

type Handlers struct {
	repo      storage.Repository
	lifecycle *schedule.Lifecycle
	reeval    *schedule.Reevaluator
	engine    schedule.StatusEngine
	resolver  *identity.Resolver
	log       zerolog.Logger
	now       func() time.Time
}

func NewHandlers(repo storage.Repository, lifecycle *schedule.Lifecycle, reeval *schedule.Reevaluator, engine schedule.StatusEngine, resolver *identity.Resolver, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:      repo,
		lifecycle: lifecycle,
		reeval:    reeval,
		engine:    engine,
		resolver:  resolver,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.resolver.Resolve(r.Context(), r.Header.Get(userHeader))
		if errors.Is(err, identity.ErrNoUser) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, "identity lookup failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type taskViewDTO struct {
	ID           string   `json:"id"`
	ProgramadaID string   `json:"programada_id"`
	Descripcion  string   `json:"descripcion"`
	DueAt        string   `json:"due_at"`
	Asignados    []string `json:"asignados"`
	CreadoPor    string   `json:"creado_por"`
	Estado       string   `json:"estado"`
	Display      string   `json:"display"`
	CanComplete  bool     `json:"can_complete"`
	CanCancel    bool     `json:"can_cancel"`
	CompletedAt  string   `json:"completed_at,omitempty"`
	FinishedBy   string   `json:"finished_by,omitempty"`
	DelayMinutes *int     `json:"delay_minutes,omitempty"`
}

func (h *Handlers) taskView(occ model.Ocurrencia, now time.Time) taskViewDTO {
	dto := taskViewDTO{
		ID:           occ.ID,
		ProgramadaID: occ.ProgramadaID,
		Descripcion:  occ.Descripcion,
		Asignados:    occ.Asignados,
		CreadoPor:    occ.CreadoPor,
		DelayMinutes: occ.DelayMinutes,
		FinishedBy:   occ.FinishedBy,
	}
	if !occ.DueAt.IsZero() {
		dto.DueAt = occ.DueAt.Format(time.RFC3339)
	}
	if occ.CompletedAt != nil {
		dto.CompletedAt = occ.CompletedAt.Format(time.RFC3339)
	}

	eval, err := h.engine.Evaluate(occ, now)
	if err != nil {
		// Unevaluable record: surface it with its stored estado and no
		// display string rather than hiding the row.
		dto.Estado = string(occ.Estado)
		return dto
	}
	dto.Estado = string(eval.Estado)
	dto.Display = eval.Display
	dto.CanComplete = !eval.Estado.IsTerminal()
	dto.CanCancel = !eval.Estado.IsTerminal()
	return dto
}

type programadaRequest struct {
	Descripcion string   `json:"descripcion"`
	Recurrencia string   `json:"tipo_recurrencia"`
	Intervalo   int      `json:"intervalo_recurrencia"`
	Asignados   []string `json:"asignados"`
	DueAt       string   `json:"due_at"`
}

type programadaDTO struct {
	ID          string   `json:"id"`
	Descripcion string   `json:"descripcion"`
	Recurrencia string   `json:"tipo_recurrencia"`
	Intervalo   int      `json:"intervalo_recurrencia"`
	Asignados   []string `json:"asignados"`
	CreadoPor   string   `json:"creado_por"`
	Activa      bool     `json:"activa"`
	CreatedAt   string   `json:"created_at"`
}

func programadaView(p model.Programada) programadaDTO {
	return programadaDTO{
		ID:          p.ID,
		Descripcion: p.Descripcion,
		Recurrencia: string(p.Recurrence.Kind),
		Intervalo:   p.Recurrence.Interval,
		Asignados:   p.Asignados,
		CreadoPor:   p.CreadoPor,
		Activa:      p.Activa,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handlers) ListProgramadas(w http.ResponseWriter, r *http.Request) {
	filter := storage.ProgramadaFilter{}
	if r.URL.Query().Get("activa") == "true" {
		activa := true
		filter.Activa = &activa
	}
	list, err := h.repo.ListProgramadas(r.Context(), filter)
	if err != nil {
		h.storeError(w, err, "list programadas")
		return
	}
	out := make([]programadaDTO, 0, len(list))
	for _, p := range list {
		out = append(out, programadaView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateProgramada stores the definition and its first ocurrencia in one
// call. A past due date is accepted; the first evaluation simply reads
// Vencida.
func (h *Handlers) CreateProgramada(w http.ResponseWriter, r *http.Request) {
	var req programadaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, _ := identity.FromContext(r.Context())

	dueAt, err := timemath.ParseTimestamp(req.DueAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := model.RecurrenceKind(req.Recurrencia)
	if req.Recurrencia == "" {
		kind = model.RecurrenceNone
	}
	now := h.now()
	prog := model.Programada{
		ID:          uuid.NewString(),
		Descripcion: req.Descripcion,
		Recurrence:  model.RecurrenceRule{Kind: kind, Interval: req.Intervalo},
		Asignados:   req.Asignados,
		CreadoPor:   user.ID,
		Activa:      true,
		CreatedAt:   now,
	}
	if err := prog.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	occ := model.Ocurrencia{
		ID:           uuid.NewString(),
		ProgramadaID: prog.ID,
		Descripcion:  prog.Descripcion,
		DueAt:        dueAt,
		Asignados:    prog.Asignados,
		CreadoPor:    user.ID,
		Estado:       model.EstadoPendiente,
		CreatedAt:    now,
	}

	if err := h.repo.CreateProgramada(r.Context(), prog); err != nil {
		h.storeError(w, err, "create programada")
		return
	}
	if err := h.repo.CreateOcurrencia(r.Context(), occ); err != nil {
		h.storeError(w, err, "create first ocurrencia")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"programada": programadaView(prog),
		"ocurrencia": h.taskView(occ, now),
	})
}

func (h *Handlers) UpdateProgramada(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prog, err := h.repo.GetProgramada(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "load programada")
		return
	}

	var req programadaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Descripcion != "" {
		prog.Descripcion = req.Descripcion
	}
	if req.Recurrencia != "" {
		prog.Recurrence.Kind = model.RecurrenceKind(req.Recurrencia)
	}
	if req.Intervalo > 0 {
		prog.Recurrence.Interval = req.Intervalo
	}
	if len(req.Asignados) > 0 {
		prog.Asignados = req.Asignados
	}
	if err := prog.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.UpdateProgramada(r.Context(), prog); err != nil {
		h.storeError(w, err, "update programada")
		return
	}
	writeJSON(w, http.StatusOK, programadaView(prog))
}

// DeactivateProgramada is a soft delete: history and open ocurrencias stay.
func (h *Handlers) DeactivateProgramada(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.SetProgramadaActiva(r.Context(), id, false); err != nil {
		h.storeError(w, err, "deactivate programada")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListOcurrencias(w http.ResponseWriter, r *http.Request) {
	filter := storage.OcurrenciaFilter{
		ProgramadaID: r.URL.Query().Get("programada_id"),
		Fluid:        r.URL.Query().Get("include_finished") != "true",
	}
	list, err := h.repo.ListOcurrencias(r.Context(), filter)
	if err != nil {
		h.storeError(w, err, "list ocurrencias")
		return
	}
	now := h.now()
	out := make([]taskViewDTO, 0, len(list))
	for _, occ := range list {
		out = append(out, h.taskView(occ, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CompleteOcurrencia(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Complete)
}

func (h *Handlers) CancelOcurrencia(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Cancel)
}

type transitionFunc func(ctx context.Context, id, actor string, now time.Time) (schedule.TransitionResult, error)

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id := chi.URLParam(r, "id")
	user, _ := identity.FromContext(r.Context())

	now := h.now()
	result, err := fn(r.Context(), id, user.ID, now)
	switch {
	case errors.Is(err, schedule.ErrAlreadyTerminal):
		// Harmless double submission; report it as a conflict, not a fault.
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.storeError(w, err, "transition")
		return
	}

	resp := map[string]any{"ocurrencia": h.taskView(result.Ocurrencia, now)}
	if result.Successor != nil {
		resp["successor"] = h.taskView(*result.Successor, now)
	}
	if result.SuccessorErr != nil {
		resp["successor_error"] = result.SuccessorErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)

	if h.reeval != nil {
		h.reeval.Wake()
	}
}

type pedidoRequest struct {
	Problema string `json:"problema"`
	SectorID string `json:"sector_id"`
	Puesto   string `json:"puesto"`
	Estado   string `json:"estado"`
	Solucion string `json:"solucion"`
}

type pedidoDTO struct {
	ID           string `json:"id"`
	Problema     string `json:"problema"`
	SectorID     string `json:"sector_id"`
	Puesto       string `json:"puesto"`
	Estado       string `json:"estado"`
	CreadoPor    string `json:"creado_por"`
	CreatedAt    string `json:"created_at"`
	Finalizacion string `json:"finalizacion,omitempty"`
	Transcurrido string `json:"transcurrido,omitempty"`
	Solucion     string `json:"solucion,omitempty"`
	Resolvio     string `json:"resolvio,omitempty"`
}

func pedidoView(p model.Pedido) pedidoDTO {
	dto := pedidoDTO{
		ID:           p.ID,
		Problema:     p.Problema,
		SectorID:     p.SectorID,
		Puesto:       p.Puesto,
		Estado:       string(p.Estado),
		CreadoPor:    p.CreadoPor,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		Transcurrido: p.Transcurrido,
		Solucion:     p.Solucion,
		Resolvio:     p.Resolvio,
	}
	if p.Finalizacion != nil {
		dto.Finalizacion = p.Finalizacion.Format(time.RFC3339)
	}
	return dto
}

func (h *Handlers) ListPedidos(w http.ResponseWriter, r *http.Request) {
	filter := storage.PedidoFilter{
		Estado:   model.TareaEstado(r.URL.Query().Get("estado")),
		SectorID: r.URL.Query().Get("sector_id"),
	}
	list, err := h.repo.ListPedidos(r.Context(), filter)
	if err != nil {
		h.storeError(w, err, "list pedidos")
		return
	}
	out := make([]pedidoDTO, 0, len(list))
	for _, p := range list {
		out = append(out, pedidoView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreatePedido(w http.ResponseWriter, r *http.Request) {
	var req pedidoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, _ := identity.FromContext(r.Context())

	pedido := model.Pedido{
		ID:        uuid.NewString(),
		Problema:  req.Problema,
		SectorID:  req.SectorID,
		Puesto:    req.Puesto,
		Estado:    model.TareaEnCurso,
		CreadoPor: user.ID,
		CreatedAt: h.now(),
	}
	if err := pedido.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.CreatePedido(r.Context(), pedido); err != nil {
		h.storeError(w, err, "create pedido")
		return
	}
	writeJSON(w, http.StatusCreated, pedidoView(pedido))
}

func (h *Handlers) GetPedido(w http.ResponseWriter, r *http.Request) {
	pedido, err := h.repo.GetPedido(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "get pedido")
		return
	}
	writeJSON(w, http.StatusOK, pedidoView(pedido))
}

// UpdatePedido applies a partial update. Moving to Resuelto freezes the
// total elapsed time and stamps who resolved it.
func (h *Handlers) UpdatePedido(w http.ResponseWriter, r *http.Request) {
	pedido, err := h.repo.GetPedido(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "load pedido")
		return
	}

	var req pedidoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Puesto != "" {
		pedido.Puesto = req.Puesto
	}
	if req.Estado != "" {
		estado := model.TareaEstado(req.Estado)
		if !estado.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid estado")
			return
		}
		pedido.Estado = estado
		if estado == model.TareaResuelto {
			user, _ := identity.FromContext(r.Context())
			now := h.now()
			pedido.Finalizacion = &now
			pedido.Transcurrido = timemath.ElapsedBetween(pedido.CreatedAt, now).String()
			pedido.Solucion = req.Solucion
			pedido.Resolvio = user.ID
		}
	}
	if err := h.repo.UpdatePedido(r.Context(), pedido); err != nil {
		h.storeError(w, err, "update pedido")
		return
	}
	writeJSON(w, http.StatusOK, pedidoView(pedido))
}

type tareaRequest struct {
	Descripcion string   `json:"descripcion"`
	Estado      string   `json:"estado"`
	Asignados   []string `json:"asignados"`
	Puesto      string   `json:"puesto"`
}

type tareaDTO struct {
	ID                string   `json:"id"`
	PedidoID          string   `json:"pedido_id"`
	Descripcion       string   `json:"descripcion"`
	Estado            string   `json:"estado"`
	Asignados         []string `json:"asignados"`
	CreadoPor         string   `json:"creado_por"`
	Puesto            string   `json:"puesto"`
	TiempoDesdeUltimo string   `json:"tiempo_desde_ultimo"`
	CreatedAt         string   `json:"created_at"`
}

func tareaView(t model.Tarea) tareaDTO {
	return tareaDTO{
		ID:                t.ID,
		PedidoID:          t.PedidoID,
		Descripcion:       t.Descripcion,
		Estado:            string(t.Estado),
		Asignados:         t.Asignados,
		CreadoPor:         t.CreadoPor,
		Puesto:            t.Puesto,
		TiempoDesdeUltimo: t.TiempoDesdeUltimo,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handlers) ListTareas(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListTareas(r.Context(), storage.TareaFilter{PedidoID: chi.URLParam(r, "id")})
	if err != nil {
		h.storeError(w, err, "list tareas")
		return
	}
	out := make([]tareaDTO, 0, len(list))
	for _, t := range list {
		out = append(out, tareaView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTarea computes the elapsed-time-since-last string against the
// previous tarea on the pedido, or the pedido's creation for the first.
func (h *Handlers) CreateTarea(w http.ResponseWriter, r *http.Request) {
	pedidoID := chi.URLParam(r, "id")
	pedido, err := h.repo.GetPedido(r.Context(), pedidoID)
	if err != nil {
		h.storeError(w, err, "load pedido")
		return
	}

	var req tareaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, _ := identity.FromContext(r.Context())

	existing, err := h.repo.ListTareas(r.Context(), storage.TareaFilter{PedidoID: pedidoID})
	if err != nil {
		h.storeError(w, err, "list tareas")
		return
	}
	reference := pedido.CreatedAt
	if len(existing) > 0 {
		reference = existing[len(existing)-1].CreatedAt
	}

	now := h.now()
	estado := model.TareaEstado(req.Estado)
	if req.Estado == "" {
		estado = model.TareaEnCurso
	}
	tarea := model.Tarea{
		ID:                uuid.NewString(),
		PedidoID:          pedidoID,
		Descripcion:       req.Descripcion,
		Estado:            estado,
		Asignados:         req.Asignados,
		CreadoPor:         user.ID,
		Puesto:            req.Puesto,
		TiempoDesdeUltimo: timemath.ElapsedBetween(reference, now).String(),
		CreatedAt:         now,
	}
	if err := tarea.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.CreateTarea(r.Context(), tarea); err != nil {
		h.storeError(w, err, "create tarea")
		return
	}
	writeJSON(w, http.StatusCreated, tareaView(tarea))
}

func (h *Handlers) DeleteTarea(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteTarea(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, err, "delete tarea")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListSectores(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListSectores(r.Context())
	if err != nil {
		h.storeError(w, err, "list sectores")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateSector(w http.ResponseWriter, r *http.Request) {
	var sector model.Sector
	if err := json.NewDecoder(r.Body).Decode(&sector); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sector.ID == "" {
		sector.ID = uuid.NewString()
	}
	if err := h.repo.CreateSector(r.Context(), sector); err != nil {
		h.storeError(w, err, "create sector")
		return
	}
	writeJSON(w, http.StatusCreated, sector)
}

func (h *Handlers) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListUsuarios(r.Context())
	if err != nil {
		h.storeError(w, err, "list usuarios")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var usuario model.Usuario
	if err := json.NewDecoder(r.Body).Decode(&usuario); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if usuario.ID == "" {
		usuario.ID = uuid.NewString()
	}
	if err := h.repo.CreateUsuario(r.Context(), usuario); err != nil {
		h.storeError(w, err, "create usuario")
		return
	}
	writeJSON(w, http.StatusCreated, usuario)
}

func (h *Handlers) storeError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.log.Error().Err(err).Str("op", op).Msg("store call failed")
	writeError(w, http.StatusBadGateway, "store unavailable, retry")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
