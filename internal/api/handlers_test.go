package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := repo.CreateUsuario(context.Background(), model.Usuario{ID: "ana", Nombre: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("seed usuario: %v", err)
	}

	engine := schedule.StatusEngine{DueSoonWindow: schedule.DefaultDueSoonWindow}
	lifecycle := schedule.NewLifecycle(repo, engine, zerolog.Nop())
	resolver := identity.NewResolver(repo)
	srv := NewServer(repo, lifecycle, nil, engine, resolver, zerolog.Nop())
	return srv, repo
}

func doJSON(t *testing.T, srv *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doJSON(t, srv, http.MethodGet, "/pedidos", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/pedidos", "nadie", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: got %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/pedidos", "ana", nil); rec.Code != http.StatusOK {
		t.Fatalf("known user: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProgramadaSpawnsFirstOcurrencia(t *testing.T) {
	srv, _ := newTestServer(t)

	due := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	rec := doJSON(t, srv, http.MethodPost, "/programadas", "ana", programadaRequest{
		Descripcion: "backup semanal",
		Recurrencia: "semanal",
		Asignados:   []string{"ana"},
		DueAt:       due,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Programada programadaDTO `json:"programada"`
		Ocurrencia taskViewDTO   `json:"ocurrencia"`
	}
	decodeInto(t, rec, &resp)
	if !resp.Programada.Activa {
		t.Error("new programada should be activa")
	}
	if resp.Ocurrencia.Estado != string(model.EstadoPendiente) {
		t.Errorf("first ocurrencia estado = %q, want %q", resp.Ocurrencia.Estado, model.EstadoPendiente)
	}
	if !resp.Ocurrencia.CanComplete || !resp.Ocurrencia.CanCancel {
		t.Error("fluid ocurrencia should allow both transitions")
	}

	list := doJSON(t, srv, http.MethodGet, "/ocurrencias", "ana", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list: got %d", list.Code)
	}
	var views []taskViewDTO
	decodeInto(t, list, &views)
	if len(views) != 1 || views[0].ID != resp.Ocurrencia.ID {
		t.Fatalf("list = %+v, want the one just created", views)
	}
	if views[0].Display == "" {
		t.Error("fluid ocurrencia should carry an elapsed-time display")
	}
}

func TestCreateProgramadaRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/programadas", "ana", programadaRequest{
		Descripcion: "sin fecha",
		Asignados:   []string{"ana"},
		DueAt:       "mañana a la tarde",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unparseable due_at: got %d, want 400", rec.Code)
	}

	due := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	rec = doJSON(t, srv, http.MethodPost, "/programadas", "ana", programadaRequest{
		Descripcion: "sin asignados",
		DueAt:       due,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing asignados: got %d, want 400", rec.Code)
	}
}

func TestCompleteOcurrenciaReturnsSuccessor(t *testing.T) {
	srv, _ := newTestServer(t)

	due := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	created := doJSON(t, srv, http.MethodPost, "/programadas", "ana", programadaRequest{
		Descripcion: "ronda diaria",
		Recurrencia: "diaria",
		Asignados:   []string{"ana"},
		DueAt:       due,
	})
	var createResp struct {
		Ocurrencia taskViewDTO `json:"ocurrencia"`
	}
	decodeInto(t, created, &createResp)

	rec := doJSON(t, srv, http.MethodPost, "/ocurrencias/"+createResp.Ocurrencia.ID+"/complete", "ana", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Ocurrencia taskViewDTO  `json:"ocurrencia"`
		Successor  *taskViewDTO `json:"successor"`
	}
	decodeInto(t, rec, &resp)
	if resp.Ocurrencia.Estado != string(model.EstadoRealizada) {
		t.Errorf("estado = %q, want %q", resp.Ocurrencia.Estado, model.EstadoRealizada)
	}
	if resp.Ocurrencia.FinishedBy != "ana" {
		t.Errorf("finished_by = %q, want ana", resp.Ocurrencia.FinishedBy)
	}
	if resp.Successor == nil {
		t.Fatal("daily programada should spawn a successor on completion")
	}
	if resp.Successor.Estado != string(model.EstadoPendiente) {
		t.Errorf("successor estado = %q, want %q", resp.Successor.Estado, model.EstadoPendiente)
	}

	// Double submission of the same transition is a conflict.
	if again := doJSON(t, srv, http.MethodPost, "/ocurrencias/"+createResp.Ocurrencia.ID+"/complete", "ana", nil); again.Code != http.StatusConflict {
		t.Fatalf("second complete: got %d, want 409", again.Code)
	}
}

func TestCancelUnknownOcurrencia(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/ocurrencias/no-such/cancel", "ana", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestPedidoResolutionFreezesElapsed(t *testing.T) {
	srv, _ := newTestServer(t)

	created := doJSON(t, srv, http.MethodPost, "/pedidos", "ana", pedidoRequest{
		Problema: "impresora sin tóner",
		Puesto:   "recepción",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create pedido: got %d: %s", created.Code, created.Body.String())
	}
	var pedido pedidoDTO
	decodeInto(t, created, &pedido)
	if pedido.Estado != string(model.TareaEnCurso) {
		t.Errorf("new pedido estado = %q, want %q", pedido.Estado, model.TareaEnCurso)
	}

	resolved := doJSON(t, srv, http.MethodPatch, "/pedidos/"+pedido.ID, "ana", pedidoRequest{
		Estado:   string(model.TareaResuelto),
		Solucion: "cartucho repuesto",
	})
	if resolved.Code != http.StatusOK {
		t.Fatalf("resolve: got %d: %s", resolved.Code, resolved.Body.String())
	}
	decodeInto(t, resolved, &pedido)
	if pedido.Transcurrido == "" {
		t.Error("resolved pedido should carry a frozen transcurrido")
	}
	if pedido.Finalizacion == "" {
		t.Error("resolved pedido should carry finalizacion")
	}
	if pedido.Resolvio != "ana" {
		t.Errorf("resolvio = %q, want ana", pedido.Resolvio)
	}
}

func TestCreateTareaComputesTiempoDesdeUltimo(t *testing.T) {
	srv, _ := newTestServer(t)

	created := doJSON(t, srv, http.MethodPost, "/pedidos", "ana", pedidoRequest{Problema: "red caída"})
	var pedido pedidoDTO
	decodeInto(t, created, &pedido)

	rec := doJSON(t, srv, http.MethodPost, "/pedidos/"+pedido.ID+"/tareas", "ana", tareaRequest{
		Descripcion: "reinicio del switch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tarea: got %d: %s", rec.Code, rec.Body.String())
	}
	var tarea tareaDTO
	decodeInto(t, rec, &tarea)
	if tarea.TiempoDesdeUltimo == "" {
		t.Error("first tarea should measure elapsed time from pedido creation")
	}

	list := doJSON(t, srv, http.MethodGet, "/pedidos/"+pedido.ID+"/tareas", "ana", nil)
	var tareas []tareaDTO
	decodeInto(t, list, &tareas)
	if len(tareas) != 1 {
		t.Fatalf("got %d tareas, want 1", len(tareas))
	}

	if del := doJSON(t, srv, http.MethodDelete, "/tareas/"+tarea.ID, "ana", nil); del.Code != http.StatusNoContent {
		t.Fatalf("delete tarea: got %d", del.Code)
	}
}

func TestPublicCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/sectores", "", model.Sector{Nombre: "Sistemas", Abrev: "SIS"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sector: got %d: %s", rec.Code, rec.Body.String())
	}

	list := doJSON(t, srv, http.MethodGet, "/sectores", "", nil)
	var sectores []model.Sector
	decodeInto(t, list, &sectores)
	if len(sectores) != 1 || sectores[0].Abrev != "SIS" {
		t.Fatalf("sectores = %+v", sectores)
	}

	users := doJSON(t, srv, http.MethodGet, "/usuarios", "", nil)
	var usuarios []model.Usuario
	decodeInto(t, users, &usuarios)
	if len(usuarios) != 1 || usuarios[0].ID != "ana" {
		t.Fatalf("usuarios = %+v", usuarios)
	}
}

func TestDeactivateProgramada(t *testing.T) {
	srv, repo := newTestServer(t)

	due := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	created := doJSON(t, srv, http.MethodPost, "/programadas", "ana", programadaRequest{
		Descripcion: "limpieza mensual",
		Recurrencia: "mensual",
		Asignados:   []string{"ana"},
		DueAt:       due,
	})
	var resp struct {
		Programada programadaDTO `json:"programada"`
	}
	decodeInto(t, created, &resp)

	if rec := doJSON(t, srv, http.MethodDelete, "/programadas/"+resp.Programada.ID, "ana", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate: got %d", rec.Code)
	}

	prog, err := repo.GetProgramada(context.Background(), resp.Programada.ID)
	if err != nil {
		t.Fatalf("get programada: %v", err)
	}
	if prog.Activa {
		t.Error("programada should be inactive after delete")
	}
}
