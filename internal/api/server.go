// Package api is the HTTP presentation boundary. It renders the engine's
// task views and forwards complete/cancel invocations; it owns no lifecycle
// rules of its own.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

type Server struct {
	router   chi.Router
	handlers *Handlers
	log      zerolog.Logger
}

func NewServer(repo storage.Repository, lifecycle *schedule.Lifecycle, reeval *schedule.Reevaluator, engine schedule.StatusEngine, resolver *identity.Resolver, log zerolog.Logger) *Server {
	h := NewHandlers(repo, lifecycle, reeval, engine, resolver, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", h.Health)

	r.Get("/usuarios", h.ListUsuarios)
	r.Post("/usuarios", h.CreateUsuario)
	r.Get("/sectores", h.ListSectores)
	r.Post("/sectores", h.CreateSector)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/pedidos", h.ListPedidos)
		r.Post("/pedidos", h.CreatePedido)
		r.Get("/pedidos/{id}", h.GetPedido)
		r.Patch("/pedidos/{id}", h.UpdatePedido)
		r.Get("/pedidos/{id}/tareas", h.ListTareas)
		r.Post("/pedidos/{id}/tareas", h.CreateTarea)
		r.Delete("/tareas/{id}", h.DeleteTarea)

		r.Get("/programadas", h.ListProgramadas)
		r.Post("/programadas", h.CreateProgramada)
		r.Patch("/programadas/{id}", h.UpdateProgramada)
		r.Delete("/programadas/{id}", h.DeactivateProgramada)

		r.Get("/ocurrencias", h.ListOcurrencias)
		r.Post("/ocurrencias/{id}/complete", h.CompleteOcurrencia)
		r.Post("/ocurrencias/{id}/cancel", h.CancelOcurrencia)
	})

	return &Server{router: r, handlers: h, log: log}
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run(port int) error {
	httpServer := http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		s.log.Info().Msg("server shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.log.Error().Err(err).Msg("forced shutdown")
		}
		close(done)
	}()

	s.log.Info().Int("port", port).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	s.log.Info().Msg("server stopped")
	return nil
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
