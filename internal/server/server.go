// Package server exposes the control surface over HTTP: a status snapshot
// for dashboards and the approval endpoint used in confirm-before-entry mode.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"equityScalpBot/internal/app"
	"equityScalpBot/internal/ports"
)

type Server struct {
	service *app.TradingService
	logger  ports.Logger
	http    *http.Server
}

func New(addr string, service *app.TradingService, logger ports.Logger) *Server {
	s := &Server{service: service, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/approve/{symbol}", s.handleApprove)
		r.Post("/halt", s.handleHalt)
		r.Post("/resume", s.handleResume)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "http server listening", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.service.Status(r.Context()))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := s.service.Approve(r.Context(), symbol); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ports.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"approved": symbol})
}

func (s *Server) handleHalt(w http.ResponseWriter, r *http.Request) {
	s.service.Halt(r.Context())
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "halted"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.service.Resume(r.Context())
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), err, "encoding response failed", nil)
	}
}
