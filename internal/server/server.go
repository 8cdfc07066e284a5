// Package server exposes the arm controller over HTTP and streams its
// events to WebSocket clients.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mahlburgc/armterm/internal/controller"
)

const shutdownTimeout = 10 * time.Second

// Server serves the REST API and the /ws event stream for one controller.
type Server struct {
	ctrl   *controller.Controller
	hub    *Hub
	router chi.Router
	logger *slog.Logger
	detach func()
}

// New creates a server and attaches its event hub to ctrl.
func New(ctrl *controller.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		ctrl:   ctrl,
		hub:    NewHub(ctrl.Snapshot, logger.With("component", "hub")),
		logger: logger,
	}
	s.detach = ctrl.Attach(s.hub)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/ports", s.handlePorts)
		r.Put("/port", s.handleSelectPort)
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Put("/joints/{joint}", s.handleSetJoint)
		r.Post("/pose", s.handlePose)
		r.Post("/reset", s.handleReset)
		r.Post("/send", s.handleSend)
	})

	// WebSocket endpoint.
	r.Get("/ws", s.hub.ServeHTTP)

	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close detaches from the controller and ends all WebSocket streams.
func (s *Server) Close() {
	s.detach()
	s.hub.Close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout, /ws streams stay open
		IdleTimeout: 120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down gracefully...")
	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server stopped successfully")
	return nil
}
