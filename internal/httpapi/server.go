package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/session"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// statusProvider reports every attached surface's pipeline status.
type statusProvider interface {
	Statuses() []session.Status
}

type Server struct {
	status   statusProvider
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier
	surface  http.Handler

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

// WithSurfaceHandler mounts the playback-surface websocket endpoint at
// /ws.
func WithSurfaceHandler(h http.Handler) Option {
	return func(s *Server) {
		s.surface = h
	}
}

func NewServer(status statusProvider, opts ...Option) *Server {
	s := &Server{
		status: status,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.RealIP)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	s.router.Get("/api/status", s.handleStatus)
	s.router.Get("/api/settings", s.handleGetSettings)
	s.router.Put("/api/settings", s.handlePutSettings)
	s.router.Get("/api/events", s.handleEvents)

	if s.surface != nil {
		s.router.Mount("/ws", s.surface)
	}
}
