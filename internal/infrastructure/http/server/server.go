package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"3tcapital/goglosas/internal/infrastructure/config"
	infrahttp "3tcapital/goglosas/internal/infrastructure/http"
	"3tcapital/goglosas/internal/infrastructure/http/middleware"
)

// GlosaRoutes serves the glosa collection.
type GlosaRoutes interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	UpdateEstado(w http.ResponseWriter, r *http.Request)
	PromoteInternalFlag(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Duplicates(w http.ResponseWriter, r *http.Request)
	Deduplicate(w http.ResponseWriter, r *http.Request)
}

// IngresoRoutes serves the ingreso collection.
type IngresoRoutes interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// ReportRoutes serves derived aggregates.
type ReportRoutes interface {
	Statistics(w http.ResponseWriter, r *http.Request)
	Consolidado(w http.ResponseWriter, r *http.Request)
	ConsolidadoXLSX(w http.ResponseWriter, r *http.Request)
}

// SyncRoutes serves reconciliation and flag recovery.
type SyncRoutes interface {
	Sync(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	RecoverFlags(w http.ResponseWriter, r *http.Request)
	SyncFlags(w http.ResponseWriter, r *http.Request)
}

// ImportRoutes serves bulk imports.
type ImportRoutes interface {
	Import(w http.ResponseWriter, r *http.Request)
}

// Server wraps the HTTP server and its router.
type Server struct {
	cfg        config.AppConfig
	log        *slog.Logger
	httpServer *http.Server
	onClose    func()
}

// Options configures the server. Route groups left nil answer 503.
type Options struct {
	Config         config.AppConfig
	Logger         *slog.Logger
	HealthHandler  http.Handler
	MetricsHandler http.Handler
	// Auth injects the session into /api requests.
	Auth     func(http.Handler) http.Handler
	Glosas   GlosaRoutes
	Ingresos IngresoRoutes
	Reports  ReportRoutes
	Sync     SyncRoutes
	Import   ImportRoutes
	// OnClose runs after the listener stops.
	OnClose func()
}

// New builds the server with every route mounted.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	log := opts.Logger.With("component", "http_server")

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", opts.HealthHandler)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	writeTimeout := middleware.Timeout(opts.Config.Sync.MutationTimeout)

	r.Route("/api", func(api chi.Router) {
		if opts.Auth != nil {
			api.Use(opts.Auth)
		}

		api.Route("/glosas", func(g chi.Router) {
			h := opts.Glosas
			g.Get("/", route(h != nil, func() http.HandlerFunc { return h.List }, log))
			g.Post("/", route(h != nil, func() http.HandlerFunc { return h.Create }, log))
			g.Get("/duplicados", route(h != nil, func() http.HandlerFunc { return h.Duplicates }, log))
			g.With(writeTimeout).Post("/deduplicar", route(h != nil, func() http.HandlerFunc { return h.Deduplicate }, log))
			g.Patch("/{id}", route(h != nil, func() http.HandlerFunc { return h.Update }, log))
			g.Delete("/{id}", route(h != nil, func() http.HandlerFunc { return h.Delete }, log))
			g.Patch("/{id}/estado", route(h != nil, func() http.HandlerFunc { return h.UpdateEstado }, log))
			g.Post("/{id}/registro-interno", route(h != nil, func() http.HandlerFunc { return h.PromoteInternalFlag }, log))
		})

		api.Route("/ingresos", func(i chi.Router) {
			h := opts.Ingresos
			i.Get("/", route(h != nil, func() http.HandlerFunc { return h.List }, log))
			i.Post("/", route(h != nil, func() http.HandlerFunc { return h.Create }, log))
			i.Delete("/{id}", route(h != nil, func() http.HandlerFunc { return h.Delete }, log))
		})

		reports := opts.Reports
		api.Get("/estadisticas", route(reports != nil, func() http.HandlerFunc { return reports.Statistics }, log))
		api.Get("/consolidado", route(reports != nil, func() http.HandlerFunc { return reports.Consolidado }, log))
		api.Get("/consolidado.xlsx", route(reports != nil, func() http.HandlerFunc { return reports.ConsolidadoXLSX }, log))

		sync := opts.Sync
		api.Post("/sync", route(sync != nil, func() http.HandlerFunc { return sync.Sync }, log))
		api.Get("/sync/estado", route(sync != nil, func() http.HandlerFunc { return sync.Status }, log))
		api.With(writeTimeout).Post("/recovery/flags", route(sync != nil, func() http.HandlerFunc { return sync.RecoverFlags }, log))
		api.With(writeTimeout).Post("/recovery/flags/sync", route(sync != nil, func() http.HandlerFunc { return sync.SyncFlags }, log))

		imp := opts.Import
		api.With(writeTimeout).Post("/import/{tipo}", route(imp != nil, func() http.HandlerFunc { return imp.Import }, log))
	})

	srv := &http.Server{
		Addr:         opts.Config.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{
		cfg:        opts.Config,
		log:        log,
		httpServer: srv,
		onClose:    opts.OnClose,
	}, nil
}

// route resolves the handler method only when its group is configured.
func route(available bool, method func() http.HandlerFunc, log *slog.Logger) http.HandlerFunc {
	if !available {
		return unavailable(log)
	}
	return method()
}

func unavailable(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infrahttp.WriteError(w, http.StatusServiceUnavailable, "Servicio no disponible", []string{"El servicio no está configurado"}, log)
	}
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
		return nil
	}

	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("graceful shutdown failed", "error", err)
		return err
	}
	s.Close()
	return nil
}

// Close releases resources registered with the server.
func (s *Server) Close() {
	if s.onClose != nil {
		s.onClose()
		s.onClose = nil
	}
}
