package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/config"
	"project-ledger-api/internal/handlers"
	"project-ledger-api/internal/ledger"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/store"
	"project-ledger-api/internal/view"
	"project-ledger-api/pkg/importer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Backend is the storage behind a server: the project set, the identities, and the
// function that releases them.
type Backend struct {
	Projects store.ProjectGateway
	Users    store.UserStore
	Close    func() error
}

type Server struct {
	Config    *config.Config
	Router    *chi.Mux
	Projects  store.ProjectGateway
	Identity  *auth.Identity
	Sessions  *auth.SessionManager
	Limiter   *auth.LoginLimiter
	Registry  *view.Registry
	Formatter ledger.Formatter
	Imports   *handlers.ImportsHandler
	Metrics   *Metrics
	Logger    *log.Logger

	location *time.Location
	now      func() time.Time
	closers  []func() error
}

// NewServer wires a server from configuration: it opens the configured storage, running
// migrations first when enabled, and the configured revocation store.
func NewServer(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	revoker, closeRevoker, err := openRevoker(ctx, cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	mapping, err := importer.LoadMapping(cfg.ImportMapping)
	if err != nil {
		backend.Close()
		closeRevoker()
		return nil, fmt.Errorf("import mapping: %w", err)
	}

	s, err := New(cfg, backend, revoker, mapping, logger)
	if err != nil {
		backend.Close()
		closeRevoker()
		return nil, err
	}
	s.closers = append(s.closers, closeRevoker)
	return s, nil
}

// OpenBackend opens the storage selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (Backend, error) {
	if cfg.DataBackend == "memory" {
		m := store.NewMemory()
		return Backend{Projects: m, Users: m, Close: func() error { return nil }}, nil
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(cfg.DBDriver, cfg.DBDSN); err != nil {
			return Backend{}, fmt.Errorf("migrate: %w", err)
		}
		logger.WithComponent(log.ComponentMigrate).Info("migrations applied")
	}

	pg, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return Backend{}, err
	}
	return Backend{Projects: pg, Users: pg, Close: pg.Close}, nil
}

func openRevoker(ctx context.Context, cfg *config.Config) (auth.Revoker, func() error, error) {
	if cfg.SessionStore != "redis" {
		return auth.NewMemoryRevoker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return auth.NewRedisRevoker(client), client.Close, nil
}

// New builds a server over an already opened backend.
func New(cfg *config.Config, backend Backend, revoker auth.Revoker, mapping *importer.MappingConfig, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("JWT configuration validation failed: %w", err)
	}

	formatter := ledger.NewFormatter(cfg.Currency)
	identity := auth.NewIdentity(backend.Users, logger)
	registry := view.NewRegistry(func() *view.Controller {
		return view.NewController(backend.Projects, identity, formatter, logger)
	})

	s := &Server{
		Config:    cfg,
		Router:    chi.NewRouter(),
		Projects:  backend.Projects,
		Identity:  identity,
		Sessions:  auth.NewSessionManager(jwtManager, revoker, cfg.CookieSecure, logger),
		Limiter:   auth.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst),
		Registry:  registry,
		Formatter: formatter,
		Imports:   handlers.NewImportsHandler(backend.Projects, mapping, logger),
		Metrics:   NewMetrics(registry.Len),
		Logger:    logger,
		location:  cfg.Location(),
		now:       time.Now,
	}
	if backend.Close != nil {
		s.closers = append(s.closers, backend.Close)
	}
	if cfg.ImportMaxBytes > 0 {
		s.Imports.MaxBytes = cfg.ImportMaxBytes
	}
	s.Imports.OnImport = s.Metrics.RecordImport

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	// chi requires all middleware before the first route
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(log.Middleware(s.Logger))
	if s.Config.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Public routes
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	if s.Config.EnableMetrics {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Post("/auth/register", s.registerUser)
	s.Router.Post("/auth/login", s.loginUser)
	s.Router.Post("/auth/logout", s.logoutUser)

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(s.Sessions))
		s.mountProtectedRoutes(r)
	})
}

// mountProtectedRoutes mounts all routes that require a session
func (s *Server) mountProtectedRoutes(r chi.Router) {
	r.Get("/auth/session", s.getSession)

	r.Get("/projects", s.listProjects)
	r.Get("/projects/{id}", s.getProject)
	r.Get("/projects/{id}/audit", s.getAudit)
	r.Get("/projects/{id}/attachments/{kind}", s.getAttachment)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireEditor)
		r.Post("/projects", s.createProject)
		r.Put("/projects/{id}", s.updateProject)
		r.Delete("/projects/{id}", s.deleteProject)
		r.Post("/imports/excel", s.Imports.UploadExcel)
	})

	r.Get("/dashboard", s.getDashboard)
	r.Get("/lists/{mode}", s.getList)
	r.Get("/lists/{mode}/export.csv", s.exportCSV)
	r.Get("/lists/{mode}/export.xlsx", s.exportXLSX)

	r.Route("/ui", func(r chi.Router) {
		r.Get("/", s.getView)
		r.Post("/navigate", s.navigateView)
		r.Post("/new", s.newProjectView)
		r.Post("/edit/{id}", s.editProjectView)
		r.Post("/submit", s.submitView)
		r.Post("/reload", s.reloadView)
	})
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Projects.Ping(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// today is the current instant in the ledger's timezone.
func (s *Server) today() time.Time {
	return s.now().In(s.location)
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
