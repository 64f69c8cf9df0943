package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"smartexpense/internal/advisor"
	"smartexpense/internal/backup"
	"smartexpense/internal/core"
	"smartexpense/internal/export"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
	"smartexpense/internal/middleware/ratelimit"
	"smartexpense/internal/middleware/security"
	"smartexpense/internal/records"
	"smartexpense/internal/services"
	"smartexpense/internal/session"
	"smartexpense/internal/storage"
)

// Records is the part of the record store the API reads directly.
type Records interface {
	Ping(ctx context.Context) error
	ExportSnapshot(ctx context.Context) (records.Snapshot, error)
}

// BackupHistory lists completed backups. Only the SQLite backend provides one.
type BackupHistory interface {
	RecentBackups(ctx context.Context, limit int) ([]storage.BackupEntry, error)
}

// Deps are the services behind the API. History may be nil.
type Deps struct {
	Session  *session.Manager
	Ledger   *services.LedgerService
	Advisor  *advisor.Advisor
	Exporter *export.Exporter
	Backups  *backup.Service
	Records  Records
	History  BackupHistory
	Logger   *log.Logger
}

type Options struct {
	CORSAllowedOrigins []string
	AuthRateLimit      int
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentHTTP)
	}
	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		detector: security.NewDetector(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.RequestLogger(logger))
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Retry-After", "Content-Disposition"},
			MaxAge:         300,
		}).Handler)
	}
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware(logger))
	r.Use(routeMetrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/session/cancel", s.handleCancel)
		r.Post("/session/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited))
			r.Post("/session/login", s.handleLogin)
			r.Post("/session/signup", s.handleSignup)
			r.Post("/session/verify", s.handleVerify)
			r.Post("/session/recovery", s.handleBeginRecovery)
			r.Post("/session/recovery/username", s.handleRecoveryUsername)
			r.Post("/session/recovery/password", s.handleRecoveryPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Put("/profile", s.handleProfile)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/stats", s.handleStats)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/charts/categories", s.handleCategoryChart)
			r.Get("/charts/periods", s.handlePeriodChart)
			r.Get("/tips", s.handleTips)

			r.Get("/export.csv", s.handleExportCSV)
			r.Post("/export/sheets", s.handleExportSheets)
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/backup", s.handleBackup)
			r.Get("/backups", s.handleBackupHistory)
		})
	})

	return r
}

// RunMaintenance prunes rate limiter state until ctx ends.
func (s *Server) RunMaintenance(ctx context.Context) error {
	return s.limiter.Run(ctx)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", "addr", s.Addr)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// requireLogin rejects ledger requests unless a user is logged in.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.deps.Session.Current(); !ok {
			metrics.AuthFailures.WithLabelValues("not_logged_in").Inc()
			writeError(w, r, core.ErrNotLoggedIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimited.Inc()
	s.logger.WarnContext(r.Context(), "Auth request rate limited",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests, try again later"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Records.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// routeMetrics records requests by chi route pattern so path parameters
// do not explode label cardinality.
func routeMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status/100)+"xx").Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
