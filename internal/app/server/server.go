package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"perfeval/internal/domain/assignment"
	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/reports"
	"perfeval/internal/domain/results"
	"perfeval/internal/domain/scoring"
	"perfeval/internal/domain/users"
	"perfeval/internal/platform/config"
	cryptoutil "perfeval/internal/platform/crypto"
	"perfeval/internal/platform/db"
	"perfeval/internal/platform/email"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/platform/otel"
	"perfeval/internal/platform/storage"
	assignmentshandler "perfeval/internal/transport/http/handlers/assignments"
	audithandler "perfeval/internal/transport/http/handlers/audit"
	authhandler "perfeval/internal/transport/http/handlers/auth"
	evaluationshandler "perfeval/internal/transport/http/handlers/evaluations"
	evidencehandler "perfeval/internal/transport/http/handlers/evidence"
	jobshandler "perfeval/internal/transport/http/handlers/jobs"
	notificationshandler "perfeval/internal/transport/http/handlers/notifications"
	reportshandler "perfeval/internal/transport/http/handlers/reports"
	resultshandler "perfeval/internal/transport/http/handlers/results"
	scoringhandler "perfeval/internal/transport/http/handlers/scoring"
	systemhandler "perfeval/internal/transport/http/handlers/system"
	usershandler "perfeval/internal/transport/http/handlers/users"
	"perfeval/internal/transport/http/middleware"
)

const (
	serviceName     = "perfeval"
	devJWTSecret    = "perfeval-dev-secret"
	shutdownTimeout = 15 * time.Second
)

type App struct {
	Config      config.Config
	DB          *pgxpool.Pool
	SQL         *sqlx.DB
	Jobs        *jobs.Service
	Metrics     *metrics.Collector
	Evaluations *evaluation.Service
	Router      http.Handler

	shutdownTracing func(context.Context) error
}

// Open connects to Postgres and applies migrations and the admin seed when
// configured. It is shared by every CLI command that needs the database.
func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return pool, nil
}

// New builds the application: services, background jobs and the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	shutdownTracing, err := otel.Setup(ctx, cfg, serviceName)
	if err != nil {
		slog.Warn("otel setup failed, tracing disabled", "err", err)
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}
	sqlDB := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")

	files, err := storage.New(ctx, cfg)
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("storage: %w", err)
	}
	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	collector := metrics.New()
	perms := auth.StaticPermissions{}
	auditSvc := audit.New(pool)

	jobsSvc := jobs.New(jobs.NewStore(pool), cfg)
	notifyMailer := jobs.NotificationMailer(jobsSvc, email.New(cfg), email.Enabled(cfg))
	notifySvc := notifications.New(notifications.NewStore(pool), notifyMailer)

	authSvc := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, crypto)
	usersSvc := users.NewService(users.NewStore(pool))
	evaluationSvc := evaluation.NewService(evaluation.NewStore(pool))
	assignmentStore := assignment.NewStore(pool)
	assignmentSvc := assignment.NewService(assignmentStore, evaluationSvc)
	scoringSvc := scoring.NewService(scoring.NewStore(pool))
	evidenceSvc := evidence.NewService(evidence.NewStore(pool), assignmentSvc, files, cfg.MaxUploadBytes)
	resultsSvc := results.NewService(results.NewStore(sqlDB))
	reportsSvc := reports.NewService(reports.NewStore(pool))

	jobsSvc.Register(jobs.TypeCloseExpired, jobs.CloseExpiredHandler(jobs.PostgresExpiry(pool), collector, time.Now))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(slog.Default()))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authSvc))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	router.Use(middleware.WriteRateLimit(cfg.RateLimitPerMin, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, usersSvc, auditSvc, cfg.AllowSelfSignup).RegisterRoutes(r)
		usershandler.NewHandler(usersSvc, perms, auditSvc).RegisterRoutes(r)
		evaluationshandler.NewHandler(evaluationSvc, perms, auditSvc).RegisterRoutes(r)
		assignmentshandler.NewHandler(assignmentSvc, perms, notifySvc, auditSvc, collector, middleware.NewIdempotencyStore(pool)).RegisterRoutes(r)
		scoringhandler.NewHandler(scoringSvc, perms, auditSvc, collector).RegisterRoutes(r)
		evidencehandler.NewHandler(evidenceSvc, perms, notifySvc, auditSvc, collector).RegisterRoutes(r)
		resultshandler.NewHandler(resultsSvc, perms).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc, perms).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
		jobshandler.NewHandler(jobsSvc, perms, auditSvc).RegisterRoutes(r)
		systemhandler.NewHandler(collector, perms).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &App{
		Config:          cfg,
		DB:              pool,
		SQL:             sqlDB,
		Jobs:            jobsSvc,
		Metrics:         collector,
		Evaluations:     evaluationSvc,
		Router:          otelhttp.NewHandler(router, serviceName),
		shutdownTracing: shutdownTracing,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	if !a.Jobs.Distributed() {
		a.Jobs.Start(ctx)
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("perfeval server listening", "addr", a.Config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if err := a.Jobs.Close(); err != nil {
		slog.Warn("jobs client close failed", "err", err)
	}
	if err := a.SQL.Close(); err != nil {
		slog.Warn("sql close failed", "err", err)
	}
	a.DB.Close()
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			slog.Warn("otel shutdown failed", "err", err)
		}
	}
}
