package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/audit"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/leave"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/notifications"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/overtime"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/payslip"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
	cryptoutil "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/crypto"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/db"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/email"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/jobs"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/metrics"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/storage"
	audithandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/audit"
	authhandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/auth"
	leavehandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/leave"
	notificationshandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/notifications"
	orghandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/org"
	overtimehandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/overtime"
	paysliphandler "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/handlers/payslip"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
)

// App holds the wired application. Router is ready to serve; Close
// releases the pool and stops background workers.
type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service

	cancelJobs context.CancelFunc
}

// New wires configuration, storage, domain services and the HTTP
// router. Migrations and seeding run first when the config asks for
// them.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	files, err := storage.New(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	mailer := email.New(cfg)

	authStore := auth.NewStore(pool)
	orgStore := org.NewStore(pool, cryptoSvc)
	resolver := approval.NewResolver(orgStore)

	auditSvc := audit.New(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)
	jobsSvc := jobs.New(pool, cfg)

	authSvc := auth.NewService(authStore, cryptoSvc, mailer, cfg)
	orgSvc := org.NewService(orgStore, mailer, cfg.EmailFrom)
	leaveSvc := leave.NewService(leave.NewStore(pool), orgStore, resolver, files, cfg)
	overtimeSvc := overtime.NewService(overtime.NewStore(pool, cryptoSvc), orgStore, resolver)
	payslipSvc := payslip.NewService(payslip.NewStore(pool), orgStore, files)

	idem := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

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

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, authStore, notifySvc, auditSvc).RegisterRoutes(r)
		orghandler.NewHandler(orgSvc, resolver, authStore, notifySvc, auditSvc).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, authStore, notifySvc, auditSvc, jobsSvc, idem).RegisterRoutes(r)
		overtimehandler.NewHandler(overtimeSvc, authStore, notifySvc, auditSvc, jobsSvc, idem).RegisterRoutes(r)
		paysliphandler.NewHandler(payslipSvc, authStore, notifySvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc, authStore).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authStore).RegisterRoutes(r)
	})

	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	jobsSvc.Start(jobsCtx)

	return &App{
		Config:     cfg,
		DB:         pool,
		Router:     router,
		Jobs:       jobsSvc,
		cancelJobs: cancelJobs,
	}, nil
}

func (a *App) Close() {
	if a.cancelJobs != nil {
		a.cancelJobs()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run builds the app from the environment and serves until the
// listener fails.
func Run() error {
	cfg := config.Load()
	app, err := New(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	return http.ListenAndServe(cfg.Addr, app.Router)
}
