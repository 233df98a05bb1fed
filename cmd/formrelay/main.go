package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/diagnosis/formrelay/internal/cooldown"
	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/http/handlers"
	"github.com/diagnosis/formrelay/internal/http/middleware"
	"github.com/diagnosis/formrelay/internal/platform/mailer"
	"github.com/diagnosis/formrelay/internal/repo/postgres"
	"github.com/diagnosis/formrelay/internal/repo/redis"
	"github.com/diagnosis/formrelay/internal/submission"
	"github.com/diagnosis/formrelay/internal/validation"
	"github.com/diagnosis/formrelay/internal/webhook"
	"github.com/diagnosis/formrelay/pkg/config"
	"github.com/diagnosis/formrelay/pkg/database"
	"github.com/diagnosis/formrelay/pkg/events"
	"github.com/diagnosis/formrelay/pkg/logger"
	"github.com/diagnosis/formrelay/pkg/metrics"
	mw "github.com/diagnosis/formrelay/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env", "error", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]func(context.Context) error{}

	// Connect to database
	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		var err error
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		checks["postgres"] = pool.Ping
	}

	// Cooldown store
	var store cooldown.Store
	switch cfg.Cooldown.Backend {
	case config.CooldownRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = redis.NewCooldownStore(client)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	case config.CooldownPostgres:
		repo := postgres.NewCooldownRepo(pool)
		store = repo
		go runJanitor(ctx, "cooldowns", time.Hour, func(ctx context.Context) (int64, error) {
			return repo.CleanupExpired(ctx)
		})
	default:
		store = cooldown.NewMemoryStore(time.Now)
	}
	limiter := cooldown.New(store, cfg.Cooldown.Window, time.Now)

	// Recorders
	m, err := metrics.New()
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}
	recorders := []submission.Recorder{submission.NewMetricsRecorder(m)}

	if cfg.Database.ArchiveEnable {
		archive := postgres.NewSubmissionRepo(pool)
		recorders = append(recorders, submission.NewArchiveRecorder(archive))
		if retention := cfg.Database.ArchiveRetention; retention > 0 {
			go runJanitor(ctx, "archive", 6*time.Hour, func(ctx context.Context) (int64, error) {
				return archive.DeleteOlderThan(ctx, time.Now().Add(-retention))
			})
		}
	}

	var bus events.Publisher = events.NopBus{}
	if cfg.NATS.Enabled {
		nb, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		bus = nb
	}
	defer bus.Close()
	recorders = append(recorders, submission.NewEventRecorder(bus))

	notifier := submission.NewNotifyRecorder(mailer.New(cfg.Email), cfg.Email.NotifyTo)
	recorders = append(recorders, notifier)

	// Controllers
	validator := validation.New(validation.Options{IntakeTextMaxLength: cfg.Forms.IntakeTextMaxLength})
	transport := webhook.NewHTTPTransport(cfg.Webhook, nil)
	newController := func(ft domain.FormType) *submission.Controller {
		return submission.New(submission.Config{
			FormType:      ft,
			Validator:     validator,
			Transport:     transport,
			Cooldown:      limiter,
			Recorders:     recorders,
			BookingURL:    cfg.Forms.BookingURL,
			FallbackEmail: cfg.Forms.FallbackEmail,
			PhoneRegion:   cfg.Forms.PhoneRegion,
		})
	}
	forms := handlers.NewFormsHandler(cfg.Server.MaxBodyBytes,
		newController(domain.FormContact),
		newController(domain.FormIntake),
	)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("formrelay"))
	r.Use(middleware.ClientKey(cfg.Server.TrustProxy))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(m.HTTPMetrics)
	r.Use(mw.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/healthz", mw.Health(checks))
	r.Handle("/metrics", m.Handler())
	r.Mount("/v1/forms", forms.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("Starting formrelay",
		"port", cfg.Server.Port,
		"ack_mode", cfg.Webhook.AckMode,
		"cooldown_backend", cfg.Cooldown.Backend,
	)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logger.Error("Formrelay listen error", "error", err)
		os.Exit(1)
	}
	if err := serve(ctx, srv, ln, 30*time.Second); err != nil {
		logger.Error("Formrelay server error", "error", err)
		os.Exit(1)
	}

	// Handlers have returned; flush notices started by the last submissions.
	notifier.Wait()
	logger.Info("Formrelay stopped")
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully. It
// returns only after in-flight requests have finished or timeout has passed.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutting down formrelay...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Formrelay shutdown error", "error", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// runJanitor calls purge every interval until ctx is done.
func runJanitor(ctx context.Context, name string, interval time.Duration, purge func(context.Context) (int64, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				logger.Warn("Cleanup failed", "table", name, "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Cleanup removed expired rows", "table", name, "rows", n)
			}
		}
	}
}
