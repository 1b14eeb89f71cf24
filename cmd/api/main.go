// Copyright (c) 2026 TrustFlow. All rights reserved.

// Command api is the entry point for the TrustFlow identity HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Seed system roles and warm the registry snapshot.
//  7. Wire domain services and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustflow/identity/internal/api"
	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/auth"
	"github.com/trustflow/identity/internal/platform/config"
	"github.com/trustflow/identity/internal/platform/constants"
	"github.com/trustflow/identity/internal/platform/metrics"
	"github.com/trustflow/identity/internal/platform/migration"
	pgstore "github.com/trustflow/identity/internal/platform/postgres"
	redisstore "github.com/trustflow/identity/internal/platform/redis"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/roles"
	"github.com/trustflow/identity/internal/verification"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Observability ──────────────────────────────────────────────────
	prom := metrics.New()

	// ── 7. Audit Recorder ─────────────────────────────────────────────────
	auditStore := audit.NewPostgresStore(pool)
	auditRecorder := audit.NewRecorder(auditStore, log, prom)
	auditRecorder.Start()
	defer auditRecorder.Close()

	// ── 8. Role Registry ──────────────────────────────────────────────────
	roleStore := roles.NewPostgresStore(pool)
	roleRegistry := roles.NewRegistry(roleStore)
	roleService := roles.NewService(roleStore, roleRegistry, auditRecorder, log)
	must(log, roleService.Seed(startupCtx), "seed system roles")
	roleResolver := roles.NewResolver(roleRegistry)

	// ── 9. Credential & Session Stores ────────────────────────────────────
	userStore := auth.NewPostgresUserStore(pool)
	sessionStore := auth.NewPostgresSessionStore(pool)
	inviteStore := auth.NewPostgresInviteStore(pool)
	challengeRepository := auth.NewRedisChallengeRepository(rdb)
	otpRepository := auth.NewRedisOTPRepository(rdb)

	// ── 10. Verification Engine ───────────────────────────────────────────
	// EMAIL and PHONE resolve automatically against recently confirmed OTP
	// channels; every other method waits for a reviewer.
	verificationService := verification.NewService(
		verification.NewPostgresStore(pool),
		userStore,
		map[verification.Method]verification.Verifier{
			verification.MethodEmail: verification.NewChannelVerifier(otpRepository, "email"),
			verification.MethodPhone: verification.NewChannelVerifier(otpRepository, "phone"),
		},
		auditRecorder,
		prom,
		log,
	)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go runExpirySweep(sweepCtx, verificationService, cfg.ExpirySweepInterval, log)

	// ── 11. Auth Service ──────────────────────────────────────────────────
	signer, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AssertionIssuer)
	must(log, err, "initialize assertion signer")

	authService := auth.NewService(auth.Deps{
		Users:      userStore,
		Sessions:   sessionStore,
		Invites:    inviteStore,
		Challenges: challengeRepository,
		OTPs:       otpRepository,
		Resolver:   roleResolver,
		Registry:   roleRegistry,
		Signer:     signer,
		Audit:      auditRecorder,
		Metrics:    prom,
		Logger:     log,
	}, auth.Config{
		AccessTokenTTL:      cfg.AccessTokenTTL,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		RegistrationEnabled: cfg.RegistrationEnabled,
	})

	// ── 12. Health handlers (wired with real dependency checkers) ─────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 13. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Auth:         auth.NewHandler(authService),
		Roles:        roles.NewHandler(roleService),
		Verification: verification.NewHandler(verificationService),
		Audit:        audit.NewHandler(auditStore),
		Metrics:      prom,
	}

	server := api.NewServer(cfg, log, authService, handlers)

	// ── 14. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// runExpirySweep periodically expires open verification records that sat
// unresolved past their window.
func runExpirySweep(ctx context.Context, service *verification.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := service.ExpireDue(ctx)
			if err != nil {
				log.Error("verification_expiry_sweep_failed", slog.Any("error", err))
				continue
			}
			if expired > 0 {
				log.Info("verification_records_expired", slog.Int("count", expired))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
