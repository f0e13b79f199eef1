package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dheeraj-Reddy-07/StackUp/db"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/app/migrate"
	httpx "github.com/Dheeraj-Reddy-07/StackUp/internal/http"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/metrics"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository/memory"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository/postgres"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/application"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/auth"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/chat"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/notify"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/team"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/ws"
	"github.com/Dheeraj-Reddy-07/StackUp/pkg/config"
	"github.com/Dheeraj-Reddy-07/StackUp/pkg/logger"
	"github.com/Dheeraj-Reddy-07/StackUp/pkg/webhook"
)

func main() {
	log := logger.New("api", slog.LevelInfo)
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log = logger.New("api", logger.ParseLevel(cfg.LogLevel)).With("env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New()

	var forwarder notify.Forwarder
	if url := strings.TrimSpace(cfg.NotifyWebhookURL); url != "" {
		emitter, err := webhook.NewEmitter(url, cfg.NotifyWebhookToken, nil)
		if err != nil {
			log.Error("invalid notification webhook", "error", err)
			os.Exit(1)
		}
		forwarder = notify.NewWebhookForwarder(emitter)
	}
	dispatcher := notify.NewDispatcher(store, forwarder, log, m, cfg.NotifyBuffer)
	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatcherDone)
	}()

	hub := ws.NewHub(log.With("component", "ws_hub"))
	authSvc := auth.New(store, log, cfg.JWTSecret, cfg.AccessTokenTTL)
	teamSvc := team.New(store, log)
	applicationSvc := application.New(store, teamSvc, dispatcher, m, log)
	chatSvc := chat.New(store, teamSvc, hub, dispatcher, m, log, chat.Config{HistoryLimit: cfg.MessageHistory, EventTimeout: cfg.WSEventTimeout})
	notificationSvc := notify.New(store, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(httpx.Deps{
		Logger:         log,
		Auth:           authSvc,
		Applications:   applicationSvc,
		Teams:          teamSvc,
		Chat:           chatSvc,
		Notifications:  notificationSvc,
		Metrics:        m,
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
		WSSendBuffer:   cfg.WSSendBuffer,
		DBHealth:       store.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "storage", cfg.StorageDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		router.Close()
		select {
		case <-dispatcherDone:
		case <-shutdownCtx.Done():
			log.Warn("notification dispatcher did not drain in time")
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, db.Migrations, db.MigrationsDir, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := runner.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return postgres.New(pool), pool.Close, nil
}
