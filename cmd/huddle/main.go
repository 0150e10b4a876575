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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/victorivanov/huddle/internal/api"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/config"
	"github.com/victorivanov/huddle/internal/gateway"
	"github.com/victorivanov/huddle/internal/msgid"
	redisclient "github.com/victorivanov/huddle/internal/redis"
	"github.com/victorivanov/huddle/internal/scheduler"
	"github.com/victorivanov/huddle/internal/service"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	ctx := context.Background()

	// --- Infrastructure ---

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("opening store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer st.close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		if cfg.Store == config.StorePostgres {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		slog.Warn("redis unavailable, rate limiting disabled", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	tokenSvc := auth.NewTokenService(cfg.JWTSecret)
	gwManager := gateway.NewManager(tokenSvc)
	clock := scheduler.SystemClock{}
	sched := scheduler.New(st.jobs, clock, cfg.JobTimeout)

	// --- Services ---

	notifier := service.NewNotifier(st.notifications, st.membership, gwManager, clock)
	messages := service.NewMessageService(
		st.messages,
		st.reactions,
		st.notifications,
		st.membership,
		notifier,
		msgid.New(),
		clock,
		gwManager,
	)
	deferred := service.NewDeferredService(messages, st.jobs, st.standups, sched)
	standups := service.NewStandupService(st.standups, st.membership, st.jobs, messages, sched)

	if st.seed != nil {
		if err := st.seed(ctx, notifier); err != nil {
			slog.Error("seeding demo data", "error", err)
			os.Exit(1)
		}
	}

	// Handlers are registered above, so recovered jobs can run immediately.
	recovered, err := sched.Recover(ctx)
	if err != nil {
		slog.Error("recovering scheduled jobs", "error", err)
		os.Exit(1)
	}
	slog.Info("scheduler ready", "recovered", recovered)

	settled, err := standups.Recover(ctx)
	if err != nil {
		slog.Error("recovering standups", "error", err)
		os.Exit(1)
	}
	if settled > 0 {
		slog.Info("standups settled", "count", settled)
	}

	deps := &api.Dependencies{
		Messages:     api.NewMessageHandler(messages, deferred),
		Standups:     api.NewStandupHandler(standups),
		Gateway:      gwManager,
		TokenService: tokenSvc,
		Redis:        rdb,
		Store:        st.pinger,
		RateLimit:    cfg.RateLimitPerMinute,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("huddle starting", "addr", cfg.ServerAddr, "store", cfg.Store)
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
