package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/blogqna-backend/api/controllers"
	"github.com/angelmondragon/blogqna-backend/api/routes"
	"github.com/angelmondragon/blogqna-backend/internal/auth"
	"github.com/angelmondragon/blogqna-backend/internal/comments"
	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/posts"
	"github.com/angelmondragon/blogqna-backend/internal/realtime"
	"github.com/angelmondragon/blogqna-backend/internal/storage"
	"github.com/angelmondragon/blogqna-backend/pkg/auth/session"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/metrics"
	"github.com/angelmondragon/blogqna-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	backend, err := storage.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	realtimeMetrics := metrics.NewRealtimeMetrics(promRegistry)

	channels := realtime.NewRegistry(realtimeMetrics)
	resolver := realtime.NewResolver(cfg.JWT, cfg.Realtime.CookieName, sessionManager)

	dispatcher, err := notifications.NewDispatcher(backend.Notifications, channels, cfg.Notifications, logg, realtimeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       backend.Users,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireService(logg, "auth", err)

	postsService, err := posts.NewService(posts.ServiceParams{
		Repo:          backend.Posts,
		Users:         backend.Users,
		Notifier:      dispatcher,
		SnippetLength: cfg.Notifications.SnippetLength,
		Logger:        logg,
	})
	requireService(logg, "posts", err)

	commentsService, err := comments.NewService(comments.ServiceParams{
		Repo:     backend.Comments,
		Posts:    backend.Posts,
		Users:    backend.Users,
		Notifier: dispatcher,
		Limits:   cfg.Content,
	})
	requireService(logg, "comments", err)

	notificationsService, err := notifications.NewService(backend.Notifications)
	requireService(logg, "notifications", err)

	router := routes.NewRouter(routes.Params{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		RateLimiter: redisClient,
		Health: map[string]controllers.Pinger{
			"storage": backend,
			"redis":   redisClient,
		},
		Metrics:       promRegistry,
		Realtime:      realtime.NewHandler(resolver, channels, cfg.Realtime, logg, realtimeMetrics),
		Auth:          authService,
		Posts:         postsService,
		Comments:      commentsService,
		Notifications: notificationsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": backend.Name,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	channels.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown incomplete", err)
	}
	logg.Info(shutdownCtx, "api server stopped")
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "service", name), "failed to create service", err)
	os.Exit(1)
}
