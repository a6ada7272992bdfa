package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"extwatch/internal/auth"
	"extwatch/internal/config"
	"extwatch/internal/db"
	"extwatch/internal/directory"
	"extwatch/internal/handlers"
	"extwatch/internal/logger"
	"extwatch/internal/status"
	"extwatch/internal/ws"

	_ "extwatch/docs"
)

// @title ExtWatch API
// @version 1.0
// @description Real-time extension status aggregation for call-center dashboards
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfgPath := "config.yaml"
	if v := os.Getenv("EXTWATCH_CONFIG"); v != "" {
		cfgPath = v
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer log.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(rootCtx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	fetcher := status.NewFetcher(
		cfg.Upstream.BaseURL,
		cfg.Upstream.APIToken,
		cfg.Status.BatchCap,
		cfg.Status.FetchTimeout,
		log.Named("fetcher"),
	)

	svc := status.NewService(status.Options{
		PollInterval:         cfg.Status.PollInterval,
		FallbackInterval:     cfg.Status.FallbackInterval,
		SuspendCheckInterval: cfg.Status.SuspendCheckInterval,
		SuspendCheckDelay:    cfg.Status.SuspendCheckDelay,
		BatchCap:             cfg.Status.BatchCap,
		NotifyChannel:        cfg.Status.NotifyChannel,
		AuthCheckURL:         cfg.Upstream.AuthURL,
		APIToken:             cfg.Upstream.APIToken,
		ShouldActivate:       status.AllowList(cfg.Status.ActiveContexts),
		OnForcedLogout: func(reason string) {
			log.Warn("forced logout", zap.String("reason", reason))
		},
	}, fetcher, pool, log.Named("status"))
	defer svc.Shutdown()

	dir := directory.New(pool, log.Named("directory"))

	authHandler := &auth.Handler{
		DB:     pool,
		Secret: cfg.JWT.Secret,
		TTL:    time.Minute * time.Duration(cfg.JWT.TTLMinutes),
		Logger: log.Named("auth"),
	}
	statusHandler := &handlers.StatusHandler{
		Service:   svc,
		Directory: dir,
		Logger:    log.Named("status-api"),
		BaseCtx:   rootCtx,
	}
	agentsHandler := &handlers.AgentsHandler{
		Directory: dir,
		Service:   svc,
		Logger:    log.Named("agents-api"),
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public routes
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/ws/monitor", ws.Monitor(svc, cfg.JWT.Secret, log.Named("ws")))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWT.Secret))

		r.Get("/api/auth/principal", authHandler.Principal)

		r.Get("/api/status", statusHandler.GetStatus)
		r.Post("/api/status/batch", statusHandler.Batch)
		r.Post("/api/status/start", statusHandler.Start)
		r.Post("/api/status/stop", statusHandler.Stop)
		r.Get("/api/status/stats", statusHandler.Stats)
		r.Get("/api/status/{extension}", statusHandler.GetExtension)

		r.Get("/api/agents", agentsHandler.GetAgents)
	})

	// Swagger
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	go func() {
		<-rootCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
}
