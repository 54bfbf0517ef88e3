package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docrepo/internal/backend"
	"docrepo/internal/config"
	handlers "docrepo/internal/http/handler"
	"docrepo/internal/http/middleware"
	"docrepo/internal/logging"
	"docrepo/internal/model"
	"docrepo/internal/otel"
	"docrepo/internal/repository"
	"docrepo/internal/service"
)

// @title Notes API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Error("tracing_init_failed", "error", err)
		os.Exit(1)
	}

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	noteRepo, err := repository.New[model.Note, string](ctx, store.Store, model.NoteCodec)
	if err != nil {
		logger.Error("repository_init_failed", "error", err)
		os.Exit(1)
	}
	noteSvc := service.NewNoteService(noteRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Error("metrics_init_failed", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(app, store.Store, noteSvc)

	handlers.RegisterSwagger(app, cfg.AppHost)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown_started")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("http_listening", "addr", addr, "backend", store.Name)
	if err := app.Listen(addr); err != nil {
		logger.Error("http_listen_failed", "error", err)
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(cleanupCtx); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	if err := shutdownTracing(cleanupCtx); err != nil {
		logger.Error("tracing_shutdown_failed", "error", err)
	}
}
