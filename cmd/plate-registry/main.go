package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plate-registry/internal/auth"
	"plate-registry/internal/config"
	"plate-registry/internal/db"
	"plate-registry/internal/events"
	httphandler "plate-registry/internal/http"
	"plate-registry/internal/http/middleware"
	"plate-registry/internal/logger"
	"plate-registry/internal/ocr"
	"plate-registry/internal/repository"
	"plate-registry/internal/service"
	"plate-registry/internal/storage"
	"plate-registry/internal/vision"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	engine, err := ocr.NewTesseract(ocr.TesseractConfig{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
	})
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to initialize OCR engine")
	}
	defer engine.Close()
	appLogger.Info().Str("tesseract", ocr.Version()).Str("language", cfg.OCR.Language).Msg("OCR engine ready")

	vehicleRepo := repository.NewVehicleRepository(database)
	pipeline := service.NewDetectionPipeline(vision.NewPlateLocator(), ocr.NewPlateReader(engine), appLogger)
	flow := service.NewReconciliationFlow(appLogger)

	var opts []service.Option
	if cfg.DetectionLogEnabled {
		opts = append(opts, service.WithDetectionLog(repository.NewDetectionRepository(database)))
	}

	// Optional, the service runs without snapshot storage.
	r2Client, err := storage.NewR2Client(cfg.R2)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		appLogger.Warn().Msg("R2 storage not configured, annotated snapshots will not be stored")
	case err != nil:
		appLogger.Fatal().Err(err).Msg("failed to initialize R2 client")
	default:
		opts = append(opts, service.WithSnapshots(r2Client))
	}

	publisher, err := events.NewPublisher(cfg.Kafka, appLogger)
	switch {
	case errors.Is(err, events.ErrNotConfigured):
		appLogger.Warn().Msg("Kafka not configured, outcome events will not be published")
	case err != nil:
		appLogger.Fatal().Err(err).Msg("failed to initialize Kafka publisher")
	default:
		defer publisher.Close()
		opts = append(opts, service.WithEvents(publisher))
	}

	plateService := service.NewPlateService(pipeline, flow, vehicleRepo, appLogger, opts...)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(plateService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	ready := func(ctx context.Context) error { return db.HealthCheck(ctx, database) }
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, appLogger, ready)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting plate registry service")

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}
