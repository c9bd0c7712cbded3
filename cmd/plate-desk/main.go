package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"plate-registry/internal/config"
	"plate-registry/internal/console"
	"plate-registry/internal/db"
	"plate-registry/internal/logger"
	"plate-registry/internal/ocr"
	"plate-registry/internal/repository"
	"plate-registry/internal/service"
	"plate-registry/internal/vision"
)

func main() {
	imagePath := flag.String("image", "", "path to the vehicle image")
	outPath := flag.String("out", "", "write the annotated image to this PNG file")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: plate-desk -image <path> [-out annotated.png]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Printf("Error reading image: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, "warn")

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

	pipeline := service.NewDetectionPipeline(vision.NewPlateLocator(), ocr.NewPlateReader(engine), appLogger)

	var opts []service.Option
	if cfg.DetectionLogEnabled {
		opts = append(opts, service.WithDetectionLog(repository.NewDetectionRepository(database)))
	}
	plates := service.NewPlateService(pipeline, service.NewReconciliationFlow(appLogger), repository.NewVehicleRepository(database), appLogger, opts...)

	desk := console.NewDesk(plates, os.Stdin, os.Stdout)
	result, err := desk.Run(context.Background(), data)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			fmt.Printf("Error: %v\n", err)
		} else {
			appLogger.Error().Err(err).Msg("detection failed")
		}
		os.Exit(1)
	}

	if *outPath != "" && len(result.AnnotatedPNG) > 0 {
		if err := os.WriteFile(*outPath, result.AnnotatedPNG, 0o644); err != nil {
			fmt.Printf("Error writing annotated image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Annotated image written to %s\n", *outPath)
	}
}
