package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/ocr"
	"plate-registry/internal/vision"
)

// DetectionPipeline locates a plate, reads it and annotates the image.
// At most one detection runs at a time.
type DetectionPipeline struct {
	locator *vision.PlateLocator
	reader  *ocr.PlateReader
	slot    *semaphore.Weighted
	tracer  trace.Tracer
	log     zerolog.Logger
}

func NewDetectionPipeline(locator *vision.PlateLocator, reader *ocr.PlateReader, log zerolog.Logger) *DetectionPipeline {
	return &DetectionPipeline{
		locator: locator,
		reader:  reader,
		slot:    semaphore.NewWeighted(1),
		tracer:  otel.Tracer("plate-registry/pipeline"),
		log:     log,
	}
}

// RunDetection processes img start to finish. ctx only bounds the wait for
// a previous detection to finish; a started detection is never cancelled.
func (p *DetectionPipeline) RunDetection(ctx context.Context, img gocv.Mat) (plate.DetectionResult, error) {
	if err := p.slot.Acquire(ctx, 1); err != nil {
		return plate.DetectionResult{}, fmt.Errorf("wait for detection slot: %w", err)
	}
	defer p.slot.Release(1)

	ctx, span := p.tracer.Start(context.WithoutCancel(ctx), "pipeline.run_detection")
	defer span.End()

	result, err := p.run(ctx, img)
	if err != nil {
		span.RecordError(err)
		return plate.DetectionResult{}, err
	}

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("plate", result.PlateText),
	)
	return result, nil
}

func (p *DetectionPipeline) run(ctx context.Context, img gocv.Mat) (plate.DetectionResult, error) {
	noDetection := plate.DetectionResult{Status: plate.StatusNoDetection}

	if img.Empty() {
		p.log.Info().Msg("empty image, no plate detected")
		return noDetection, nil
	}

	gray, ok := vision.Grayscale(img)
	if !ok {
		p.log.Info().Int("channels", img.Channels()).Msg("unsupported channel layout, no plate detected")
		return noDetection, nil
	}
	defer gray.Close()

	region, found := p.locator.LocateGray(gray)
	if !found {
		p.log.Info().
			Int("width", img.Cols()).
			Int("height", img.Rows()).
			Msg("no quadrilateral candidate found")
		return noDetection, nil
	}

	text, err := p.reader.Read(ctx, gray, region)
	if err != nil {
		p.log.Error().Err(err).Msg("plate text recognition failed")
		return plate.DetectionResult{}, err
	}

	annotated, err := vision.Annotate(img, region, text)
	if err != nil {
		return plate.DetectionResult{}, err
	}

	status := plate.StatusDetected
	if text == "" {
		status = plate.StatusUnreadable
	}

	p.log.Info().
		Str("status", string(status)).
		Str("plate", text).
		Int("x", region.X).
		Int("y", region.Y).
		Int("width", region.Width).
		Int("height", region.Height).
		Msg("plate region located")

	return plate.DetectionResult{
		Status:    status,
		Region:    &region,
		PlateText: text,
		Annotated: annotated,
	}, nil
}
