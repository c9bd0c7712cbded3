package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/export"
	"plate-registry/internal/vision"
)

// VehicleRegistry is a VehicleStore that can also enumerate records.
type VehicleRegistry interface {
	VehicleStore
	List(ctx context.Context, limit, offset int) ([]plate.VehicleRecord, error)
}

type DetectionLog interface {
	Record(ctx context.Context, entry plate.DetectionEntry) error
	List(ctx context.Context, limit, offset int) ([]plate.DetectionEntry, error)
}

type SnapshotUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event plate.OutcomeEvent) error
}

type PlateService struct {
	pipeline   *DetectionPipeline
	flow       *ReconciliationFlow
	vehicles   VehicleRegistry
	detections DetectionLog
	snapshots  SnapshotUploader
	events     EventPublisher
	log        zerolog.Logger
}

type Option func(*PlateService)

func WithDetectionLog(l DetectionLog) Option {
	return func(s *PlateService) { s.detections = l }
}

func WithSnapshots(u SnapshotUploader) Option {
	return func(s *PlateService) { s.snapshots = u }
}

func WithEvents(p EventPublisher) Option {
	return func(s *PlateService) { s.events = p }
}

func NewPlateService(pipeline *DetectionPipeline, flow *ReconciliationFlow, vehicles VehicleRegistry, log zerolog.Logger, opts ...Option) *PlateService {
	s := &PlateService{
		pipeline: pipeline,
		flow:     flow,
		vehicles: vehicles,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ProcessResult struct {
	DetectionID  uuid.UUID
	Outcome      plate.Outcome
	AnnotatedPNG []byte
	SnapshotURL  string
}

// ProcessImage runs detection on an encoded image and reconciles the result
// against the vehicle registry.
func (s *PlateService) ProcessImage(ctx context.Context, data []byte) (*ProcessResult, error) {
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	defer img.Close()

	detection, err := s.pipeline.RunDetection(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	result := &ProcessResult{DetectionID: uuid.New()}

	if detection.Annotated != nil {
		encoded, err := vision.EncodePNG(detection.Annotated)
		if err != nil {
			return nil, err
		}
		result.AnnotatedPNG = encoded
		result.SnapshotURL = s.uploadSnapshot(ctx, result.DetectionID, encoded)
	}

	outcome, err := s.flow.Reconcile(ctx, detection, s.vehicles)
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	s.recordDetection(ctx, result)
	s.publish(ctx, plate.OutcomeEvent{
		ID:          result.DetectionID,
		Type:        plate.EventDetectionCompleted,
		Outcome:     outcome.Kind,
		Reason:      outcome.Reason,
		PlateText:   outcome.PlateText,
		Region:      detection.Region,
		Vehicle:     outcome.Record,
		SnapshotURL: result.SnapshotURL,
		OccurredAt:  time.Now().UTC(),
	})

	s.log.Info().
		Str("detection_id", result.DetectionID.String()).
		Str("outcome", string(outcome.Kind)).
		Str("plate", outcome.PlateText).
		Msg("detection processed")

	return result, nil
}

func (s *PlateService) uploadSnapshot(ctx context.Context, id uuid.UUID, png []byte) string {
	if s.snapshots == nil {
		return ""
	}
	key := fmt.Sprintf("detections/%s/%s.png", time.Now().UTC().Format("2006/01/02"), id)
	url, err := s.snapshots.Upload(ctx, key, bytes.NewReader(png), int64(len(png)), "image/png")
	if err != nil {
		s.log.Warn().Err(err).Str("detection_id", id.String()).Msg("failed to upload annotated snapshot")
		return ""
	}
	return url
}

func (s *PlateService) recordDetection(ctx context.Context, result *ProcessResult) {
	if s.detections == nil {
		return
	}
	entry := plate.DetectionEntry{
		ID:          result.DetectionID,
		Status:      result.Outcome.Detection.Status,
		Outcome:     result.Outcome.Kind,
		PlateText:   result.Outcome.PlateText,
		Region:      result.Outcome.Detection.Region,
		SnapshotURL: result.SnapshotURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.detections.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("detection_id", entry.ID.String()).Msg("failed to record detection")
	}
}

func (s *PlateService) publish(ctx context.Context, event plate.OutcomeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish outcome event")
	}
}

func (s *PlateService) GetVehicle(ctx context.Context, numberPlate string) (*plate.VehicleRecord, error) {
	numberPlate = strings.TrimSpace(numberPlate)
	if numberPlate == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}

	record, err := s.vehicles.Lookup(ctx, numberPlate)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, numberPlate)
	}
	return record, nil
}

// RegisterVehicle completes the creation sub-flow for a plate that had no
// record.
func (s *PlateService) RegisterVehicle(ctx context.Context, numberPlate string, form plate.VehicleForm) (*plate.VehicleRecord, error) {
	reg, err := NewRegistration(strings.TrimSpace(numberPlate))
	if err != nil {
		return nil, err
	}

	return s.Submit(ctx, reg, form)
}

// Submit forwards an operator form for an open registration.
func (s *PlateService) Submit(ctx context.Context, reg *Registration, form plate.VehicleForm) (*plate.VehicleRecord, error) {
	record, err := s.flow.Submit(ctx, reg, form, s.vehicles)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, plate.OutcomeEvent{
		ID:         uuid.New(),
		Type:       plate.EventVehicleRegistered,
		PlateText:  record.NumberPlate,
		Vehicle:    record,
		OccurredAt: time.Now().UTC(),
	})
	return record, nil
}

func (s *PlateService) ListDetections(ctx context.Context, limit, offset int) ([]plate.DetectionEntry, error) {
	if s.detections == nil {
		return []plate.DetectionEntry{}, nil
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.detections.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return entries, nil
}

// ExportVehicles renders the whole registry as an XLSX workbook.
func (s *PlateService) ExportVehicles(ctx context.Context) ([]byte, error) {
	records, err := s.vehicles.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	data, err := export.VehiclesWorkbook(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}

	s.log.Info().Int("vehicles", len(records)).Msg("vehicle registry exported")
	return data, nil
}
