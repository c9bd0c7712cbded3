package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/utils"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrRegistrationClosed = errors.New("registration closed")
)

// VehicleStore is the record store the flow reconciles against. Lookup
// returns nil, nil when no record matches.
type VehicleStore interface {
	Lookup(ctx context.Context, numberPlate string) (*plate.VehicleRecord, error)
	Insert(ctx context.Context, record plate.VehicleRecord) error
}

type ReconciliationFlow struct {
	tracer trace.Tracer
	log    zerolog.Logger
}

func NewReconciliationFlow(log zerolog.Logger) *ReconciliationFlow {
	return &ReconciliationFlow{
		tracer: otel.Tracer("plate-registry/reconcile"),
		log:    log,
	}
}

// Reconcile maps a detection result to one of the three outcomes. Empty
// plate text is a detection failure and never reaches the store.
func (f *ReconciliationFlow) Reconcile(ctx context.Context, result plate.DetectionResult, store VehicleStore) (plate.Outcome, error) {
	ctx, span := f.tracer.Start(ctx, "reconcile.reconcile")
	defer span.End()

	outcome := plate.Outcome{
		PlateText: result.PlateText,
		Detection: result,
	}

	switch {
	case result.Status == plate.StatusNoDetection || result.Region == nil:
		f.log.Info().Msg("number plate could not be detected")
		outcome.Kind = plate.OutcomeDetectionFailed
		outcome.Reason = plate.StatusNoDetection
		return outcome, nil
	case result.PlateText == "":
		f.log.Warn().
			Int("x", result.Region.X).
			Int("y", result.Region.Y).
			Msg("plate region located but text is unreadable")
		outcome.Kind = plate.OutcomeDetectionFailed
		outcome.Reason = plate.StatusUnreadable
		return outcome, nil
	}

	record, err := store.Lookup(ctx, result.PlateText)
	if err != nil {
		span.RecordError(err)
		f.log.Error().Err(err).Str("plate", result.PlateText).Msg("failed to look up vehicle")
		return plate.Outcome{}, fmt.Errorf("lookup vehicle: %w", err)
	}

	span.SetAttributes(attribute.Bool("found", record != nil))

	if record == nil {
		f.log.Info().Str("plate", result.PlateText).Msg("vehicle not found, registration required")
		outcome.Kind = plate.OutcomeRecordAbsent
		return outcome, nil
	}

	f.log.Info().Str("plate", result.PlateText).Str("owner", record.OwnerName).Msg("vehicle found")
	outcome.Kind = plate.OutcomeRecordFound
	outcome.Record = record
	return outcome, nil
}

// Registration is the record-creation sub-flow for a plate with no record.
type Registration struct {
	plateText string
	state     plate.RegistrationState
}

func NewRegistration(plateText string) (*Registration, error) {
	if plateText == "" {
		return nil, fmt.Errorf("%w: number plate cannot be empty", ErrInvalidInput)
	}
	return &Registration{
		plateText: plateText,
		state:     plate.RegistrationPending,
	}, nil
}

// RegistrationFor opens the creation sub-flow for an absent-record outcome.
func RegistrationFor(outcome plate.Outcome) (*Registration, error) {
	if outcome.Kind != plate.OutcomeRecordAbsent {
		return nil, fmt.Errorf("%w: registration requires outcome %s, got %s",
			ErrInvalidInput, plate.OutcomeRecordAbsent, outcome.Kind)
	}
	return NewRegistration(outcome.PlateText)
}

func (r *Registration) PlateText() string {
	return r.plateText
}

func (r *Registration) State() plate.RegistrationState {
	return r.state
}

// Abandon closes a pending registration without saving.
func (r *Registration) Abandon() {
	if r.state == plate.RegistrationPending {
		r.state = plate.RegistrationAbandoned
	}
}

// ValidateForm normalizes operator input and requires every field.
func ValidateForm(form plate.VehicleForm) (plate.VehicleForm, error) {
	cleaned := plate.VehicleForm{
		OwnerName:          utils.NormalizeField(form.OwnerName),
		TrafficViolations:  utils.NormalizeField(form.TrafficViolations),
		EmissionExpiryDate: utils.NormalizeField(form.EmissionExpiryDate),
	}

	var missing []string
	if cleaned.OwnerName == "" {
		missing = append(missing, "owner_name")
	}
	if cleaned.TrafficViolations == "" {
		missing = append(missing, "traffic_violations")
	}
	if cleaned.EmissionExpiryDate == "" {
		missing = append(missing, "emission_expiry_date")
	}
	if len(missing) > 0 {
		return plate.VehicleForm{}, fmt.Errorf("%w: required fields missing: %v", ErrValidation, missing)
	}
	return cleaned, nil
}

// Submit saves the registration. A validation or duplicate-key failure
// leaves the registration pending so the operator can retry or abandon.
func (f *ReconciliationFlow) Submit(ctx context.Context, reg *Registration, form plate.VehicleForm, store VehicleStore) (*plate.VehicleRecord, error) {
	ctx, span := f.tracer.Start(ctx, "reconcile.submit")
	defer span.End()

	if reg.state != plate.RegistrationPending {
		return nil, fmt.Errorf("%w: state is %s", ErrRegistrationClosed, reg.state)
	}

	cleaned, err := ValidateForm(form)
	if err != nil {
		f.log.Warn().Err(err).Str("plate", reg.plateText).Msg("vehicle registration rejected")
		return nil, err
	}

	record := plate.VehicleRecord{
		NumberPlate:        reg.plateText,
		OwnerName:          cleaned.OwnerName,
		TrafficViolations:  cleaned.TrafficViolations,
		EmissionExpiryDate: cleaned.EmissionExpiryDate,
	}

	if err := store.Insert(ctx, record); err != nil {
		span.RecordError(err)
		if errors.Is(err, plate.ErrDuplicatePlate) {
			f.log.Error().Str("plate", reg.plateText).Msg("vehicle already registered")
			return nil, fmt.Errorf("%w: vehicle %s already exists", ErrDuplicateKey, reg.plateText)
		}
		f.log.Error().Err(err).Str("plate", reg.plateText).Msg("failed to save vehicle")
		return nil, fmt.Errorf("save vehicle: %w", err)
	}

	reg.state = plate.RegistrationSaved
	f.log.Info().
		Str("plate", record.NumberPlate).
		Str("owner", record.OwnerName).
		Msg("vehicle information saved")

	return &record, nil
}
