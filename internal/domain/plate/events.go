package plate

import (
	"time"

	"github.com/google/uuid"
)

// DetectionEntry is one row of the detection audit log.
type DetectionEntry struct {
	ID          uuid.UUID   `json:"id"`
	Status      Status      `json:"status"`
	Outcome     OutcomeKind `json:"outcome"`
	PlateText   string      `json:"plate_text"`
	Region      *Region     `json:"region,omitempty"`
	SnapshotURL string      `json:"snapshot_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type EventType string

const (
	EventDetectionCompleted EventType = "detection.completed"
	EventVehicleRegistered  EventType = "vehicle.registered"
)

// OutcomeEvent is published after a detection is reconciled or a vehicle is
// registered.
type OutcomeEvent struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"type"`
	Outcome     OutcomeKind    `json:"outcome,omitempty"`
	Reason      Status         `json:"reason,omitempty"`
	PlateText   string         `json:"plate_text"`
	Region      *Region        `json:"region,omitempty"`
	Vehicle     *VehicleRecord `json:"vehicle,omitempty"`
	SnapshotURL string         `json:"snapshot_url,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
