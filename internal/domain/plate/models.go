package plate

import (
	"errors"
	"image"
)

// ErrDuplicatePlate is returned by record stores when a vehicle with the same
// number plate already exists.
var ErrDuplicatePlate = errors.New("number plate already registered")

type Status string

const (
	StatusNoDetection Status = "no_detection"
	StatusUnreadable  Status = "unreadable"
	StatusDetected    Status = "detected"
)

// Region is the axis-aligned bounding box of the first quadrilateral found
// in an image, together with the contour it was derived from.
type Region struct {
	X       int           `json:"x"`
	Y       int           `json:"y"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Contour []image.Point `json:"-"`
}

func RegionFromRect(r image.Rectangle, contour []image.Point) Region {
	return Region{
		X:       r.Min.X,
		Y:       r.Min.Y,
		Width:   r.Dx(),
		Height:  r.Dy(),
		Contour: contour,
	}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// DetectionResult is the value produced by one pipeline run. Annotated is nil
// unless a region was located.
type DetectionResult struct {
	Status    Status
	Region    *Region
	PlateText string
	Annotated image.Image
}

type VehicleRecord struct {
	NumberPlate        string `json:"number_plate"`
	OwnerName          string `json:"owner_name"`
	TrafficViolations  string `json:"traffic_violations"`
	EmissionExpiryDate string `json:"emission_expiry_date"`
}

// VehicleForm holds the operator-entered fields of a new vehicle record.
type VehicleForm struct {
	OwnerName          string `json:"owner_name"`
	TrafficViolations  string `json:"traffic_violations"`
	EmissionExpiryDate string `json:"emission_expiry_date"`
}

type OutcomeKind string

const (
	OutcomeDetectionFailed OutcomeKind = "DETECTION_FAILED"
	OutcomeRecordFound     OutcomeKind = "RECORD_FOUND"
	OutcomeRecordAbsent    OutcomeKind = "RECORD_ABSENT"
)

type Outcome struct {
	Kind      OutcomeKind
	Reason    Status
	PlateText string
	Record    *VehicleRecord
	Detection DetectionResult
}

type RegistrationState string

const (
	RegistrationPending   RegistrationState = "PENDING"
	RegistrationSaved     RegistrationState = "SAVED"
	RegistrationAbandoned RegistrationState = "ABANDONED"
)
