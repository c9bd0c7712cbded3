package console

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/ocr"
	"plate-registry/internal/service"
	"plate-registry/internal/vision"
)

type mapStore map[string]plate.VehicleRecord

func (m mapStore) Lookup(_ context.Context, numberPlate string) (*plate.VehicleRecord, error) {
	r, ok := m[numberPlate]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m mapStore) Insert(_ context.Context, record plate.VehicleRecord) error {
	if _, ok := m[record.NumberPlate]; ok {
		return plate.ErrDuplicatePlate
	}
	m[record.NumberPlate] = record
	return nil
}

func (m mapStore) List(context.Context, int, int) ([]plate.VehicleRecord, error) {
	return nil, nil
}

type fixedRecognizer string

func (f fixedRecognizer) Recognize(context.Context, []byte) (string, error) {
	return string(f), nil
}

func scene(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(220, 300, 420, 350), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newDesk(text string, store mapStore, input string) (*Desk, *bytes.Buffer) {
	log := zerolog.Nop()
	pipeline := service.NewDetectionPipeline(vision.NewPlateLocator(), ocr.NewPlateReader(fixedRecognizer(text)), log)
	plates := service.NewPlateService(pipeline, service.NewReconciliationFlow(log), store, log)

	out := &bytes.Buffer{}
	return NewDesk(plates, strings.NewReader(input), out), out
}

func TestRun_RecordFound(t *testing.T) {
	store := mapStore{"ABC123": {NumberPlate: "ABC123", OwnerName: "Jane Doe", TrafficViolations: "None", EmissionExpiryDate: "2026-01-01"}}
	desk, out := newDesk("ABC123", store, "")

	result, err := desk.Run(context.Background(), scene(t))
	require.NoError(t, err)

	assert.Equal(t, plate.OutcomeRecordFound, result.Outcome.Kind)
	assert.Contains(t, out.String(), "Owner name: Jane Doe")
	assert.Contains(t, out.String(), "Emission expiry date: 2026-01-01")
	assert.NotEmpty(t, result.AnnotatedPNG)
}

func TestRun_NotDetected(t *testing.T) {
	desk, out := newDesk("", mapStore{}, "")

	result, err := desk.Run(context.Background(), scene(t))
	require.NoError(t, err)

	assert.Equal(t, plate.OutcomeDetectionFailed, result.Outcome.Kind)
	assert.Equal(t, "Number plate could not be detected.\n", out.String())
}

func TestRun_RegistersAfterValidationRetry(t *testing.T) {
	store := mapStore{}
	input := strings.Join([]string{"", "x", "y", "John", "None", "2027-05-05"}, "\n") + "\n"
	desk, out := newDesk("XYZ999", store, input)

	_, err := desk.Run(context.Background(), scene(t))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Try again.")
	assert.Contains(t, out.String(), "Vehicle record saved.")
	assert.Equal(t, plate.VehicleRecord{
		NumberPlate:        "XYZ999",
		OwnerName:          "John",
		TrafficViolations:  "None",
		EmissionExpiryDate: "2027-05-05",
	}, store["XYZ999"])
}

func TestRun_Abandon(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "quit command", input: "John\n:q\n"},
		{name: "end of input", input: "John\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mapStore{}
			desk, out := newDesk("XYZ999", store, tt.input)

			_, err := desk.Run(context.Background(), scene(t))
			require.NoError(t, err)

			assert.Contains(t, out.String(), "Registration cancelled.")
			assert.Empty(t, store)
		})
	}
}

func TestRegister_DuplicateAbandons(t *testing.T) {
	existing := plate.VehicleRecord{NumberPlate: "DUP1", OwnerName: "Jane Doe", TrafficViolations: "None", EmissionExpiryDate: "2026-01-01"}
	store := mapStore{"DUP1": existing}
	desk, out := newDesk("", store, "John\nNone\n2027-05-05\n")

	reg, err := desk.register(context.Background(), plate.Outcome{Kind: plate.OutcomeRecordAbsent, PlateText: "DUP1"})
	require.NoError(t, err)

	assert.Equal(t, plate.RegistrationAbandoned, reg.State())
	assert.Contains(t, out.String(), "A record for number plate DUP1 already exists.")
	assert.Equal(t, existing, store["DUP1"])
}

func TestRegister_SavedState(t *testing.T) {
	desk, _ := newDesk("", mapStore{}, "John\nNone\n2027-05-05\n")

	reg, err := desk.register(context.Background(), plate.Outcome{Kind: plate.OutcomeRecordAbsent, PlateText: "NEW1"})
	require.NoError(t, err)
	assert.Equal(t, plate.RegistrationSaved, reg.State())
}
