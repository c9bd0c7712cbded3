package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/service"
)

// AbandonCommand cancels an open registration when typed at any prompt.
const AbandonCommand = ":q"

var errAbandoned = errors.New("registration abandoned")

// Desk is the operator console: one image in, the outcome printed, and the
// registration form prompted for when the plate has no record.
type Desk struct {
	plates *service.PlateService
	in     *bufio.Scanner
	out    io.Writer
}

func NewDesk(plates *service.PlateService, in io.Reader, out io.Writer) *Desk {
	return &Desk{
		plates: plates,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

func (d *Desk) Run(ctx context.Context, image []byte) (*service.ProcessResult, error) {
	result, err := d.plates.ProcessImage(ctx, image)
	if err != nil {
		return nil, err
	}

	outcome := result.Outcome
	switch outcome.Kind {
	case plate.OutcomeDetectionFailed:
		fmt.Fprintln(d.out, "Number plate could not be detected.")
	case plate.OutcomeRecordFound:
		printRecord(d.out, outcome.Record)
	case plate.OutcomeRecordAbsent:
		if _, err := d.register(ctx, outcome); err != nil {
			return result, err
		}
	}
	return result, nil
}

// register runs the creation sub-flow and returns the registration in its
// final state, saved or abandoned.
func (d *Desk) register(ctx context.Context, outcome plate.Outcome) (*service.Registration, error) {
	reg, err := service.RegistrationFor(outcome)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(d.out, "No record found for number plate %s.\n", reg.PlateText())
	fmt.Fprintf(d.out, "Enter the vehicle details (%s to cancel).\n", AbandonCommand)

	for {
		form, err := d.readForm()
		if errors.Is(err, errAbandoned) {
			reg.Abandon()
			fmt.Fprintln(d.out, "Registration cancelled.")
			return reg, nil
		}
		if err != nil {
			return reg, err
		}

		record, err := d.plates.Submit(ctx, reg, form)
		switch {
		case err == nil:
			fmt.Fprintln(d.out, "Vehicle record saved.")
			printRecord(d.out, record)
			return reg, nil
		case errors.Is(err, service.ErrValidation):
			fmt.Fprintf(d.out, "%v. Try again.\n", err)
		case errors.Is(err, service.ErrDuplicateKey):
			reg.Abandon()
			fmt.Fprintf(d.out, "A record for number plate %s already exists.\n", reg.PlateText())
			return reg, nil
		default:
			return reg, err
		}
	}
}

func (d *Desk) readForm() (plate.VehicleForm, error) {
	var form plate.VehicleForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"Owner name", &form.OwnerName},
		{"Traffic violations", &form.TrafficViolations},
		{"Emission expiry date", &form.EmissionExpiryDate},
	}

	for _, f := range fields {
		fmt.Fprintf(d.out, "%s: ", f.label)
		if !d.in.Scan() {
			if err := d.in.Err(); err != nil {
				return form, fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(d.out)
			return form, errAbandoned
		}
		line := d.in.Text()
		if strings.TrimSpace(line) == AbandonCommand {
			return form, errAbandoned
		}
		*f.dst = line
	}
	return form, nil
}

func printRecord(out io.Writer, record *plate.VehicleRecord) {
	fmt.Fprintf(out, "Number plate: %s\n", record.NumberPlate)
	fmt.Fprintf(out, "Owner name: %s\n", record.OwnerName)
	fmt.Fprintf(out, "Traffic violations: %s\n", record.TrafficViolations)
	fmt.Fprintf(out, "Emission expiry date: %s\n", record.EmissionExpiryDate)
}
