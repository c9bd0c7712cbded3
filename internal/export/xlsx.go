package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"plate-registry/internal/domain/plate"
)

const VehiclesSheet = "Vehicles"

var vehicleHeader = []interface{}{
	"Number Plate",
	"Owner Name",
	"Traffic Violations",
	"Emission Expiry Date",
}

// VehiclesWorkbook renders records as a single-sheet XLSX file, one row per
// vehicle below a header row.
func VehiclesWorkbook(records []plate.VehicleRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", VehiclesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(VehiclesSheet)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	if err := sw.SetColWidth(1, 4, 24); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := sw.SetRow("A1", vehicleHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.NumberPlate, r.OwnerName, r.TrafficViolations, r.EmissionExpiryDate}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
