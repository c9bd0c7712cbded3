package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"plate-registry/internal/domain/plate"
)

const uniqueViolation = "23505"

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (Vehicle) TableName() string {
	return "vehicles"
}

type Vehicle struct {
	NumberPlate        string `gorm:"primaryKey"`
	OwnerName          string `gorm:"not null"`
	TrafficViolations  string `gorm:"not null"`
	EmissionExpiryDate string `gorm:"not null"`
	CreatedAt          time.Time
}

func (v Vehicle) toRecord() plate.VehicleRecord {
	return plate.VehicleRecord{
		NumberPlate:        v.NumberPlate,
		OwnerName:          v.OwnerName,
		TrafficViolations:  v.TrafficViolations,
		EmissionExpiryDate: v.EmissionExpiryDate,
	}
}

// Lookup finds a vehicle by exact number plate. A miss returns nil, nil.
func (r *VehicleRepository) Lookup(ctx context.Context, numberPlate string) (*plate.VehicleRecord, error) {
	var v Vehicle
	err := r.db.WithContext(ctx).Where("number_plate = ?", numberPlate).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := v.toRecord()
	return &record, nil
}

// Insert creates a vehicle. An existing number plate yields
// plate.ErrDuplicatePlate.
func (r *VehicleRepository) Insert(ctx context.Context, record plate.VehicleRecord) error {
	v := Vehicle{
		NumberPlate:        record.NumberPlate,
		OwnerName:          record.OwnerName,
		TrafficViolations:  record.TrafficViolations,
		EmissionExpiryDate: record.EmissionExpiryDate,
		CreatedAt:          time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", plate.ErrDuplicatePlate, record.NumberPlate)
		}
		return fmt.Errorf("failed to create vehicle in database: %w", err)
	}
	return nil
}

// List returns vehicles ordered by number plate. limit <= 0 returns all.
func (r *VehicleRepository) List(ctx context.Context, limit, offset int) ([]plate.VehicleRecord, error) {
	query := r.db.WithContext(ctx).Model(&Vehicle{}).Order("number_plate ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var vehicles []Vehicle
	if err := query.Find(&vehicles).Error; err != nil {
		return nil, err
	}

	records := make([]plate.VehicleRecord, 0, len(vehicles))
	for _, v := range vehicles {
		records = append(records, v.toRecord())
	}
	return records, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
