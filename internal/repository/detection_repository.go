package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"plate-registry/internal/domain/plate"
)

type DetectionRepository struct {
	db *gorm.DB
}

func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (PlateDetection) TableName() string {
	return "plate_detections"
}

type PlateDetection struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Status      string         `gorm:"not null"`
	Outcome     string         `gorm:"not null"`
	PlateText   string         `gorm:"not null;default:''"`
	Region      datatypes.JSON `gorm:"type:jsonb"`
	SnapshotURL *string
	CreatedAt   time.Time
}

func (r *DetectionRepository) Record(ctx context.Context, entry plate.DetectionEntry) error {
	row := PlateDetection{
		ID:        entry.ID,
		Status:    string(entry.Status),
		Outcome:   string(entry.Outcome),
		PlateText: entry.PlateText,
		CreatedAt: entry.CreatedAt,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if entry.SnapshotURL != "" {
		row.SnapshotURL = &entry.SnapshotURL
	}
	if entry.Region != nil {
		raw, err := json.Marshal(entry.Region)
		if err != nil {
			return fmt.Errorf("marshal region: %w", err)
		}
		row.Region = datatypes.JSON(raw)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create detection in database: %w", err)
	}
	return nil
}

func (r *DetectionRepository) List(ctx context.Context, limit, offset int) ([]plate.DetectionEntry, error) {
	query := r.db.WithContext(ctx).Model(&PlateDetection{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []PlateDetection
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]plate.DetectionEntry, 0, len(rows))
	for _, row := range rows {
		entry := plate.DetectionEntry{
			ID:        row.ID,
			Status:    plate.Status(row.Status),
			Outcome:   plate.OutcomeKind(row.Outcome),
			PlateText: row.PlateText,
			CreatedAt: row.CreatedAt,
		}
		if row.SnapshotURL != nil {
			entry.SnapshotURL = *row.SnapshotURL
		}
		if len(row.Region) > 0 {
			var region plate.Region
			if err := json.Unmarshal(row.Region, &region); err != nil {
				return nil, fmt.Errorf("unmarshal region of detection %s: %w", row.ID, err)
			}
			entry.Region = &region
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
