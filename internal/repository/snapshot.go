package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ngx_scraper/internal/models"
)

// SnapshotRepository persists the latest published dataset.
type SnapshotRepository interface {
	// Init runs GORM AutoMigrate for the snapshot table.
	Init(ctx context.Context) error
	ReplaceSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	// LatestSnapshot returns nil, nil when nothing has been stored yet.
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// PostgresSnapshotRepository implements SnapshotRepository for PostgreSQL using GORM.
type PostgresSnapshotRepository struct {
	db *gorm.DB
}

// NewPostgresSnapshotRepository creates a new instance.
func NewPostgresSnapshotRepository(db *gorm.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{
		db: db,
	}
}

// Init handles GORM's automatic table creation/migration.
func (r *PostgresSnapshotRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.StoredSnapshot{})
}

// ReplaceSnapshot swaps the stored dataset for snapshot in a single
// transaction, so readers see either the old or the new one.
func (r *PostgresSnapshotRepository) ReplaceSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	row, err := toStoredSnapshot(snapshot)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.StoredSnapshot{}).Error; err != nil {
			return fmt.Errorf("gorm delete of previous snapshot failed: %w", err)
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("gorm insert of snapshot %s failed: %w", snapshot.RunID, err)
		}
		return nil
	})
}

// LatestSnapshot loads the most recently stored dataset.
func (r *PostgresSnapshotRepository) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var row models.StoredSnapshot
	result := r.db.WithContext(ctx).Order("scraped_at DESC").First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve snapshot: %w", result.Error)
	}
	return fromStoredSnapshot(&row)
}

func toStoredSnapshot(snapshot *models.Snapshot) (*models.StoredSnapshot, error) {
	records, err := json.Marshal(snapshot.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records of snapshot %s: %w", snapshot.RunID, err)
	}
	return &models.StoredSnapshot{
		RunID:       snapshot.RunID,
		ScrapedAt:   snapshot.ScrapedAt,
		RecordCount: len(snapshot.Records),
		Records:     records,
	}, nil
}

func fromStoredSnapshot(row *models.StoredSnapshot) (*models.Snapshot, error) {
	var records []models.Record
	if err := json.Unmarshal(row.Records, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records of snapshot %s: %w", row.RunID, err)
	}
	return &models.Snapshot{
		RunID:     row.RunID,
		ScrapedAt: row.ScrapedAt,
		Records:   records,
	}, nil
}
