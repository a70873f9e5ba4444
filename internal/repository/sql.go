package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertBatchSize bounds the rows per INSERT when replacing the table
const insertBatchSize = 500

// SQLRepository persists playtime snapshots through GORM.
// Works with any dialector; the server uses PostgreSQL or SQLite.
type SQLRepository struct {
	db *gorm.DB
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *gorm.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
	}
}

// Name identifies the backend in logs
func (r *SQLRepository) Name() string {
	return "sql:" + r.db.Dialector.Name()
}

// Load reads every stored row keyed by its raw player id.
// Ids are returned unparsed so the caller decides what counts as malformed.
func (r *SQLRepository) Load(ctx context.Context) (map[string]int64, error) {
	var records []models.PlaytimeRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read playtime rows: %w", err)
	}

	out := make(map[string]int64, len(records))
	for _, rec := range records {
		out[rec.PlayerID] = rec.Seconds
	}
	return out, nil
}

// Save replaces the whole table with snapshot inside a single transaction,
// so readers see either the previous set or the new one.
func (r *SQLRepository) Save(ctx context.Context, snapshot map[string]int64) error {
	now := time.Now()
	records := make([]models.PlaytimeRecord, 0, len(snapshot))
	for id, secs := range snapshot {
		records = append(records, models.PlaytimeRecord{
			PlayerID:  id,
			Seconds:   secs,
			UpdatedAt: now,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PlaytimeRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear playtime rows: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert playtime rows: %w", err)
		}
		return nil
	})
}

// LoadNames reads every stored display name
func (r *SQLRepository) LoadNames(ctx context.Context) (map[string]string, error) {
	var rows []models.PlayerName
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read player names: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = row.Name
	}
	return out, nil
}

// SaveNames upserts names; rows for players not in names are left alone
func (r *SQLRepository) SaveNames(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.PlayerName, 0, len(names))
	for id, name := range names {
		rows = append(rows, models.PlayerName{
			PlayerID:  id,
			Name:      name,
			UpdatedAt: now,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		CreateInBatches(rows, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert player names: %w", err)
	}
	return nil
}

// Ping checks if database is reachable
func (r *SQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (r *SQLRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.PlaytimeRecord{}, &models.PlayerName{})
}
