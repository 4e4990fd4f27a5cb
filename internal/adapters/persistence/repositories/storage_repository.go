package repositories

import (
	"context"
	"errors"
	"time"

	"paydesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storageRepository implements ClientStore on a SQL table
type storageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStorageRepository creates a new SQL-backed client store
func NewStorageRepository(db *gorm.DB) ClientStore {
	return &storageRepository{db: db, now: time.Now}
}

// Set upserts a value with expiry
func (r *storageRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := &models.StorageEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: r.now().Add(ttl),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(entry).Error
}

// Get gets a live value by key
func (r *storageRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.StorageEntry
	err := r.db.WithContext(ctx).
		Where("storage_key = ?", key).
		Where("expires_at > ?", r.now()).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// Delete removes a key immediately
func (r *storageRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("storage_key = ?", key).
		Delete(&models.StorageEntry{}).Error
}

// PurgeExpired deletes expired rows
func (r *storageRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&models.StorageEntry{})
	return result.RowsAffected, result.Error
}

// Ping checks the database connection
func (r *storageRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
