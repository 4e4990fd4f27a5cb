package models

import (
	"time"

	"gorm.io/gorm"
)

// StorageEntry represents client_storage table: one cookie-like value with expiry.
// Values are opaque (already encrypted by the caller).
type StorageEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:storage_key;uniqueIndex;size:191;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StorageEntry) TableName() string {
	return "client_storage"
}

// AutoMigrate creates the tables paydesk owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&StorageEntry{},
	)
}
