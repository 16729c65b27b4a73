package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob is a single serialized value stored under a fixed key. The whole
// task collection lives in one row; settings use their own keys.
type Blob struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// KV is a key-value view over the blobs table.
type KV struct {
	db *gorm.DB
}

func NewKV(db *gorm.DB) *KV {
	return &KV{db: db}
}

// Get returns the stored value for key, or (nil, nil) when absent.
func (r *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var blob Blob
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	switch {
	case err == nil:
		return blob.Value, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("get blob %q: %w", key, err)
	}
}

// Set writes the value for key, replacing any prior value.
func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	blob := Blob{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("set blob %q: %w", key, err)
	}
	return nil
}

// Delete removes the value for key. Missing keys are not an error.
func (r *KV) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&Blob{}).Error; err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}
