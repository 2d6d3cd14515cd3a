package storage

import (
	"errors"
	"fmt"
	"time"

	"skinvault/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetaStore is the sync bookkeeping key-value table.
type MetaStore struct {
	db *gorm.DB
}

func NewMetaStore(db *gorm.DB) *MetaStore {
	return &MetaStore{db: db}
}

func (s *MetaStore) Get(key string) (string, error) {
	var meta models.SyncMeta
	err := s.db.First(&meta, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return meta.Value, nil
}

func (s *MetaStore) Set(key, value string) error {
	meta := models.SyncMeta{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
	if err != nil {
		return classifyWrite(fmt.Errorf("failed to write meta %s: %w", key, err))
	}
	return nil
}

// GetTime parses a stored RFC3339 timestamp. Returns the zero time when
// the key has never been written or holds garbage.
func (s *MetaStore) GetTime(key string) (time.Time, error) {
	value, err := s.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (s *MetaStore) SetTime(key string, t time.Time) error {
	return s.Set(key, t.Format(time.RFC3339))
}

// Reset drops all bookkeeping. Used only by clear-and-resync.
func (s *MetaStore) Reset() error {
	if err := s.db.Where("1 = 1").Delete(&models.SyncMeta{}).Error; err != nil {
		return fmt.Errorf("failed to reset sync meta: %w", err)
	}
	return nil
}
