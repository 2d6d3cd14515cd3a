package storage

import (
	"errors"
	"fmt"
	"time"

	"skinvault/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceStore owns the price_cache and price_history tables.
type PriceStore struct {
	db *gorm.DB
}

func NewPriceStore(db *gorm.DB) *PriceStore {
	return &PriceStore{db: db}
}

// UpsertSnapshot replaces the cached stats for a market key.
func (s *PriceStore) UpsertSnapshot(snap models.PriceSnapshot) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_key"}},
		UpdateAll: true,
	}).Create(&snap).Error
	if err != nil {
		return classifyWrite(fmt.Errorf("failed to upsert snapshot %s: %w", snap.MarketKey, err))
	}
	return nil
}

// GetSnapshot returns the last successful stats for a key, or nil if no
// poll has ever succeeded for it.
func (s *PriceStore) GetSnapshot(marketKey string) (*models.PriceSnapshot, error) {
	var snap models.PriceSnapshot
	err := s.db.First(&snap, "market_key = ?", marketKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", marketKey, err)
	}
	return &snap, nil
}

// AppendHistory records one history point. Non-positive prices are
// rejected here as a last line of defense; the refresh path already
// filters them.
func (s *PriceStore) AppendHistory(point models.PriceHistoryPoint) error {
	if point.Price <= 0 {
		return fmt.Errorf("refusing to record non-positive price %.2f for %s", point.Price, point.MarketKey)
	}
	if err := s.db.Create(&point).Error; err != nil {
		return classifyWrite(fmt.Errorf("failed to append history for %s: %w", point.MarketKey, err))
	}
	return nil
}

// History returns the points for a key since the given time, oldest
// first.
func (s *PriceStore) History(marketKey string, since time.Time) ([]models.PriceHistoryPoint, error) {
	var points []models.PriceHistoryPoint
	err := s.db.
		Where("market_key = ? AND timestamp >= ?", marketKey, since).
		Order("timestamp asc").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", marketKey, err)
	}
	return points, nil
}

// PruneHistory deletes every point older than the cutoff and returns
// the number of rows removed.
func (s *PriceStore) PruneHistory(cutoff time.Time) (int64, error) {
	res := s.db.Where("timestamp < ?", cutoff).Delete(&models.PriceHistoryPoint{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune history: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Reset wipes both price tables. Used only by clear-and-resync.
func (s *PriceStore) Reset() error {
	if err := s.db.Where("1 = 1").Delete(&models.PriceSnapshot{}).Error; err != nil {
		return fmt.Errorf("failed to reset price cache: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.PriceHistoryPoint{}).Error; err != nil {
		return fmt.Errorf("failed to reset price history: %w", err)
	}
	return nil
}
