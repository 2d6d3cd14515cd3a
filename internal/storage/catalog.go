package storage

import (
	"errors"
	"fmt"
	"strings"

	"skinvault/internal/models"

	"gorm.io/gorm"
)

// CatalogStore owns the items table. All writes from the rest of the
// system go through UpsertPreservingFavorite or ToggleFavorite so the
// user-owned favorite flag can never be clobbered by a catalog re-fetch.
type CatalogStore struct {
	db *gorm.DB
}

func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&models.CatalogItem{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (s *CatalogStore) List(favoritesOnly bool) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	q := s.db.Order("name asc")
	if favoritesOnly {
		q = q.Where("is_favorite = ?", true)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *CatalogStore) Get(id string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := s.db.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", id, err)
	}
	return &item, nil
}

// UpsertPreservingFavorite replaces every field of the stored row with
// the incoming record except IsFavorite, which keeps the prior stored
// value (false for a new record). The read-merge-write runs in one
// transaction so the row is never observed half-merged.
func (s *CatalogStore) UpsertPreservingFavorite(item models.CatalogItem) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CatalogItem
		err := tx.Select("is_favorite").First(&existing, "id = ?", item.ID).Error
		switch {
		case err == nil:
			item.IsFavorite = existing.IsFavorite
		case errors.Is(err, gorm.ErrRecordNotFound):
			item.IsFavorite = false
		default:
			return err
		}
		return tx.Save(&item).Error
	})
	if err != nil {
		return classifyWrite(fmt.Errorf("failed to upsert item %s: %w", item.ID, err))
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *CatalogStore) ToggleFavorite(id string) (bool, error) {
	var favorite bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var item models.CatalogItem
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		favorite = !item.IsFavorite
		return tx.Model(&item).Update("is_favorite", favorite).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite for %s: %w", id, err)
	}
	return favorite, nil
}

// Reset wipes the catalog. Used only by the explicit clear-and-resync
// recovery path.
func (s *CatalogStore) Reset() error {
	if err := s.db.Where("1 = 1").Delete(&models.CatalogItem{}).Error; err != nil {
		return fmt.Errorf("failed to reset catalog: %w", err)
	}
	return nil
}

// classifyWrite maps sqlite capacity failures onto ErrStorageExhausted
// so callers can offer the clear-and-resync recovery path.
func classifyWrite(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "disk i/o error") {
		return fmt.Errorf("%w: %v", models.ErrStorageExhausted, err)
	}
	return err
}
