package models

import "time"

// CatalogItem represents one tradable skin variant mirrored from the
// remote catalog. IsFavorite is user-owned state and must survive any
// full catalog re-fetch.
type CatalogItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Name        string    `json:"name" gorm:"not null;index"`
	Weapon      string    `json:"weapon" gorm:"index"`
	Category    string    `json:"category" gorm:"index"`
	Rarity      string    `json:"rarity"`
	RarityColor string    `json:"rarity_color"`
	Wear        string    `json:"wear"`
	MinFloat    float64   `json:"min_float"`
	MaxFloat    float64   `json:"max_float"`
	StatTrak    bool      `json:"stattrak"`
	Souvenir    bool      `json:"souvenir"`
	ImageURL    string    `json:"image_url"`
	IsFavorite  bool      `json:"is_favorite" gorm:"default:false;index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CatalogItem) TableName() string {
	return "items"
}

// PriceSnapshot stores the latest known market stats for a market key.
// At most one row per key; replaced on every successful poll cycle.
type PriceSnapshot struct {
	MarketKey string    `json:"market_key" gorm:"primaryKey;size:255"`
	Price     float64   `json:"price"`
	MinPrice  float64   `json:"min_price"`
	AvgPrice  float64   `json:"avg_price"`
	MaxPrice  float64   `json:"max_price"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PriceSnapshot) TableName() string {
	return "price_cache"
}

// PriceHistoryPoint is one appended sample of the rolling price series.
// Rows with a non-positive price are never written.
type PriceHistoryPoint struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MarketKey string    `json:"market_key" gorm:"size:255;index:idx_history_key_ts,priority:1;not null"`
	Price     float64   `json:"price" gorm:"not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_history_key_ts,priority:2;not null"`
}

func (PriceHistoryPoint) TableName() string {
	return "price_history"
}

// SyncMeta stores sync bookkeeping as key-value pairs.
type SyncMeta struct {
	Key       string    `json:"key" gorm:"primaryKey;size:100"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (SyncMeta) TableName() string {
	return "sync_meta"
}

// Sync meta keys.
const (
	MetaLastCatalogSync = "lastCatalogSync"
	MetaLastPriceUpdate = "lastPriceUpdate"
	MetaDeviceID        = "deviceId"
)
