package domain

import (
	"time"
)

// IconInfo records a cached logo for a symbol.
// Only logo cache metadata is stored; market data is never persisted.
type IconInfo struct {
	Symbol       string    `gorm:"primaryKey" json:"symbol"`
	SourceURL    string    `json:"source_url"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
