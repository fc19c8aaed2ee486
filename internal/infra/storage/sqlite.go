package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crypto_search/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IconCatalog records which logos are cached on disk.
// It holds logo cache metadata only; market data is never persisted.
type IconCatalog struct {
	db *gorm.DB
}

// NewIconCatalog opens (or creates) the SQLite catalog at dbPath.
func NewIconCatalog(dbPath string) (*IconCatalog, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.IconInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &IconCatalog{db: db}, nil
}

// UpsertIcon creates or updates an icon entry
func (c *IconCatalog) UpsertIcon(icon *domain.IconInfo) error {
	return c.db.Save(icon).Error
}

// GetIcon retrieves an icon entry by symbol
func (c *IconCatalog) GetIcon(symbol string) (*domain.IconInfo, error) {
	var icon domain.IconInfo
	err := c.db.First(&icon, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &icon, nil
}

// ListIcons returns every cached icon ordered by symbol.
func (c *IconCatalog) ListIcons() ([]domain.IconInfo, error) {
	var icons []domain.IconInfo
	err := c.db.Order("symbol").Find(&icons).Error
	return icons, err
}

// Close releases the underlying connection.
func (c *IconCatalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
