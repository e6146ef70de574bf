package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/market-history/backend/internal/models"
)

// Stores implements the collector's storage contracts on gorm/SQLite.
type Stores struct {
	db *gorm.DB
}

func NewStores(db *gorm.DB) *Stores {
	return &Stores{db: db}
}

// BulkInsert persists listings, ignoring transaction ids that already
// exist. Duplicates are expected at pass boundaries and after crash
// recovery; they are not an error.
func (s *Stores) BulkInsert(listings []models.Listing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&listings)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Stores) FirstByIndex() (*models.Listing, error) {
	return s.oneListing(s.db.Order("idx ASC"))
}

func (s *Stores) LastByIndex() (*models.Listing, error) {
	return s.oneListing(s.db.Order("idx DESC"))
}

func (s *Stores) GetByIndex(index int64) (*models.Listing, error) {
	return s.oneListing(s.db.Where("idx = ?", index))
}

func (s *Stores) oneListing(query *gorm.DB) (*models.Listing, error) {
	var listing models.Listing
	err := query.First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *Stores) CountListings() (int64, error) {
	var count int64
	err := s.db.Model(&models.Listing{}).Count(&count).Error
	return count, err
}

func (s *Stores) GetSettings(steamID string) (*models.ProgressSettings, error) {
	var settings models.ProgressSettings
	err := s.db.First(&settings, "steam_id = ?", steamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Stores) PutSettings(settings *models.ProgressSettings) error {
	return s.db.Save(settings).Error
}

func (s *Stores) DeleteSettings(steamID string) error {
	return s.db.Delete(&models.ProgressSettings{}, "steam_id = ?", steamID).Error
}

// ReplaceTransactions swaps the stored wallet ledger for the freshly
// harvested one in a single transaction. Purchase-history rows have no
// stable identity to dedupe on, so replacement is the safe idempotent
// operation.
func (s *Stores) ReplaceTransactions(transactions []models.AccountTransaction) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.GameItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.AccountTransaction{}).Error; err != nil {
			return err
		}
		if len(transactions) == 0 {
			return nil
		}
		return tx.Create(&transactions).Error
	})
}

func (s *Stores) CountTransactions() (int64, error) {
	var count int64
	err := s.db.Model(&models.AccountTransaction{}).Count(&count).Error
	return count, err
}
