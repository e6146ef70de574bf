package services

import (
	"github.com/codyseavey/market-history/backend/internal/models"
)

// ListingStore is the persistent record store consumed by the collector.
// Implementations must treat duplicate-key conflicts on insert as no-ops:
// duplicates are expected at pass boundaries, not an error condition.
type ListingStore interface {
	// BulkInsert persists records, silently skipping transaction ids that
	// already exist, and returns the number actually inserted.
	BulkInsert(listings []models.Listing) (int64, error)

	// FirstByIndex returns the stored listing with the smallest index
	// (the oldest), or nil when the store is empty.
	FirstByIndex() (*models.Listing, error)

	// LastByIndex returns the stored listing with the largest index (the
	// newest), or nil when the store is empty.
	LastByIndex() (*models.Listing, error)

	// GetByIndex returns the listing at an exact index, or nil.
	GetByIndex(index int64) (*models.Listing, error)

	CountListings() (int64, error)
}

// SettingsStore persists collection progress per account.
type SettingsStore interface {
	// GetSettings returns the stored settings for an account, or nil when
	// none exist yet.
	GetSettings(steamID string) (*models.ProgressSettings, error)

	PutSettings(settings *models.ProgressSettings) error

	DeleteSettings(steamID string) error
}

// TransactionStore persists wallet ledger entries.
type TransactionStore interface {
	// ReplaceTransactions swaps the stored ledger for a freshly harvested
	// one. Purchase history has no stable row identity, so each run
	// replaces the whole set atomically.
	ReplaceTransactions(transactions []models.AccountTransaction) error

	CountTransactions() (int64, error)
}
