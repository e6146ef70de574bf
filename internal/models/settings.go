package models

import (
	"time"
)

// ProgressSettings is the persisted collection progress for one account.
// Created on first setup, mutated after every successful page fetch, and
// reset (not deleted) when a pass completes or loops.
type ProgressSettings struct {
	// SteamID identifies the account the collection belongs to.
	SteamID string `json:"steamid" gorm:"primaryKey"`

	// CurrentIndex is the next fetch offset (counted from the newest row).
	CurrentIndex int64 `json:"current_index"`

	// TotalCount is the last server-reported total result count.
	TotalCount int64 `json:"total_count"`

	// LastIndex marks where the previous completed pass started. Reaching
	// it again means the collection has looped back onto known data.
	LastIndex int64 `json:"last_index"`

	// LastFetchedIndex is the resume point: the index of the last listing
	// obtained in the current pass. Zero when no pass is in progress.
	LastFetchedIndex int64 `json:"last_fetched_index"`

	// RecordedCount counts rows actually persisted. It may lag TotalCount
	// because not every history event is a completed transaction.
	RecordedCount int64 `json:"recorded_count"`

	// Session is a random token identifying the current loader. A loader
	// whose token no longer matches the stored one has been superseded.
	Session string `json:"session"`

	// Language is locked at first successful setup and never changes,
	// since the date-string grammar depends on it.
	Language string `json:"language"`

	IsLoading bool      `json:"is_loading"`
	Date      time.Time `json:"date"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ResetPass clears per-pass progress while keeping the locked language and
// the account identity.
func (s *ProgressSettings) ResetPass() {
	s.CurrentIndex = 0
	s.LastFetchedIndex = 0
	s.IsLoading = false
}
