package models

import (
	"time"
)

// Listing is one completed market transaction (sale or purchase) for a
// specific item instance. Rows are append-only: the parser creates them,
// they are bulk-inserted once and never mutated.
type Listing struct {
	// TransactionID is the composite "<id1>-<id2>" key from the history row.
	TransactionID string `json:"transaction_id" gorm:"primaryKey"`

	// Index is the dense reverse-chronological position of the listing:
	// the oldest listing has the smallest index, and a completed pass
	// leaves no gaps.
	Index int64 `json:"index" gorm:"column:idx;uniqueIndex;not null"`

	// IsCredit is true when money was received (sale), false when spent.
	IsCredit bool `json:"is_credit" gorm:"not null;index"`

	AppID      string `json:"appid" gorm:"column:appid;not null;index"`
	ContextID  string `json:"contextid" gorm:"column:contextid;not null"`
	ClassID    string `json:"classid" gorm:"column:classid;not null"`
	InstanceID string `json:"instanceid" gorm:"column:instanceid;not null"`
	AssetID    string `json:"assetid" gorm:"column:assetid;not null"`

	Amount int64 `json:"amount" gorm:"not null;default:1"`

	Name            string `json:"name" gorm:"not null"`
	MarketName      string `json:"market_name"`
	MarketHashName  string `json:"market_hash_name" gorm:"not null;index"`
	NameColor       string `json:"name_color"`       // 6 hex digits, upper-cased
	BackgroundColor string `json:"background_color"` // 6 hex digits, upper-cased
	IconURL         string `json:"icon_url"`

	// DateActed/DateListed are normalized to midday UTC so local-timezone
	// date boundaries cannot shift the calendar day.
	DateActed     time.Time `json:"date_acted" gorm:"not null;index"`
	DateListed    time.Time `json:"date_listed" gorm:"not null"`
	DateActedRaw  string    `json:"date_acted_raw"`
	DateListedRaw string    `json:"date_listed_raw"`

	// Price is in integer minor currency units (cents for USD).
	Price    int64  `json:"price" gorm:"not null"`
	PriceRaw string `json:"price_raw"`

	CreatedAt time.Time `json:"created_at"`
}

// IsComplete reports whether every field the collector requires was
// resolved during parsing. Pages with incomplete rows are rejected whole
// rather than partially persisted.
func (l *Listing) IsComplete() bool {
	return l.TransactionID != "" &&
		l.AppID != "" &&
		l.ContextID != "" &&
		l.InstanceID != "" &&
		l.MarketHashName != "" &&
		l.Index != 0 &&
		!l.DateActed.IsZero() &&
		!l.DateListed.IsZero()
}

type ListingSearchResult struct {
	Listings   []Listing `json:"listings"`
	TotalCount int64     `json:"total_count"`
	HasMore    bool      `json:"has_more"`
}

type ListingStats struct {
	Count       int64 `json:"count"`
	CreditCount int64 `json:"credit_count"`
	DebitCount  int64 `json:"debit_count"`
	CreditTotal int64 `json:"credit_total"`
	DebitTotal  int64 `json:"debit_total"`
}
