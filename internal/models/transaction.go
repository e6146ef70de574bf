package models

import (
	"time"
)

// TransactionType classifies a wallet ledger entry.
type TransactionType string

const (
	TransactionTypeMarket         TransactionType = "market"
	TransactionTypeInGamePurchase TransactionType = "ingame_purchase"
	TransactionTypePurchase       TransactionType = "purchase"
	TransactionTypeGiftPurchase   TransactionType = "gift_purchase"
	TransactionTypeRefund         TransactionType = "refund"
)

// AccountTransaction is one wallet ledger entry, possibly bundling several
// game items under a single charge.
type AccountTransaction struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// TransactionID is Steam's own id when the row carries one; market
	// transaction rows usually do not.
	TransactionID string `json:"transaction_id,omitempty" gorm:"index"`

	Type     TransactionType `json:"transaction_type" gorm:"not null;index"`
	Date     time.Time       `json:"date" gorm:"not null;index"`
	Count    int             `json:"count" gorm:"not null"`
	Price    int64           `json:"price" gorm:"not null"`
	PriceRaw string          `json:"price_raw"`
	IsCredit bool            `json:"is_credit" gorm:"not null"`

	Items []GameItem `json:"items,omitempty" gorm:"foreignKey:TransactionRef"`

	CreatedAt time.Time `json:"created_at"`
}

// GameItem is a line item inside an AccountTransaction.
type GameItem struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	TransactionRef uint   `json:"-" gorm:"index"`
	App            string `json:"app"`
	Count          int    `json:"count" gorm:"not null;default:1"`
	Name           string `json:"name" gorm:"not null"`
	Price          int64  `json:"price"`
}
