package services

import (
	"testing"
	"time"

	"github.com/codyseavey/market-history/backend/internal/locale"
	"github.com/codyseavey/market-history/backend/internal/models"
)

const walletPage = `
<div class="wallet_table_row" data-txid="tx-100">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_items">
    <div>Counter-Strike 2</div>
    <div>AK-47 | Redline</div>
    <div>3 Sticker Capsule</div>
  </div>
  <div class="wht_type">
    <div>4 Market Transactions</div>
  </div>
  <div class="wht_total">$3.45</div>
</div>
<div class="wallet_table_row">
  <div class="wht_date">Apr 2, 2019</div>
  <div class="wht_items">
    <div>Team Fortress 2</div>
  </div>
  <div class="wht_type">
    <div>Purchase</div>
  </div>
  <div class="wht_total">$9.99</div>
</div>
<div class="wallet_table_row">
  <div class="wht_date">Apr 5, 2019</div>
  <div class="wht_items">
    <div>Counter-Strike 2</div>
  </div>
  <div class="wht_type">
    <div>Market Transaction</div>
    <div class="wth_payment">Wallet credit</div>
  </div>
  <div class="wht_total">$0.15</div>
</div>
<div class="wallet_table_row">
  <div class="wht_date">Apr 9, 2019</div>
  <div class="wht_items">
    <div>Dota 2</div>
  </div>
  <div class="wht_type">
    <div>Refund</div>
  </div>
  <div class="wht_total">$4.99</div>
</div>`

func TestParseTransactionsPage(t *testing.T) {
	transactions, err := ParseTransactionsPage(walletPage, mustSpec(t, "USD"), mustLocale(t, "english"))
	if err != nil {
		t.Fatalf("ParseTransactionsPage error: %v", err)
	}
	if len(transactions) != 4 {
		t.Fatalf("len(transactions) = %d, want 4", len(transactions))
	}

	market := transactions[0]
	if market.TransactionID != "tx-100" {
		t.Errorf("TransactionID = %q, want tx-100", market.TransactionID)
	}
	if market.Type != models.TransactionTypeMarket {
		t.Errorf("Type = %q, want %q", market.Type, models.TransactionTypeMarket)
	}
	if market.Count != 4 {
		t.Errorf("Count = %d, want 4", market.Count)
	}
	if market.Price != 345 {
		t.Errorf("Price = %d, want 345", market.Price)
	}
	if market.IsCredit {
		t.Error("IsCredit = true, want false for a purchase-side batch")
	}
	if want := locale.MiddayUTC(2019, time.March, 30); !market.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", market.Date, want)
	}
	if len(market.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(market.Items))
	}
	if market.Items[0].App != "Counter-Strike 2" || market.Items[0].Name != "AK-47 | Redline" || market.Items[0].Count != 1 {
		t.Errorf("Items[0] = %+v", market.Items[0])
	}
	if market.Items[1].Name != "Sticker Capsule" || market.Items[1].Count != 3 {
		t.Errorf("Items[1] = %+v", market.Items[1])
	}

	purchase := transactions[1]
	if purchase.Type != models.TransactionTypePurchase || purchase.Count != 1 {
		t.Errorf("purchase = type %q count %d, want %q count 1", purchase.Type, purchase.Count, models.TransactionTypePurchase)
	}
	if purchase.TransactionID != "" {
		t.Errorf("TransactionID = %q, want empty without data-txid", purchase.TransactionID)
	}

	credit := transactions[2]
	if !credit.IsCredit {
		t.Error("payment-marked row should be a credit")
	}

	refund := transactions[3]
	if refund.Type != models.TransactionTypeRefund {
		t.Errorf("Type = %q, want %q", refund.Type, models.TransactionTypeRefund)
	}
	if !refund.IsCredit {
		t.Error("refunds are credits even without a payment marker")
	}
}

func TestParseTransactionsPageEmpty(t *testing.T) {
	transactions, err := ParseTransactionsPage("<div></div>", mustSpec(t, "USD"), mustLocale(t, "english"))
	if err != nil {
		t.Fatalf("ParseTransactionsPage error: %v", err)
	}
	if len(transactions) != 0 {
		t.Errorf("len(transactions) = %d, want 0", len(transactions))
	}
}

func TestParseTransactionsPageRejectsBatch(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "missing date",
			html: `<div class="wallet_table_row" id="r1">
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$9.99</div>
</div>`,
		},
		{
			name: "unparseable date",
			html: `<div class="wallet_table_row">
  <div class="wht_date">sometime</div>
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$9.99</div>
</div>`,
		},
		{
			name: "unknown label",
			html: `<div class="wallet_table_row">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_type"><div>Mystery Charge</div></div>
  <div class="wht_total">$9.99</div>
</div>`,
		},
		{
			name: "missing total",
			html: `<div class="wallet_table_row">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_type"><div>Purchase</div></div>
</div>`,
		},
		{
			name: "one bad row poisons the batch",
			html: `<div class="wallet_table_row">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$9.99</div>
</div>
<div class="wallet_table_row">
  <div class="wht_date">bogus</div>
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$1.00</div>
</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transactions, err := ParseTransactionsPage(tt.html, mustSpec(t, "USD"), mustLocale(t, "english"))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if transactions != nil {
				t.Errorf("transactions = %+v, want nil on a rejected batch", transactions)
			}
		})
	}
}

func TestResolveTypeLabel(t *testing.T) {
	loc := mustLocale(t, "english")

	tests := []struct {
		label     string
		wantCount int
		wantType  models.TransactionType
	}{
		{label: "Purchase", wantCount: 1, wantType: models.TransactionTypePurchase},
		{label: "12 Market Transactions", wantCount: 12, wantType: models.TransactionTypeMarket},
		{label: "1 In-Game Purchase", wantCount: 1, wantType: models.TransactionTypeInGamePurchase},
		{label: "Gift Purchase", wantCount: 1, wantType: models.TransactionTypeGiftPurchase},
	}

	for _, tt := range tests {
		count, txType, err := resolveTypeLabel(tt.label, loc)
		if err != nil {
			t.Errorf("resolveTypeLabel(%q) error: %v", tt.label, err)
			continue
		}
		if count != tt.wantCount || txType != tt.wantType {
			t.Errorf("resolveTypeLabel(%q) = %d, %q, want %d, %q", tt.label, count, txType, tt.wantCount, tt.wantType)
		}
	}

	if _, _, err := resolveTypeLabel("Unknown Thing", loc); err == nil {
		t.Error("resolveTypeLabel(Unknown Thing) expected error, got nil")
	}
}
