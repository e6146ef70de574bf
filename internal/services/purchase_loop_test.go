package services

import (
	"context"
	"testing"

	"github.com/codyseavey/market-history/backend/internal/models"
)

func setupPurchaseManager(t *testing.T, fetcher PageFetcher, store *memStore) *ListingManager {
	t.Helper()
	manager := newTestManager(t, fetcher, store, 100)
	if err := manager.Setup(context.Background()); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	return manager
}

func TestPurchaseLoopChasesCursor(t *testing.T) {
	page1 := `<div class="wallet_table_row">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_items"><div>Counter-Strike 2</div></div>
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$9.99</div>
</div>`
	page2 := `<div class="wallet_table_row">
  <div class="wht_date">Feb 12, 2019</div>
  <div class="wht_items"><div>Dota 2</div></div>
  <div class="wht_type"><div>2 Market Transactions</div></div>
  <div class="wht_total">$0.40</div>
</div>`

	fetcher := &fakeFetcher{purchases: []*PurchasePage{
		{HTML: page1, Cursor: &PurchaseCursor{WalletTxnID: "t2", TimestampNewest: 100}},
		{HTML: page2},
	}}
	store := newMemStore()
	manager := setupPurchaseManager(t, fetcher, store)

	loop := NewPurchaseLoop(fetcher, store, manager)
	count, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if got, _ := store.CountTransactions(); got != 2 {
		t.Errorf("stored transactions = %d, want 2", got)
	}
	if store.transactions[1].Count != 2 {
		t.Errorf("transactions[1].Count = %d, want 2", store.transactions[1].Count)
	}
}

func TestPurchaseLoopReplacesLedger(t *testing.T) {
	fetcher := &fakeFetcher{purchases: []*PurchasePage{
		{HTML: `<div class="wallet_table_row">
  <div class="wht_date">Mar 30, 2019</div>
  <div class="wht_items"><div>Counter-Strike 2</div></div>
  <div class="wht_type"><div>Purchase</div></div>
  <div class="wht_total">$9.99</div>
</div>`},
	}}
	store := newMemStore()
	store.transactions = []models.AccountTransaction{
		{Type: models.TransactionTypePurchase, Count: 1},
		{Type: models.TransactionTypeMarket, Count: 3},
	}
	manager := setupPurchaseManager(t, fetcher, store)

	loop := NewPurchaseLoop(fetcher, store, manager)
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got, _ := store.CountTransactions(); got != 1 {
		t.Errorf("stored transactions = %d, want 1", got)
	}
}

func TestPurchaseLoopRequiresSetup(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newMemStore()
	manager := newTestManager(t, fetcher, store, 100)

	loop := NewPurchaseLoop(fetcher, store, manager)
	if _, err := loop.Run(context.Background()); err == nil {
		t.Error("Run before manager setup expected error, got nil")
	}
}
