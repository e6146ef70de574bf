package services

import (
	"context"
	"fmt"
	"log"

	"github.com/codyseavey/market-history/backend/internal/models"
)

// maxPurchasePages bounds the cursor chase against a server that never
// stops returning cursors.
const maxPurchasePages = 1000

// PurchaseLoop harvests the wallet purchase history by chasing the
// endpoint's opaque cursor until none is returned. Purchase pagination is
// monotonic and non-racy from the collector's point of view, so there is
// no index arithmetic and no drift compensation here.
type PurchaseLoop struct {
	fetcher PageFetcher
	store   TransactionStore
	manager *ListingManager
}

// NewPurchaseLoop wires the loop to the listing manager, whose locked
// locale and wallet currency govern how wallet rows are parsed. The
// locale only exists after the manager's Setup has run, so it is read
// lazily on each Run.
func NewPurchaseLoop(fetcher PageFetcher, store TransactionStore, manager *ListingManager) *PurchaseLoop {
	return &PurchaseLoop{fetcher: fetcher, store: store, manager: manager}
}

// Run harvests the full purchase history and replaces the stored ledger
// with it, returning the number of transactions collected.
func (p *PurchaseLoop) Run(ctx context.Context) (int, error) {
	loc := p.manager.Locale()
	if loc == nil {
		return 0, ErrLanguageNotConfigured
	}
	spec := p.manager.CurrencySpec()

	var all []models.AccountTransaction
	var cursor *PurchaseCursor

	for page := 0; ; page++ {
		if page >= maxPurchasePages {
			return 0, fmt.Errorf("purchase history cursor did not terminate after %d pages", maxPurchasePages)
		}

		resp, err := p.fetcher.FetchPurchaseHistory(ctx, cursor)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch purchase history page %d: %w", page, err)
		}

		transactions, err := ParseTransactionsPage(resp.HTML, spec, loc)
		if err != nil {
			return 0, fmt.Errorf("failed to parse purchase history page %d: %w", page, err)
		}
		all = append(all, transactions...)

		if resp.Cursor == nil {
			break
		}
		cursor = resp.Cursor
	}

	if err := p.store.ReplaceTransactions(all); err != nil {
		return 0, fmt.Errorf("failed to store purchase history: %w", err)
	}

	log.Printf("Purchase loop: harvested %d wallet transactions", len(all))
	return len(all), nil
}
