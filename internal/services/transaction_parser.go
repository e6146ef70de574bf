package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/codyseavey/market-history/backend/internal/currency"
	"github.com/codyseavey/market-history/backend/internal/locale"
	"github.com/codyseavey/market-history/backend/internal/models"
)

var countPrefixRe = regexp.MustCompile(`^(\d+)\s+(.+)$`)

// ParseTransactionsPage converts one purchase-history HTML fragment into
// wallet ledger entries. Partial ledger data is worse than none: any row
// with a structurally missing piece aborts the whole batch.
func ParseTransactionsPage(html string, spec currency.Spec, loc *locale.Locale) ([]models.AccountTransaction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fatalf("purchase history html is not parseable: %v", err)
	}

	var transactions []models.AccountTransaction
	var rowErr error

	doc.Find(".wallet_table_row").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		tx, err := parseTransactionRow(sel, spec, loc)
		if err != nil {
			rowErr = err
			return false
		}
		transactions = append(transactions, *tx)
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return transactions, nil
}

func parseTransactionRow(sel *goquery.Selection, spec currency.Spec, loc *locale.Locale) (*models.AccountTransaction, error) {
	dateRaw := strings.TrimSpace(sel.Find(".wht_date").Text())
	if dateRaw == "" {
		return nil, fatalf("wallet row %s is missing its date cell", rowLabel(sel))
	}
	date, err := loc.ParseFullDate(dateRaw)
	if err != nil {
		return nil, &ParseError{Fatal: true, Message: "wallet row date unparseable", Err: err}
	}

	typeCell := sel.Find(".wht_type")
	if typeCell.Length() == 0 {
		return nil, fatalf("wallet row %s is missing its type cell", rowLabel(sel))
	}
	label := strings.TrimSpace(typeCell.Children().First().Text())
	if label == "" {
		label = strings.TrimSpace(typeCell.Text())
	}
	count, txType, err := resolveTypeLabel(label, loc)
	if err != nil {
		return nil, err
	}

	priceRaw := strings.TrimSpace(sel.Find(".wht_total").Text())
	if priceRaw == "" {
		return nil, fatalf("wallet row %s is missing its total cell", rowLabel(sel))
	}
	price, err := currency.ParseMoney(priceRaw, spec)
	if err != nil {
		return nil, fatalf("wallet row total %q unparseable: %v", priceRaw, err)
	}

	// Money received shows a payment sub-element; refunds are credits by
	// definition.
	isCredit := sel.Find(".wth_payment").Length() > 0 || txType == models.TransactionTypeRefund

	tx := &models.AccountTransaction{
		TransactionID: strings.TrimSpace(sel.AttrOr("data-txid", "")),
		Type:          txType,
		Date:          date,
		Count:         count,
		Price:         price,
		PriceRaw:      priceRaw,
		IsCredit:      isCredit,
		Items:         parseGameItems(sel.Find(".wht_items")),
	}
	return tx, nil
}

// resolveTypeLabel splits "3 Market Transactions" into its count and the
// localized label, then resolves the label against the locale table. A
// label without a leading count is a single transaction.
func resolveTypeLabel(label string, loc *locale.Locale) (int, models.TransactionType, error) {
	count := 1
	text := label
	if m := countPrefixRe.FindStringSubmatch(label); m != nil {
		count, _ = strconv.Atoi(m[1])
		text = m[2]
	}
	txType, ok := loc.TransactionLabelType(text)
	if !ok {
		return 0, "", fatalf("unknown wallet transaction label %q", label)
	}
	return count, txType, nil
}

// parseGameItems extracts the line items of a wallet row. The cell's first
// child names the app; each following line is "<N> <name>" with the count
// defaulting to 1.
func parseGameItems(cell *goquery.Selection) []models.GameItem {
	if cell.Length() == 0 {
		return nil
	}

	app := strings.TrimSpace(cell.Children().First().Text())

	var items []models.GameItem
	cell.Children().Each(func(i int, child *goquery.Selection) {
		if i == 0 {
			return
		}
		text := strings.TrimSpace(child.Text())
		if text == "" {
			return
		}
		count := 1
		name := text
		if m := countPrefixRe.FindStringSubmatch(text); m != nil {
			count, _ = strconv.Atoi(m[1])
			name = m[2]
		}
		items = append(items, models.GameItem{
			App:   app,
			Count: count,
			Name:  name,
		})
	})
	return items
}

func rowLabel(sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return id
	}
	return "(unnamed)"
}
