package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/codyseavey/market-history/backend/internal/currency"
	"github.com/codyseavey/market-history/backend/internal/locale"
	"github.com/codyseavey/market-history/backend/internal/models"
)

// DateCursor is the rolling date used to disambiguate year-less history
// dates. Collection walks backward through time, so dates parsed against
// the cursor only ever move backward or stay level; crossing a January 1st
// boundary decrements the year.
type DateCursor struct {
	Year  int
	Month time.Month
	Day   int
}

// CursorFromTime builds a cursor at the given wall-clock moment.
func CursorFromTime(t time.Time) DateCursor {
	return DateCursor{Year: t.UTC().Year(), Month: t.UTC().Month(), Day: t.UTC().Day()}
}

func (c DateCursor) time() time.Time {
	return locale.MiddayUTC(c.Year, c.Month, c.Day)
}

// ListingParseState is the running collection state the parser needs to
// detect boundaries against previously collected data.
type ListingParseState struct {
	// Last is the newest listing currently stored (largest index).
	Last *models.Listing

	// LastFetched is the listing at the persisted resume point.
	LastFetched *models.Listing

	// LastIndexed is the listing where the previous completed pass
	// started; reaching it means the current pass has wrapped around.
	LastIndexed *models.Listing

	// Cursor disambiguates year-less dates; threaded forward by the
	// caller between pages.
	Cursor DateCursor

	// KnownTotal is the last total_count the caller saw, used to detect
	// drift from concurrent market activity. Zero means unknown.
	KnownTotal int64

	// PageSize bounds the drift tolerated before re-synchronizing.
	PageSize int64
}

// ListingsParseResult is the outcome of parsing one page.
type ListingsParseResult struct {
	// Records are the completed transactions accepted from the page, in
	// page order (newest first).
	Records []models.Listing

	// Cursor is the advanced date cursor to thread into the next page.
	Cursor DateCursor

	// TotalCount echoes the server-side total for this response.
	TotalCount int64

	// Stopped means the previous pass's first listing was found in this
	// page: the pass has wrapped around and collection is complete.
	Stopped bool

	// Shifted means total_count jumped by more than a page since the last
	// fetch; the page was not parsed and the caller should re-fetch at
	// NextStart to re-synchronize.
	Shifted   bool
	NextStart int64
}

var (
	hoverRe    = regexp.MustCompile(`history_row_(\d+)_(\d+)_name',\s*(\d+),\s*'(\d+)',\s*'(\d+)'`)
	rowIDRe    = regexp.MustCompile(`^history_row_(\d+)_(\d+)$`)
	hexColorRe = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)
)

type assetRef struct {
	appID     string
	contextID string
	assetID   string
}

// parseHovers maps each row's transaction id to its asset triple.
func parseHovers(hovers string) map[string]assetRef {
	refs := make(map[string]assetRef)
	for _, m := range hoverRe.FindAllStringSubmatch(hovers, -1) {
		txid := m[1] + "-" + m[2]
		refs[txid] = assetRef{appID: m[3], contextID: m[4], assetID: m[5]}
	}
	return refs
}

// scannedRow is a history row that passed filtering, before asset and date
// resolution.
type scannedRow struct {
	transactionID string
	index         int64
	isCredit      bool
	priceRaw      string
	actedRaw      string
	listedRaw     string
}

// ParseListingsPage extracts completed transactions from one fetched page.
// Errors are *ParseError values whose Fatal flag tells the caller whether
// to abort the pass or retry the same offset.
func ParseListingsPage(page *ListingsPage, state ListingParseState, spec currency.Spec, loc *locale.Locale) (*ListingsParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.ResultsHTML))
	if err != nil {
		return nil, fatalf("results_html is not parseable: %v", err)
	}

	// Steam renders its own banner into the results when something is
	// wrong. A banner with a link (or a zeroed total) is a hard condition;
	// a bare banner is transient.
	if err := validatePage(page, doc); err != nil {
		return nil, err
	}
	totalCount := *page.TotalCount

	// Concurrent market activity can grow the total faster than we reach
	// the offset, shifting rows across page boundaries underneath us.
	// When the jump exceeds a page, re-synchronize by shifting the offset
	// rather than risking duplicated or missed rows. Page 0 is exempt:
	// the newest page is always authoritative.
	if state.KnownTotal > 0 && page.Start != 0 && totalCount-state.KnownTotal > state.PageSize {
		return &ListingsParseResult{
			Cursor:     state.Cursor,
			TotalCount: totalCount,
			Shifted:    true,
			NextStart:  page.Start + (totalCount - state.KnownTotal),
		}, nil
	}

	rows, stopped, err := scanRows(doc, page.Start, totalCount, state)
	if err != nil {
		return nil, err
	}

	refs := parseHovers(page.Hovers)

	records, cursor, err := resolveRows(rows, refs, page, state.Cursor, spec, loc)
	if err != nil {
		return nil, err
	}

	return &ListingsParseResult{
		Records:    records,
		Cursor:     cursor,
		TotalCount: totalCount,
		Stopped:    stopped,
	}, nil
}

func validatePage(page *ListingsPage, doc *goquery.Document) error {
	if page.TotalCount == nil || *page.TotalCount == 0 {
		return fatalf("response reported no results")
	}

	message := doc.Find(".market_listing_table_message")
	if message.Length() > 0 {
		text := strings.TrimSpace(message.Text())
		if message.Find("a").Length() > 0 {
			return fatalf("market returned an error banner: %s", text)
		}
		return retryablef("market returned a transient banner: %s", text)
	}

	for _, contexts := range page.Assets {
		for _, assets := range contexts {
			for _, asset := range assets {
				if asset == nil || asset.MarketHashName == "" {
					return fatalf("asset descriptor missing market_hash_name")
				}
			}
		}
	}
	return nil
}

// scanRows walks the page's rows in DOM order (newest first), filtering
// out pending and refunded rows and applying boundary detection against
// previously collected data.
func scanRows(doc *goquery.Document, start, totalCount int64, state ListingParseState) ([]scannedRow, bool, error) {
	var rows []scannedRow
	var stopped bool
	var scanErr error

	doc.Find(".market_listing_row").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		m := rowIDRe.FindStringSubmatch(id)
		if m == nil {
			scanErr = fatalf("history row %d has no recognizable id (%q)", i, id)
			return false
		}
		txid := m[1] + "-" + m[2]

		// Only completed transactions carry a gain/loss marker; a
		// struck-through price marks a refunded row.
		gainOrLoss := strings.TrimSpace(sel.Find(".market_listing_gainorloss").Text())
		if gainOrLoss == "" {
			return true
		}
		if sel.Find(".market_listing_price strike").Length() > 0 {
			return true
		}

		// Wrap-around point: the very first listing of the previous
		// completed pass. Nothing past it is new.
		if state.LastIndexed != nil && txid == state.LastIndexed.TransactionID {
			stopped = true
			return false
		}

		// Re-reached data collected earlier: new transactions pushed
		// already-seen rows forward into this page. Everything gathered
		// so far in the page is stale; drop it and keep scanning.
		if (state.Last != nil && txid == state.Last.TransactionID) ||
			(state.LastFetched != nil && txid == state.LastFetched.TransactionID) {
			rows = rows[:0]
			return true
		}

		dates := sel.Find(".market_listing_listed_date")
		if dates.Length() < 2 {
			scanErr = fatalf("history row %s is missing its date cells", txid)
			return false
		}

		rows = append(rows, scannedRow{
			transactionID: txid,
			index:         totalCount - (start + int64(i)),
			isCredit:      gainOrLoss == "-",
			priceRaw:      strings.TrimSpace(sel.Find(".market_listing_price").First().Text()),
			actedRaw:      strings.TrimSpace(dates.Eq(0).Text()),
			listedRaw:     strings.TrimSpace(dates.Eq(1).Text()),
		})
		return true
	})

	if scanErr != nil {
		return nil, false, scanErr
	}
	return rows, stopped, nil
}

// resolveRows turns scanned rows into complete listings: asset lookup,
// price parsing and date reconstruction. The page is all-or-nothing; any
// unresolvable row rejects the whole page.
func resolveRows(rows []scannedRow, refs map[string]assetRef, page *ListingsPage, cursor DateCursor, spec currency.Spec, loc *locale.Locale) ([]models.Listing, DateCursor, error) {
	records := make([]models.Listing, 0, len(rows))

	// Tolerate timezone skew between us and the upstream server: a date
	// up to one day in the future is still "today".
	tomorrow := CursorFromTime(time.Now().AddDate(0, 0, 1)).time()

	for _, row := range rows {
		ref, ok := refs[row.transactionID]
		if !ok {
			return nil, cursor, fatalf("no hover entry for row %s", row.transactionID)
		}
		asset := page.Asset(ref.appID, ref.contextID, ref.assetID)
		if asset == nil {
			return nil, cursor, &ParseError{
				Fatal:   true,
				Message: "asset lookup failed",
				Err:     &AssetMissingError{AppID: ref.appID, ContextID: ref.contextID, AssetID: ref.assetID},
			}
		}

		price, err := currency.ParseMoney(row.priceRaw, spec)
		if err != nil {
			return nil, cursor, fatalf("row %s has unparseable price %q: %v", row.transactionID, row.priceRaw, err)
		}

		acted, listed, next, err := reconstructDates(row.actedRaw, row.listedRaw, cursor, tomorrow, loc)
		if err != nil {
			return nil, cursor, &ParseError{Fatal: true, Message: "date reconstruction failed", Err: err}
		}
		cursor = next

		amount := int64(1)
		if asset.Amount != "" {
			if n, err := strconv.ParseInt(asset.Amount, 10, 64); err == nil && n >= 1 {
				amount = n
			}
		}

		listing := models.Listing{
			TransactionID:   row.transactionID,
			Index:           row.index,
			IsCredit:        row.isCredit,
			AppID:           ref.appID,
			ContextID:       ref.contextID,
			ClassID:         asset.ClassID,
			InstanceID:      asset.InstanceID,
			AssetID:         ref.assetID,
			Amount:          amount,
			Name:            asset.Name,
			MarketName:      asset.MarketName,
			MarketHashName:  asset.MarketHashName,
			NameColor:       normalizeColor(asset.NameColor),
			BackgroundColor: normalizeColor(asset.BackgroundColor),
			IconURL:         asset.IconURL,
			DateActed:       acted,
			DateListed:      listed,
			DateActedRaw:    row.actedRaw,
			DateListedRaw:   row.listedRaw,
			Price:           price,
			PriceRaw:        row.priceRaw,
		}

		if !listing.IsComplete() {
			return nil, cursor, fatalf("row %s parsed incomplete; refusing to store a partial page", row.transactionID)
		}
		records = append(records, listing)
	}

	return records, cursor, nil
}

// reconstructDates resolves the two year-less date strings of one row
// against the rolling cursor. Walking backward through history, a date
// that lands after the cursor (or after tomorrow) must belong to the
// previous year; likewise a listing cannot postdate the sale it produced.
func reconstructDates(actedRaw, listedRaw string, cursor DateCursor, tomorrow time.Time, loc *locale.Locale) (acted, listed time.Time, next DateCursor, err error) {
	pa, err := loc.ParseDateString(actedRaw)
	if err != nil {
		return time.Time{}, time.Time{}, cursor, err
	}

	if pa.Year != 0 {
		// Korean dates carry the year; adopt it.
		cursor.Year = pa.Year
		acted = locale.MiddayUTC(pa.Year, pa.Month, pa.Day)
	} else {
		acted = locale.MiddayUTC(cursor.Year, pa.Month, pa.Day)
		if acted.After(cursor.time()) || acted.After(tomorrow) {
			cursor.Year--
			acted = locale.MiddayUTC(cursor.Year, pa.Month, pa.Day)
		}
	}

	pl, err := loc.ParseDateString(listedRaw)
	if err != nil {
		return time.Time{}, time.Time{}, cursor, err
	}
	listedYear := cursor.Year
	if pl.Year != 0 {
		listedYear = pl.Year
	}
	listed = locale.MiddayUTC(listedYear, pl.Month, pl.Day)
	if listed.After(acted) {
		listed = locale.MiddayUTC(listedYear-1, pl.Month, pl.Day)
	}

	// Subsequent rows compare against the most recent known point. The
	// year only moves via the decrement rule above.
	cursor.Month = pa.Month
	cursor.Day = pa.Day
	return acted, listed, cursor, nil
}

func normalizeColor(c string) string {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	if !hexColorRe.MatchString(c) {
		return ""
	}
	return strings.ToUpper(c)
}

// listingPageTotal estimates the number of pages remaining in a pass for
// progress reporting.
func listingPageTotal(totalCount, lastIndex, pageSize int64) int64 {
	if pageSize <= 0 {
		return 1
	}
	distance := totalCount - lastIndex
	if distance < 0 {
		distance = 0
	}
	pages := (distance + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}
