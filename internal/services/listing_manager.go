package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codyseavey/market-history/backend/internal/currency"
	"github.com/codyseavey/market-history/backend/internal/locale"
	"github.com/codyseavey/market-history/backend/internal/metrics"
	"github.com/codyseavey/market-history/backend/internal/models"
)

const (
	// defaultPageSize is the number of history rows requested per page.
	defaultPageSize = 100

	// retryBackoff is the fixed delay before retrying a transient page
	// failure at the same offset.
	retryBackoff = 15 * time.Second

	// repetitionGuardSize trips the guard once this many consecutive
	// requests carry an identical (count, start, language) signature.
	repetitionGuardSize = 10
)

// Progress reports how far through a pass the collector is. Total is
// recomputed every step, since the server-side total drifts.
type Progress struct {
	Step  int64 `json:"step"`
	Total int64 `json:"total"`
}

// LoadResult is the outcome of one Load cycle.
type LoadResult struct {
	Records  []models.Listing `json:"records"`
	Progress Progress         `json:"progress"`
}

type requestSignature struct {
	count    int64
	start    int64
	language string
}

// ListingManagerConfig wires the manager's collaborators.
type ListingManagerConfig struct {
	SteamID string

	// AccountLanguage is adopted and locked at first setup. Ignored once
	// settings carry a locked language.
	AccountLanguage string

	// WalletCurrency is the account's wallet currency code.
	WalletCurrency string

	PageSize int64

	Fetcher      PageFetcher
	Listings     ListingStore
	Settings     SettingsStore
	AssetCache   *AssetCache
	RetryBackoff time.Duration // 0 means the default
}

// ListingManager drives incremental collection of the market transaction
// history: it decides the next page to fetch, detects completion and
// loops, recovers from drift, and owns the persisted progress settings.
// One logical loader runs per account, enforced by the session token.
type ListingManager struct {
	steamID  string
	language string
	pageSize int64
	backoff  time.Duration

	fetcher  PageFetcher
	listings ListingStore
	settings SettingsStore
	assets   *AssetCache

	spec currency.Spec
	loc  *locale.Locale

	mu          sync.Mutex
	session     string
	cursor      DateCursor
	last        *models.Listing
	lastFetched *models.Listing
	lastIndexed *models.Listing
	requestLog  []requestSignature
	step        int64
	ready       bool
}

func NewListingManager(cfg ListingManagerConfig) (*ListingManager, error) {
	if cfg.SteamID == "" {
		return nil, fmt.Errorf("steam id is required")
	}
	if cfg.WalletCurrency == "" {
		return nil, ErrCurrencyNotConfigured
	}
	spec, err := currency.Lookup(cfg.WalletCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurrencyNotConfigured, err)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = retryBackoff
	}
	return &ListingManager{
		steamID:  cfg.SteamID,
		language: cfg.AccountLanguage,
		pageSize: pageSize,
		backoff:  backoff,
		fetcher:  cfg.Fetcher,
		listings: cfg.Listings,
		settings: cfg.Settings,
		assets:   cfg.AssetCache,
		spec:     spec,
	}, nil
}

// Setup loads or creates the persisted progress, locks the collection
// language, claims the session token and primes the in-memory load state.
// It must succeed before Load is called.
func (m *ListingManager) Setup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, err := m.settings.GetSettings(m.steamID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		settings = &models.ProgressSettings{SteamID: m.steamID}
	}

	// The language is locked forever on first setup: date-string grammar
	// depends on it, and records parsed under two grammars cannot mix.
	if settings.Language == "" {
		if m.language == "" {
			return ErrLanguageNotConfigured
		}
		settings.Language = m.language
	}
	loc, err := locale.Load(settings.Language)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLanguageNotConfigured, err)
	}
	m.loc = loc
	m.language = settings.Language

	// Claiming the session immediately makes any other live loader fail
	// its next cycle.
	m.session = uuid.NewString()
	settings.Session = m.session
	settings.IsLoading = true
	settings.Date = time.Now()
	if err := m.settings.PutSettings(settings); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	if err := m.primeLoadState(settings); err != nil {
		return err
	}

	m.requestLog = nil
	m.step = 0
	m.ready = true
	log.Printf("Listing manager: setup complete for %s (language %s, resume offset %d)",
		m.steamID, settings.Language, settings.CurrentIndex)
	return nil
}

// primeLoadState rebuilds the in-memory boundary listings and the date
// cursor from the store.
func (m *ListingManager) primeLoadState(settings *models.ProgressSettings) error {
	var err error
	if m.last, err = m.listings.LastByIndex(); err != nil {
		return fmt.Errorf("failed to load newest listing: %w", err)
	}

	m.lastFetched = nil
	if settings.LastFetchedIndex > 0 {
		if m.lastFetched, err = m.listings.GetByIndex(settings.LastFetchedIndex); err != nil {
			return fmt.Errorf("failed to load resume listing: %w", err)
		}
	}

	m.lastIndexed = nil
	if settings.LastIndex > 0 {
		if m.lastIndexed, err = m.listings.GetByIndex(settings.LastIndex); err != nil {
			return fmt.Errorf("failed to load boundary listing: %w", err)
		}
	}

	// Resuming mid-pass continues walking backward from the last fetched
	// listing, so its date seeds the cursor; a fresh pass starts from the
	// wall clock.
	if m.lastFetched != nil {
		m.cursor = CursorFromTime(m.lastFetched.DateActed)
	} else {
		m.cursor = CursorFromTime(time.Now())
	}
	return nil
}

// Load runs one fetch-parse-persist cycle and reports the records it
// gathered plus pass progress. Transient failures are retried at the same
// offset after a fixed backoff; fatal conditions abort the pass. When the
// pass reaches the end of history or wraps onto the previous pass, Load
// returns ErrCollectionComplete — a success signal, not a failure.
func (m *ListingManager) Load(ctx context.Context) (*LoadResult, error) {
	for {
		// The lock covers one cycle, not the backoff sleep, so status
		// reads stay responsive while a retry is pending.
		m.mu.Lock()
		if !m.ready {
			m.mu.Unlock()
			return nil, fmt.Errorf("listing manager is not set up")
		}
		result, err := m.loadOnce(ctx)
		m.mu.Unlock()

		if err == nil || IsFatal(err) || errors.Is(err, ErrCollectionComplete) {
			return result, err
		}

		log.Printf("Listing manager: transient failure (%v), retrying in %s", err, m.backoff)
		metrics.SyncRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.backoff):
		}
	}
}

func (m *ListingManager) loadOnce(ctx context.Context) (*LoadResult, error) {
	// Re-read persisted settings every cycle: the session token is the
	// sole cross-loader coordination mechanism.
	settings, err := m.settings.GetSettings(m.steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil || settings.Session != m.session {
		return nil, ErrSessionConflict
	}

	if m.passDone(settings) {
		return nil, m.finishPass(settings)
	}

	if err := m.logRequest(settings.CurrentIndex); err != nil {
		return nil, err
	}

	page, err := m.fetcher.FetchListingsPage(ctx, settings.CurrentIndex, m.pageSize, m.language)
	if err != nil {
		// Transport errors are transient by contract; the caller's retry
		// loop picks them up.
		return nil, retryablef("page fetch failed: %v", err)
	}
	metrics.PagesFetchedTotal.Inc()

	state := ListingParseState{
		Last:        m.last,
		LastFetched: m.lastFetched,
		LastIndexed: m.lastIndexed,
		Cursor:      m.cursor,
		KnownTotal:  settings.TotalCount,
		PageSize:    m.pageSize,
	}
	result, err := ParseListingsPage(page, state, m.spec, m.loc)
	if err != nil {
		return nil, err
	}

	if result.Shifted {
		log.Printf("Listing manager: total_count jumped %d -> %d, shifting offset %d -> %d",
			settings.TotalCount, result.TotalCount, settings.CurrentIndex, result.NextStart)
		settings.TotalCount = result.TotalCount
		settings.CurrentIndex = result.NextStart
		settings.Date = time.Now()
		if err := m.settings.PutSettings(settings); err != nil {
			return nil, fmt.Errorf("failed to persist settings: %w", err)
		}
		return &LoadResult{Progress: m.progress(settings)}, nil
	}

	// Records first, progress second. The two steps are not atomic; a
	// crash in between is tolerated because re-inserting is a no-op.
	inserted, err := m.listings.BulkInsert(result.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to insert listings: %w", err)
	}
	m.cacheAssets(result.Records, page)

	settings.TotalCount = result.TotalCount
	settings.RecordedCount += inserted
	settings.CurrentIndex += m.pageSize
	settings.Date = time.Now()
	if len(result.Records) > 0 {
		oldest := result.Records[len(result.Records)-1]
		settings.LastFetchedIndex = oldest.Index
		m.lastFetched = &oldest
		if m.last == nil || result.Records[0].Index > m.last.Index {
			newest := result.Records[0]
			m.last = &newest
		}
	}
	if err := m.settings.PutSettings(settings); err != nil {
		return nil, fmt.Errorf("failed to persist settings: %w", err)
	}

	m.cursor = result.Cursor
	m.step++
	metrics.ListingsRecordedTotal.Add(float64(inserted))

	if result.Stopped || m.passDone(settings) {
		loadResult := &LoadResult{Records: result.Records, Progress: m.progress(settings)}
		err := m.finishPass(settings)
		if err != nil && !errors.Is(err, ErrCollectionComplete) {
			return nil, err
		}
		return loadResult, err
	}

	return &LoadResult{Records: result.Records, Progress: m.progress(settings)}, nil
}

// passDone reports whether the next fetch offset has reached the true end
// of history or looped back onto the previous pass's boundary.
func (m *ListingManager) passDone(settings *models.ProgressSettings) bool {
	if settings.TotalCount <= 0 {
		return false
	}
	if settings.CurrentIndex >= settings.TotalCount {
		return true
	}
	return settings.LastIndex > 0 && settings.TotalCount-settings.CurrentIndex <= settings.LastIndex
}

// finishPass snapshots the new boundary, resets per-pass progress and
// returns the distinguished completion signal.
func (m *ListingManager) finishPass(settings *models.ProgressSettings) error {
	newest, err := m.listings.LastByIndex()
	if err != nil {
		return fmt.Errorf("failed to load newest listing: %w", err)
	}
	if newest != nil {
		settings.LastIndex = newest.Index
	}
	settings.ResetPass()
	// The total is only valid within a pass; the next pass re-learns it
	// from its first page. Keeping it would satisfy the boundary check
	// before anything was fetched.
	settings.TotalCount = 0
	settings.Date = time.Now()
	if err := m.settings.PutSettings(settings); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	m.lastIndexed = newest
	m.lastFetched = nil
	m.last = newest
	m.requestLog = nil
	m.cursor = CursorFromTime(time.Now())
	m.step = 0

	log.Printf("Listing manager: pass complete for %s (boundary index %d, %d recorded)",
		m.steamID, settings.LastIndex, settings.RecordedCount)
	return ErrCollectionComplete
}

// logRequest appends the cycle's request signature and trips the guard
// when the last ten were identical, which points at an upstream contract
// change rather than a transient fault.
func (m *ListingManager) logRequest(start int64) error {
	sig := requestSignature{count: m.pageSize, start: start, language: m.language}
	m.requestLog = append(m.requestLog, sig)
	if len(m.requestLog) > repetitionGuardSize {
		m.requestLog = m.requestLog[len(m.requestLog)-repetitionGuardSize:]
	}
	if len(m.requestLog) < repetitionGuardSize {
		return nil
	}
	for _, logged := range m.requestLog {
		if logged != sig {
			return nil
		}
	}
	return fmt.Errorf("%w: %d requests for (count=%d start=%d l=%s)",
		ErrRepetitionGuard, repetitionGuardSize, sig.count, sig.start, sig.language)
}

func (m *ListingManager) progress(settings *models.ProgressSettings) Progress {
	return Progress{
		Step:  m.step,
		Total: listingPageTotal(settings.TotalCount, settings.LastIndex, m.pageSize),
	}
}

func (m *ListingManager) cacheAssets(records []models.Listing, page *ListingsPage) {
	if m.assets == nil {
		return
	}
	for _, r := range records {
		if asset := page.Asset(r.AppID, r.ContextID, r.AssetID); asset != nil {
			m.assets.Put(r.AppID, r.ClassID, r.InstanceID, m.language, asset)
		}
	}
}

// Settings returns the persisted progress for the account, or nil.
func (m *ListingManager) Settings() (*models.ProgressSettings, error) {
	return m.settings.GetSettings(m.steamID)
}

// DeleteSettings removes the persisted progress entirely.
func (m *ListingManager) DeleteSettings() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = false
	return m.settings.DeleteSettings(m.steamID)
}

// Reset zeroes collection progress while keeping the locked language, so
// the next pass starts from the newest listing again.
func (m *ListingManager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, err := m.settings.GetSettings(m.steamID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		return nil
	}
	settings.ResetPass()
	settings.TotalCount = 0
	settings.LastIndex = 0
	settings.RecordedCount = 0
	settings.Date = time.Now()
	if err := m.settings.PutSettings(settings); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	m.requestLog = nil
	m.step = 0
	m.ready = false
	log.Printf("Listing manager: progress reset for %s", m.steamID)
	return nil
}

// Language returns the locked collection language, or the configured one
// before setup.
func (m *ListingManager) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// Locale returns the loaded locale after Setup.
func (m *ListingManager) Locale() *locale.Locale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loc
}

// CurrencySpec returns the wallet currency rules the manager parses with.
func (m *ListingManager) CurrencySpec() currency.Spec {
	return m.spec
}

// PageSize returns the configured rows-per-page.
func (m *ListingManager) PageSize() int64 {
	return m.pageSize
}
