package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	steamCommunityURL   = "https://steamcommunity.com"
	steamStoreURL       = "https://store.steampowered.com"
	steamDefaultTimeout = 30 * time.Second
)

// RawAsset is one item descriptor from a listings page's asset map.
type RawAsset struct {
	AppID           int64  `json:"appid"`
	ContextID       string `json:"contextid"`
	ID              string `json:"id"`
	ClassID         string `json:"classid"`
	InstanceID      string `json:"instanceid"`
	Amount          string `json:"amount"`
	Name            string `json:"name"`
	MarketName      string `json:"market_name"`
	MarketHashName  string `json:"market_hash_name"`
	NameColor       string `json:"name_color"`
	BackgroundColor string `json:"background_color"`
	IconURL         string `json:"icon_url"`
}

// ListingsPage is the JSON envelope of one market history page. The row
// data itself is an HTML fragment in ResultsHTML; Hovers links each row to
// its asset triple, and Assets maps appid -> contextid -> assetid to the
// item descriptor.
type ListingsPage struct {
	Success     bool                                       `json:"success"`
	TotalCount  *int64                                     `json:"total_count"`
	Start       int64                                      `json:"start"`
	PageSize    json.Number                                `json:"pagesize"`
	Assets      map[string]map[string]map[string]*RawAsset `json:"assets"`
	Hovers      string                                     `json:"hovers"`
	ResultsHTML string                                     `json:"results_html"`
}

// Asset resolves an appid/contextid/assetid triple against the page map.
func (p *ListingsPage) Asset(appID, contextID, assetID string) *RawAsset {
	contexts, ok := p.Assets[appID]
	if !ok {
		return nil
	}
	assets, ok := contexts[contextID]
	if !ok {
		return nil
	}
	return assets[assetID]
}

// PurchaseCursor is the opaque continuation token of the purchase history
// endpoint. It is echoed back verbatim on the next request.
type PurchaseCursor struct {
	WalletTxnID     string `json:"wallet_txnid"`
	TimestampNewest int64  `json:"timestamp_newest"`
	Balance         string `json:"balance"`
	Currency        int    `json:"currency"`
}

// PurchasePage is one purchase-history response: an HTML fragment of table
// rows plus the cursor for the next page, absent on the last one.
type PurchasePage struct {
	HTML   string          `json:"html"`
	Cursor *PurchaseCursor `json:"cursor,omitempty"`
}

// PageFetcher is the upstream retrieval contract consumed by the collector.
type PageFetcher interface {
	FetchListingsPage(ctx context.Context, start, count int64, language string) (*ListingsPage, error)
	FetchPurchaseHistory(ctx context.Context, cursor *PurchaseCursor) (*PurchasePage, error)
}

// SteamClient fetches market history and purchase history pages using a
// pre-established web session. Authentication itself is out of scope; the
// session cookies are supplied by the operator.
type SteamClient struct {
	client       *http.Client
	communityURL string
	storeURL     string
	sessionID    string
	loginSecure  string
}

// NewSteamClient creates a client authenticated with the given session
// cookies (the browser's sessionid and steamLoginSecure values).
func NewSteamClient(sessionID, loginSecure string) *SteamClient {
	return newSteamClient(&http.Client{Timeout: steamDefaultTimeout}, steamCommunityURL, steamStoreURL, sessionID, loginSecure)
}

// newSteamClient is the internal constructor used by tests to inject the
// http.Client and base URLs.
func newSteamClient(client *http.Client, communityURL, storeURL, sessionID, loginSecure string) *SteamClient {
	return &SteamClient{
		client:       client,
		communityURL: communityURL,
		storeURL:     storeURL,
		sessionID:    sessionID,
		loginSecure:  loginSecure,
	}
}

// FetchListingsPage retrieves one market history page starting at the given
// offset, counted from the newest transaction.
func (s *SteamClient) FetchListingsPage(ctx context.Context, start, count int64, language string) (*ListingsPage, error) {
	params := url.Values{}
	params.Set("query", "")
	params.Set("start", strconv.FormatInt(start, 10))
	params.Set("count", strconv.FormatInt(count, 10))
	params.Set("l", language)

	reqURL := fmt.Sprintf("%s/market/myhistory/render/?%s", s.communityURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.addSession(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market history error: status %d", resp.StatusCode)
	}

	var page ListingsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode listings page: %w", err)
	}
	return &page, nil
}

// FetchPurchaseHistory retrieves one purchase-history page. A nil cursor
// requests the newest page; the response's cursor continues the chase.
func (s *SteamClient) FetchPurchaseHistory(ctx context.Context, cursor *PurchaseCursor) (*PurchasePage, error) {
	form := url.Values{}
	form.Set("sessionid", s.sessionID)
	if cursor != nil {
		form.Set("cursor[wallet_txnid]", cursor.WalletTxnID)
		form.Set("cursor[timestamp_newest]", strconv.FormatInt(cursor.TimestampNewest, 10))
		form.Set("cursor[balance]", cursor.Balance)
		form.Set("cursor[currency]", strconv.Itoa(cursor.Currency))
	}

	reqURL := fmt.Sprintf("%s/account/AjaxLoadMoreHistory/", s.storeURL)

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.addSession(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("purchase history error: status %d", resp.StatusCode)
	}

	var page PurchasePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode purchase history: %w", err)
	}
	return &page, nil
}

func (s *SteamClient) addSession(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: s.sessionID})
	}
	if s.loginSecure != "" {
		req.AddCookie(&http.Cookie{Name: "steamLoginSecure", Value: s.loginSecure})
	}
}
