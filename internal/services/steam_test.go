package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchListingsPage(t *testing.T) {
	var gotQuery map[string]string
	var gotCookies []*http.Cookie

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/myhistory/render/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for key, values := range r.URL.Query() {
			gotQuery[key] = values[0]
		}
		gotCookies = r.Cookies()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "total_count": 1234, "start": 100, "pagesize": 50, "results_html": "<div></div>"}`))
	}))
	defer server.Close()

	client := newSteamClient(server.Client(), server.URL, server.URL, "sess-1", "secure-1")
	page, err := client.FetchListingsPage(context.Background(), 100, 50, "english")
	if err != nil {
		t.Fatalf("FetchListingsPage error: %v", err)
	}

	if gotQuery["start"] != "100" || gotQuery["count"] != "50" || gotQuery["l"] != "english" {
		t.Errorf("query = %v", gotQuery)
	}
	if _, ok := gotQuery["query"]; !ok {
		t.Error("query parameter missing")
	}

	cookies := map[string]string{}
	for _, c := range gotCookies {
		cookies[c.Name] = c.Value
	}
	if cookies["sessionid"] != "sess-1" || cookies["steamLoginSecure"] != "secure-1" {
		t.Errorf("cookies = %v", cookies)
	}

	if page.TotalCount == nil || *page.TotalCount != 1234 {
		t.Errorf("TotalCount = %v, want 1234", page.TotalCount)
	}
	if page.Start != 100 {
		t.Errorf("Start = %d, want 100", page.Start)
	}
}

func TestFetchListingsPageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newSteamClient(server.Client(), server.URL, server.URL, "s", "l")
	if _, err := client.FetchListingsPage(context.Background(), 0, 100, "english"); err == nil {
		t.Error("expected error for status 429, got nil")
	}
}

func TestFetchPurchaseHistory(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account/AjaxLoadMoreHistory/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm error: %v", err)
		}
		gotForm = map[string]string{}
		for key, values := range r.PostForm {
			gotForm[key] = values[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"html": "<div></div>", "cursor": {"wallet_txnid": "t9", "timestamp_newest": 42}}`))
	}))
	defer server.Close()

	client := newSteamClient(server.Client(), server.URL, server.URL, "sess-1", "secure-1")
	cursor := &PurchaseCursor{WalletTxnID: "t1", TimestampNewest: 100, Balance: "1000", Currency: 1}
	page, err := client.FetchPurchaseHistory(context.Background(), cursor)
	if err != nil {
		t.Fatalf("FetchPurchaseHistory error: %v", err)
	}

	if gotForm["sessionid"] != "sess-1" {
		t.Errorf("sessionid = %q, want sess-1", gotForm["sessionid"])
	}
	if gotForm["cursor[wallet_txnid]"] != "t1" || gotForm["cursor[timestamp_newest]"] != "100" {
		t.Errorf("cursor form fields = %v", gotForm)
	}
	if gotForm["cursor[balance]"] != "1000" || gotForm["cursor[currency]"] != "1" {
		t.Errorf("cursor form fields = %v", gotForm)
	}

	if page.Cursor == nil || page.Cursor.WalletTxnID != "t9" || page.Cursor.TimestampNewest != 42 {
		t.Errorf("Cursor = %+v", page.Cursor)
	}
}

func TestFetchPurchaseHistoryFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm error: %v", err)
		}
		for key := range r.PostForm {
			if key != "sessionid" {
				t.Errorf("unexpected form field %q on the first request", key)
			}
		}
		w.Write([]byte(`{"html": ""}`))
	}))
	defer server.Close()

	client := newSteamClient(server.Client(), server.URL, server.URL, "sess-1", "secure-1")
	page, err := client.FetchPurchaseHistory(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPurchaseHistory error: %v", err)
	}
	if page.Cursor != nil {
		t.Errorf("Cursor = %+v, want nil on the last page", page.Cursor)
	}
}
