package locale

import (
	"testing"
	"time"

	"github.com/codyseavey/market-history/backend/internal/models"
)

func TestParseDateString(t *testing.T) {
	tests := []struct {
		name     string
		language string
		raw      string
		want     ParsedDate
	}{
		{name: "english", language: "english", raw: "Mar 30", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "english december", language: "english", raw: "Dec 2", want: ParsedDate{Month: time.December, Day: 2}},
		{name: "english lowercase", language: "english", raw: "jan 5", want: ParsedDate{Month: time.January, Day: 5}},
		{name: "german day first", language: "german", raw: "30. Mär", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "german ascii umlaut", language: "german", raw: "30. Mrz", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "french", language: "french", raw: "30 août", want: ParsedDate{Month: time.August, Day: 30}},
		{name: "french no diacritic", language: "french", raw: "12 fevr.", want: ParsedDate{Month: time.February, Day: 12}},
		{name: "spanish", language: "spanish", raw: "30 ABR", want: ParsedDate{Month: time.April, Day: 30}},
		{name: "russian", language: "russian", raw: "30 мар", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "russian may genitive", language: "russian", raw: "1 мая", want: ParsedDate{Month: time.May, Day: 1}},
		{name: "polish", language: "polish", raw: "14 paź", want: ParsedDate{Month: time.October, Day: 14}},
		{name: "dutch march", language: "dutch", raw: "3 mrt", want: ParsedDate{Month: time.March, Day: 3}},
		{name: "finnish", language: "finnish", raw: "30.3.", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "finnish single digits", language: "finnish", raw: "1.12.", want: ParsedDate{Month: time.December, Day: 1}},
		{name: "japanese", language: "japanese", raw: "3月30日", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "schinese", language: "schinese", raw: "12月1日", want: ParsedDate{Month: time.December, Day: 1}},
		{name: "tchinese spaced", language: "tchinese", raw: "3月 30日", want: ParsedDate{Month: time.March, Day: 30}},
		{name: "korean carries year", language: "koreana", raw: "2019년 3월 30일", want: ParsedDate{Year: 2019, Month: time.March, Day: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Load(tt.language)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", tt.language, err)
			}
			got, err := loc.ParseDateString(tt.raw)
			if err != nil {
				t.Fatalf("ParseDateString(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseDateString(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateStringErrors(t *testing.T) {
	tests := []struct {
		name     string
		language string
		raw      string
	}{
		{name: "empty", language: "english", raw: ""},
		{name: "no month", language: "english", raw: "30"},
		{name: "no day", language: "english", raw: "Mar"},
		{name: "unknown month", language: "english", raw: "Xyz 30"},
		{name: "finnish missing month", language: "finnish", raw: "30"},
		{name: "finnish month out of range", language: "finnish", raw: "30.13."},
		{name: "korean without year", language: "koreana", raw: "3월 30일"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Load(tt.language)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", tt.language, err)
			}
			if _, err := loc.ParseDateString(tt.raw); err == nil {
				t.Errorf("ParseDateString(%q) expected error, got nil", tt.raw)
			}
		})
	}
}

func TestLoadUnknownLanguage(t *testing.T) {
	if _, err := Load("klingon"); err == nil {
		t.Error("Load(klingon) expected error, got nil")
	}
}

func TestParseFullDate(t *testing.T) {
	tests := []struct {
		name     string
		language string
		raw      string
		want     time.Time
	}{
		{name: "english", language: "english", raw: "Mar 30, 2019", want: MiddayUTC(2019, time.March, 30)},
		{name: "german", language: "german", raw: "30. Mär 2019", want: MiddayUTC(2019, time.March, 30)},
		{name: "finnish", language: "finnish", raw: "30.3.2019", want: MiddayUTC(2019, time.March, 30)},
		{name: "korean year in grammar", language: "koreana", raw: "2019년 3월 30일", want: MiddayUTC(2019, time.March, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Load(tt.language)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", tt.language, err)
			}
			got, err := loc.ParseFullDate(tt.raw)
			if err != nil {
				t.Fatalf("ParseFullDate(%q) error: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseFullDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	loc, _ := Load("english")
	if _, err := loc.ParseFullDate("Mar 30"); err == nil {
		t.Error("ParseFullDate without a year expected error, got nil")
	}
}

func TestTransactionLabelType(t *testing.T) {
	tests := []struct {
		name     string
		language string
		label    string
		want     models.TransactionType
		wantOK   bool
	}{
		{name: "singular", language: "english", label: "Market Transaction", want: models.TransactionTypeMarket, wantOK: true},
		{name: "plural", language: "english", label: "Market Transactions", want: models.TransactionTypeMarket, wantOK: true},
		{name: "in-game", language: "english", label: "In-Game Purchase", want: models.TransactionTypeInGamePurchase, wantOK: true},
		{name: "gift", language: "english", label: "Gift Purchases", want: models.TransactionTypeGiftPurchase, wantOK: true},
		{name: "refund", language: "english", label: "Refund", want: models.TransactionTypeRefund, wantOK: true},
		{name: "padded", language: "english", label: "  purchase  ", want: models.TransactionTypePurchase, wantOK: true},
		{name: "unknown", language: "english", label: "Loan", wantOK: false},
		{name: "german plural", language: "german", label: "Markttransaktionen", want: models.TransactionTypeMarket, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Load(tt.language)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", tt.language, err)
			}
			got, ok := loc.TransactionLabelType(tt.label)
			if ok != tt.wantOK {
				t.Fatalf("TransactionLabelType(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("TransactionLabelType(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}

	// Languages without a label table cannot resolve wallet rows at all.
	loc, err := Load("french")
	if err != nil {
		t.Fatalf("Load(french) error: %v", err)
	}
	if _, ok := loc.TransactionLabelType("achat"); ok {
		t.Error("expected no label table for french")
	}
}
