package currency

import (
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name string
		code string
		text string
		want int64
	}{
		{name: "USD simple", code: "USD", text: "$1.50", want: 150},
		{name: "USD thousands", code: "USD", text: "$1,234.56", want: 123456},
		{name: "USD no fraction", code: "USD", text: "$12", want: 1200},
		{name: "USD truncates extra digits", code: "USD", text: "$1.999", want: 199},
		{name: "GBP", code: "GBP", text: "£0.03", want: 3},
		{name: "EUR symbol after", code: "EUR", text: "1,50€", want: 150},
		{name: "EUR space thousands", code: "EUR", text: "1 234,56€", want: 123456},
		{name: "RUB", code: "RUB", text: "125,50 pуб.", want: 12550},
		{name: "RUB whole", code: "RUB", text: "125 pуб.", want: 12500},
		{name: "BRL dot thousands comma decimal", code: "BRL", text: "R$ 1.234,56", want: 123456},
		{name: "JPY stores two minor digits", code: "JPY", text: "¥ 1,234", want: 123400},
		{name: "KRW", code: "KRW", text: "₩ 15,000", want: 1500000},
		{name: "NOK", code: "NOK", text: "1.234,50 kr", want: 123450},
		{name: "CAD long symbol", code: "CAD", text: "CDN$ 4.99", want: 499},
		{name: "whitespace around value", code: "USD", text: "  $2.25  ", want: 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Lookup(tt.code)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.code, err)
			}
			got, err := ParseMoney(tt.text, spec)
			if err != nil {
				t.Fatalf("ParseMoney(%q) error: %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseMoneyErrors(t *testing.T) {
	spec, _ := Lookup("USD")
	for _, text := range []string{"", "$", "--"} {
		if _, err := ParseMoney(text, spec); err == nil {
			t.Errorf("ParseMoney(%q) expected error, got nil", text)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		value int64
		want  string
	}{
		{name: "USD", code: "USD", value: 150, want: "$1.50"},
		{name: "USD thousands", code: "USD", value: 123456, want: "$1,234.56"},
		{name: "USD zero", code: "USD", value: 0, want: "$0.00"},
		{name: "EUR symbol after", code: "EUR", value: 150, want: "1,50€"},
		{name: "RUB trims zero fraction", code: "RUB", value: 12500, want: "125 pуб."},
		{name: "RUB keeps nonzero fraction", code: "RUB", value: 12550, want: "125,50 pуб."},
		{name: "JPY hides minor units", code: "JPY", value: 123400, want: "¥ 1,234"},
		{name: "KRW hides minor units", code: "KRW", value: 1500000, want: "₩ 15,000"},
		{name: "BRL", code: "BRL", value: 123456, want: "R$ 1.234,56"},
		{name: "NOK trims zero fraction", code: "NOK", value: 123400, want: "1.234 kr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Lookup(tt.code)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.code, err)
			}
			if got := FormatMoney(tt.value, spec); got != tt.want {
				t.Errorf("FormatMoney(%d) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	// Formatting then reparsing must reproduce the stored value for every
	// currency whose display precision matches its stored precision. The
	// zero-decimal display currencies only round-trip whole major units.
	values := []int64{0, 1, 99, 100, 123456, 999999900}
	for _, code := range Codes() {
		spec, err := Lookup(code)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", code, err)
		}
		for _, value := range values {
			if spec.FormatPrecision < spec.Precision && value%100 != 0 {
				continue
			}
			text := FormatMoney(value, spec)
			got, err := ParseMoney(text, spec)
			if err != nil {
				t.Fatalf("%s: ParseMoney(%q) error: %v", code, text, err)
			}
			if got != value {
				t.Errorf("%s: round trip of %d via %q = %d", code, value, text, got)
			}
		}
	}
}

func TestLookupUnknownCurrency(t *testing.T) {
	if _, err := Lookup("XYZ"); err == nil {
		t.Error("Lookup(XYZ) expected error, got nil")
	}
	if _, err := Lookup("usd"); err != nil {
		t.Errorf("Lookup is case insensitive, got error: %v", err)
	}
}
