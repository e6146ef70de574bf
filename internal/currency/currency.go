// Package currency converts between wallet price strings and integer minor
// currency units. All arithmetic is done on digit strings and int64 values;
// floating point is never used, so errors cannot accumulate across large
// collections.
package currency

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec describes how one wallet currency is written.
type Spec struct {
	Code        string
	Symbol      string
	ThousandSep string
	DecimalSep  string

	// Precision is the number of minor-unit digits a stored value carries.
	Precision int

	// FormatPrecision is the number of decimal digits displayed. It may
	// differ from Precision: JPY stores two minor-unit digits but shows
	// none.
	FormatPrecision int

	// SymbolAfter places the symbol after the amount, Spacer separates
	// symbol and amount with a space, TrimTrailing drops an all-zero
	// fractional part.
	SymbolAfter  bool
	Spacer       bool
	TrimTrailing bool
}

var specs = map[string]Spec{
	"USD": {Code: "USD", Symbol: "$", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 2},
	"GBP": {Code: "GBP", Symbol: "£", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 2},
	"EUR": {Code: "EUR", Symbol: "€", ThousandSep: " ", DecimalSep: ",", Precision: 2, FormatPrecision: 2, SymbolAfter: true},
	"RUB": {Code: "RUB", Symbol: "pуб.", ThousandSep: " ", DecimalSep: ",", Precision: 2, FormatPrecision: 2, SymbolAfter: true, Spacer: true, TrimTrailing: true},
	"BRL": {Code: "BRL", Symbol: "R$", ThousandSep: ".", DecimalSep: ",", Precision: 2, FormatPrecision: 2, Spacer: true},
	"JPY": {Code: "JPY", Symbol: "¥", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 0, Spacer: true},
	"KRW": {Code: "KRW", Symbol: "₩", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 0, Spacer: true},
	"CNY": {Code: "CNY", Symbol: "¥", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 2, Spacer: true},
	"PLN": {Code: "PLN", Symbol: "zł", ThousandSep: " ", DecimalSep: ",", Precision: 2, FormatPrecision: 2, SymbolAfter: true},
	"NOK": {Code: "NOK", Symbol: "kr", ThousandSep: ".", DecimalSep: ",", Precision: 2, FormatPrecision: 2, SymbolAfter: true, Spacer: true, TrimTrailing: true},
	"CAD": {Code: "CAD", Symbol: "CDN$", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 2},
	"AUD": {Code: "AUD", Symbol: "A$", ThousandSep: ",", DecimalSep: ".", Precision: 2, FormatPrecision: 2, Spacer: true},
}

// Lookup returns the Spec for a wallet currency code.
func Lookup(code string) (Spec, error) {
	spec, ok := specs[strings.ToUpper(code)]
	if !ok {
		return Spec{}, fmt.Errorf("unsupported currency %q", code)
	}
	return spec, nil
}

// Codes returns the supported wallet currency codes.
func Codes() []string {
	codes := make([]string, 0, len(specs))
	for code := range specs {
		codes = append(codes, code)
	}
	return codes
}

// ParseMoney converts a formatted price string into integer minor units.
// The fractional part is truncated or zero-padded to the spec's precision;
// there is no rounding.
func ParseMoney(text string, spec Spec) (int64, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, spec.Symbol, "")
	if spec.ThousandSep != "" {
		s = strings.ReplaceAll(s, spec.ThousandSep, "")
	}
	if spec.DecimalSep != "" && spec.DecimalSep != "." {
		s = strings.Replace(s, spec.DecimalSep, ".", 1)
	}

	// Drop anything that is not a digit or the normalized decimal point.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return 0, fmt.Errorf("no numeric value in %q", text)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}

	// Fix the fraction to the currency's precision directly on the digit
	// string: truncate extra digits, pad missing ones.
	if len(frac) > spec.Precision {
		frac = frac[:spec.Precision]
	}
	for len(frac) < spec.Precision {
		frac += "0"
	}

	value, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", text, err)
	}
	return value, nil
}

// FormatMoney renders integer minor units as a display string per the spec.
func FormatMoney(value int64, spec Spec) string {
	divisor := int64(1)
	for i := 0; i < spec.Precision; i++ {
		divisor *= 10
	}
	wholePart := value / divisor
	fracPart := value % divisor

	whole := groupThousands(strconv.FormatInt(wholePart, 10), spec.ThousandSep)

	frac := fmt.Sprintf("%0*d", spec.Precision, fracPart)
	if spec.FormatPrecision < spec.Precision {
		frac = frac[:spec.FormatPrecision]
	}
	for len(frac) < spec.FormatPrecision {
		frac += "0"
	}
	if spec.TrimTrailing && strings.Trim(frac, "0") == "" {
		frac = ""
	}

	amount := whole
	if frac != "" {
		amount += spec.DecimalSep + frac
	}

	spacer := ""
	if spec.Spacer {
		spacer = " "
	}
	if spec.SymbolAfter {
		return amount + spacer + spec.Symbol
	}
	return spec.Symbol + spacer + amount
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, sep)
}
