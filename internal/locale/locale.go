// Package locale resolves the language-dependent text Steam embeds in
// history pages: abbreviated year-less dates and wallet transaction labels.
// Grammar tables are compiled once per language at Load time.
package locale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/market-history/backend/internal/models"
)

// ParsedDate is a date extracted from a short history string. Year is 0
// when the string did not carry one; every supported language except
// Korean omits it.
type ParsedDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateParseError reports a string the language's grammar could not resolve.
type DateParseError struct {
	Raw      string
	Language string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("cannot parse date %q as %s", e.Raw, e.Language)
}

type dateGrammar int

const (
	grammarMonthAbbrev dateGrammar = iota // "Mar 30", "30 Mär"
	grammarDayDotMonth                    // finnish "30.3."
	grammarCJK                            // "3月30日"
	grammarKorean                         // "2019년 3월 30일"
)

// Locale holds the compiled grammar and label tables for one Steam
// language.
type Locale struct {
	Language string

	grammar     dateGrammar
	monthAbbrev []*regexp.Regexp

	// transactionLabels maps a lower-cased singular or plural wallet row
	// label to its transaction type.
	transactionLabels map[string]models.TransactionType
}

// monthPatterns lists one case-insensitive pattern per month, January
// first. These are Steam's own abbreviations, not the locale's official
// ones; the first pattern that matches wins.
var monthPatterns = map[string][12]string{
	"english":    {`jan`, `feb`, `mar`, `apr`, `may`, `jun`, `jul`, `aug`, `sep`, `oct`, `nov`, `dec`},
	"german":     {`jan`, `feb`, `mär|mrz|maer`, `apr`, `mai`, `jun`, `jul`, `aug`, `sep`, `okt`, `nov`, `dez`},
	"french":     {`janv`, `févr|fevr`, `mars`, `avr`, `mai`, `juin`, `juil`, `août|aout`, `sept`, `oct`, `nov`, `déc|dec`},
	"italian":    {`gen`, `feb`, `mar`, `apr`, `mag`, `giu`, `lug`, `ago`, `set`, `ott`, `nov`, `dic`},
	"spanish":    {`ene`, `feb`, `mar`, `abr`, `may`, `jun`, `jul`, `ago`, `sep`, `oct`, `nov`, `dic`},
	"portuguese": {`jan`, `fev`, `mar`, `abr`, `mai`, `jun`, `jul`, `ago`, `set`, `out`, `nov`, `dez`},
	"brazilian":  {`jan`, `fev`, `mar`, `abr`, `mai`, `jun`, `jul`, `ago`, `set`, `out`, `nov`, `dez`},
	"polish":     {`sty`, `lut`, `mar`, `kwi`, `maj`, `cze`, `lip`, `sie`, `wrz`, `paź|paz`, `lis`, `gru`},
	"russian":    {`янв`, `фев`, `мар`, `апр`, `мая|май`, `июн`, `июл`, `авг`, `сен`, `окт`, `ноя`, `дек`},
	"dutch":      {`jan`, `feb`, `mrt|maa`, `apr`, `mei`, `jun`, `jul`, `aug`, `sep`, `okt`, `nov`, `dec`},
	"swedish":    {`jan`, `feb`, `mar`, `apr`, `maj`, `jun`, `jul`, `aug`, `sep`, `okt`, `nov`, `dec`},
	"danish":     {`jan`, `feb`, `mar`, `apr`, `maj`, `jun`, `jul`, `aug`, `sep`, `okt`, `nov`, `dec`},
	"norwegian":  {`jan`, `feb`, `mar`, `apr`, `mai`, `jun`, `jul`, `aug`, `sep`, `okt`, `nov`, `des`},
}

var (
	cjkDateRe    = regexp.MustCompile(`(\d+)月\s*(\d+)日`)
	koreanDateRe = regexp.MustCompile(`(\d+)년 (\d+)월 (\d+)일`)
	digitsRe     = regexp.MustCompile(`\d+`)
	yearRe       = regexp.MustCompile(`\b(\d{4})\b`)
)

// transactionLabelTables carries the singular and plural wallet row labels
// per language. Only languages with a table can parse purchase history.
var transactionLabelTables = map[string]map[string]models.TransactionType{
	"english": {
		"market transaction":  models.TransactionTypeMarket,
		"market transactions": models.TransactionTypeMarket,
		"in-game purchase":    models.TransactionTypeInGamePurchase,
		"in-game purchases":   models.TransactionTypeInGamePurchase,
		"purchase":            models.TransactionTypePurchase,
		"purchases":           models.TransactionTypePurchase,
		"gift purchase":       models.TransactionTypeGiftPurchase,
		"gift purchases":      models.TransactionTypeGiftPurchase,
		"refund":              models.TransactionTypeRefund,
		"refunds":             models.TransactionTypeRefund,
	},
	"german": {
		"markttransaktion":   models.TransactionTypeMarket,
		"markttransaktionen": models.TransactionTypeMarket,
		"ingame-kauf":        models.TransactionTypeInGamePurchase,
		"ingame-käufe":       models.TransactionTypeInGamePurchase,
		"kauf":               models.TransactionTypePurchase,
		"käufe":              models.TransactionTypePurchase,
		"geschenkkauf":       models.TransactionTypeGiftPurchase,
		"geschenkkäufe":      models.TransactionTypeGiftPurchase,
		"rückerstattung":     models.TransactionTypeRefund,
		"rückerstattungen":   models.TransactionTypeRefund,
	},
}

// Load builds the Locale for a Steam language name ("english", "finnish",
// "schinese", ...). It fails for languages without date-format rules.
func Load(language string) (*Locale, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	loc := &Locale{
		Language:          lang,
		transactionLabels: transactionLabelTables[lang],
	}

	switch lang {
	case "finnish":
		loc.grammar = grammarDayDotMonth
	case "japanese", "schinese", "tchinese":
		loc.grammar = grammarCJK
	case "koreana":
		loc.grammar = grammarKorean
	default:
		patterns, ok := monthPatterns[lang]
		if !ok {
			return nil, fmt.Errorf("no date-format rules for language %q", language)
		}
		loc.grammar = grammarMonthAbbrev
		loc.monthAbbrev = make([]*regexp.Regexp, 12)
		for i, p := range patterns {
			loc.monthAbbrev[i] = regexp.MustCompile(`(?i)` + p)
		}
	}
	return loc, nil
}

// ParseDateString resolves a short history date like "Mar 30", "30.3.",
// "3月30日" or "2019년 3월 30일" into its month and day, plus the year for
// the one language that supplies it.
func (l *Locale) ParseDateString(raw string) (ParsedDate, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
	}

	switch l.grammar {
	case grammarDayDotMonth:
		parts := strings.Split(s, ".")
		if len(parts) < 2 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		return ParsedDate{Month: time.Month(month), Day: day}, nil

	case grammarCJK:
		m := cjkDateRe.FindStringSubmatch(strings.Join(strings.Fields(s), ""))
		if m == nil {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		return ParsedDate{Month: time.Month(month), Day: day}, nil

	case grammarKorean:
		m := koreanDateRe.FindStringSubmatch(s)
		if m == nil {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		return ParsedDate{Year: year, Month: time.Month(month), Day: day}, nil

	default:
		month := 0
		for i, re := range l.monthAbbrev {
			if re.MatchString(s) {
				month = i + 1
				break
			}
		}
		if month == 0 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		digits := digitsRe.FindString(s)
		if digits == "" {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		day, err := strconv.Atoi(digits)
		if err != nil || day < 1 || day > 31 {
			return ParsedDate{}, &DateParseError{Raw: raw, Language: l.Language}
		}
		return ParsedDate{Month: time.Month(month), Day: day}, nil
	}
}

// ParseFullDate resolves a wallet history date, which unlike market rows
// carries an explicit 4-digit year in every language.
func (l *Locale) ParseFullDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	year := 0
	if m := yearRe.FindStringSubmatch(s); m != nil {
		year, _ = strconv.Atoi(m[1])
		s = strings.Replace(s, m[1], "", 1)
	}

	parsed, err := l.ParseDateString(s)
	if err != nil {
		return time.Time{}, err
	}
	if parsed.Year != 0 {
		year = parsed.Year
	}
	if year == 0 {
		return time.Time{}, &DateParseError{Raw: raw, Language: l.Language}
	}
	return MiddayUTC(year, parsed.Month, parsed.Day), nil
}

// TransactionLabelType resolves a wallet row label ("3 Market Transactions"
// minus the leading count) to its type.
func (l *Locale) TransactionLabelType(label string) (models.TransactionType, bool) {
	if l.transactionLabels == nil {
		return "", false
	}
	t, ok := l.transactionLabels[strings.ToLower(strings.TrimSpace(label))]
	return t, ok
}

// MiddayUTC builds the canonical stored form of a calendar date. Midday
// keeps the calendar day stable under timezone conversion at display time.
func MiddayUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
