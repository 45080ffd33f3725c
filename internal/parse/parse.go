// Package parse converts the stringly-typed scrape fields into typed values.
// Every accessor reports success with a bool; callers decide whether a failed
// parse means "use a default" (scoring) or "leave the field empty" (mapping).
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	leadingInt     = regexp.MustCompile(`^[+-]?\d+`)
	leadingDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// LeadingInt parses the integer prefix of s after trimming whitespace, so
// "35 links" yields 35 and "3.9" yields 3. It fails when s has no digit prefix.
func LeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Percent parses values such as "35%" or "35 %".
func Percent(s string) (int, bool) {
	return LeadingInt(strings.ReplaceAll(s, "%", ""))
}

// GroupedInt parses comma-grouped counts such as "12,400".
func GroupedInt(s string) (int, bool) {
	return LeadingInt(strings.ReplaceAll(s, ",", ""))
}

// Decimal parses the decimal prefix of a price-like value, ignoring "$" and
// thousands separators: "$1,250.50" yields 1250.5.
func Decimal(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	m := leadingDecimal.FindString(strings.TrimSpace(cleaned))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	"2006-01",
	"2006",
}

// Year extracts the calendar year from a free-text date. Unrecognized input
// reports false instead of an error.
func Year(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}
