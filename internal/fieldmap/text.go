package fieldmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/guestpost-catalog/internal/parse"
	"github.com/JakeFAU/guestpost-catalog/internal/quality"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// Fallback texts.
const (
	ContactForPricing = "Contact for pricing"
	DefaultTagline    = "Guest post opportunity"
	taglineSeparator  = " • "
)

var turnaround = regexp.MustCompile(`(?i)up to \d+ days?`)

// Prices returns the positive prices among the three price fields, in field
// order. Unparseable and non-positive values are dropped.
func Prices(data site.ScrapedSiteData) []float64 {
	var out []float64
	for _, raw := range []string{data.ContentPlacementPrice, data.WritingPlacementPrice, data.SpecialTopicPrice} {
		if p, ok := parse.Decimal(raw); ok && p > 0 {
			out = append(out, p)
		}
	}
	return out
}

// PriceRange renders "$min - $max", "$price" when all prices agree, or
// ContactForPricing when there is none.
func PriceRange(prices []float64) string {
	if len(prices) == 0 {
		return ContactForPricing
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if lo == hi {
		return "$" + formatAmount(lo)
	}
	return fmt.Sprintf("$%s - $%s", formatAmount(lo), formatAmount(hi))
}

// Tagline composes a short pitch from the site's strongest signals.
func Tagline(data site.ScrapedSiteData) string {
	var parts []string
	if quality.IsGoogleNews(data.GoogleNews) {
		parts = append(parts, "Google News approved")
	}
	if quality.SpamScore(data) <= 5 {
		parts = append(parts, "High authority")
	}
	if len(data.SampleURLs) > 0 {
		parts = append(parts, "Verified publisher")
	}
	if dr := quality.DomainRating(data); dr >= 70 {
		parts = append(parts, fmt.Sprintf("DR %d", dr))
	}
	if len(parts) == 0 {
		return DefaultTagline
	}
	return strings.Join(parts, taglineSeparator)
}

// Description returns the scraped description, or composes one when the
// source has none.
func Description(domain string, data site.ScrapedSiteData) string {
	if d := strings.TrimSpace(data.Description); d != "" {
		return d
	}
	parts := []string{fmt.Sprintf("Submit your guest post on %s.", domain)}
	if links, ok := parse.LeadingInt(data.MaxLinks); ok {
		plural := ""
		if links > 1 {
			plural = "s"
		}
		parts = append(parts, fmt.Sprintf("Allows up to %d dofollow link%s.", links, plural))
	}
	if quality.IsGoogleNews(data.GoogleNews) {
		parts = append(parts, "This site is approved for Google News, providing additional exposure for your content.")
	}
	if quality.SpamScore(data) <= 10 {
		parts = append(parts, "Clean backlink profile with low spam score.")
	}
	return strings.Join(parts, " ")
}

// Turnaround extracts an "Up to N days" phrase from free text.
func Turnaround(tat string) *string {
	m := turnaround.FindString(tat)
	if m == "" {
		return nil
	}
	return &m
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
