// Package quality scores scraped sites, ranks them and assigns catalog status.
package quality

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/guestpost-catalog/internal/parse"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// Rule weights. Each fired rule adds its weight to a running total.
const (
	googleNewsPoints   = 30
	lowSpamPoints      = 25
	moderateSpamPoints = 15
	highSpamPenalty    = -20
	samplePostsPoints  = 15
	multiLinkPoints    = 10
	establishedPoints  = 10
	highDRPoints       = 10
)

// Defaults used when a scoring input is missing or unparseable. They are
// scoring-only; the field mapper leaves such fields empty instead.
const (
	DefaultSpamScore = 100
	DefaultMaxLinks  = 1
	DefaultDR        = 0
)

// Score bounds and tier thresholds.
const (
	MinScore       = 0
	MaxScore       = 100
	PremiumAtLeast = 70
	HighAtLeast    = 50
	MediumAtLeast  = 30
)

// Calculate scores a single site. It never fails: unparseable inputs either
// fall back to their scoring default or keep their rule from firing.
func Calculate(s site.ScrapedSite) site.QualityScore {
	data := s.Fields()
	score := 0
	var reasons []string

	if IsGoogleNews(data.GoogleNews) {
		score += googleNewsPoints
		reasons = append(reasons, "✓ Google News approved")
	}

	// Spam of 16..30 neither adds nor subtracts.
	spam := SpamScore(data)
	switch {
	case spam <= 5:
		score += lowSpamPoints
		reasons = append(reasons, fmt.Sprintf("✓ Low spam score (%d%%)", spam))
	case spam <= 15:
		score += moderateSpamPoints
		reasons = append(reasons, fmt.Sprintf("○ Moderate spam score (%d%%)", spam))
	case spam > 30:
		score += highSpamPenalty
		reasons = append(reasons, fmt.Sprintf("✗ High spam score (%d%%)", spam))
	}

	if n := len(data.SampleURLs); n > 0 {
		score += samplePostsPoints
		reasons = append(reasons, fmt.Sprintf("✓ %d sample posts", n))
	}

	if links := MaxLinks(data); links >= 2 {
		score += multiLinkPoints
		reasons = append(reasons, fmt.Sprintf("✓ Allows %d links", links))
	}

	if year, ok := parse.Year(data.ApprovedDate); ok && year > 2000 && year < 2022 {
		score += establishedPoints
		reasons = append(reasons, fmt.Sprintf("✓ Established since %d", year))
	}

	if dr := DomainRating(data); dr >= 70 {
		score += highDRPoints
		reasons = append(reasons, fmt.Sprintf("✓ High DR (%d)", dr))
	}

	score = clamp(score)
	if reasons == nil {
		reasons = []string{}
	}
	return site.QualityScore{
		Score:   score,
		Tier:    TierFor(score),
		Reasons: reasons,
	}
}

// TierFor maps a clamped score onto its tier.
func TierFor(score int) site.Tier {
	switch {
	case score >= PremiumAtLeast:
		return site.TierPremium
	case score >= HighAtLeast:
		return site.TierHigh
	case score >= MediumAtLeast:
		return site.TierMedium
	default:
		return site.TierLow
	}
}

// IsGoogleNews reports whether the flag text means "approved".
func IsGoogleNews(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "yes")
}

// SpamScore returns the spam percentage, defaulting to DefaultSpamScore.
func SpamScore(data site.ScrapedSiteData) int {
	if n, ok := parse.Percent(data.SpamScore); ok {
		return n
	}
	return DefaultSpamScore
}

// MaxLinks returns the allowed link count, defaulting to DefaultMaxLinks.
func MaxLinks(data site.ScrapedSiteData) int {
	if n, ok := parse.LeadingInt(data.MaxLinks); ok {
		return n
	}
	return DefaultMaxLinks
}

// DomainRating returns the Ahrefs DR, defaulting to DefaultDR.
func DomainRating(data site.ScrapedSiteData) int {
	if n, ok := parse.LeadingInt(data.AhrefsDR); ok {
		return n
	}
	return DefaultDR
}

func clamp(score int) int {
	return min(MaxScore, max(MinScore, score))
}
