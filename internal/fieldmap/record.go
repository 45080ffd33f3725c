package fieldmap

import (
	"strings"
	"time"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/parse"
	"github.com/JakeFAU/guestpost-catalog/internal/quality"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// BuildProduct maps a scored site onto a full catalog insert record.
func BuildProduct(scored site.ScoredSite, id, ownerID string, now time.Time) catalog.Product {
	s := scored.Site
	data := s.Fields()
	return catalog.Product{
		ID:               id,
		UserID:           ownerID,
		Name:             DisplayName(s.Domain),
		Slug:             Slug(s.Domain),
		URL:              SiteURL(s.Domain),
		Tagline:          Tagline(data),
		Description:      Description(s.Domain, data),
		LogoURL:          FaviconURL(s.Domain),
		Niche:            InferNiche(s.Domain, data.Description),
		ApprovedDate:     optText(data.ApprovedDate),
		Status:           scored.Status,
		EnrichmentStatus: catalog.EnrichmentPending,
		Metrics:          BuildMetrics(data),
		SubmittedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// BuildUpdate maps a site onto the metrics-only update applied to an
// existing product.
func BuildUpdate(data site.ScrapedSiteData, now time.Time) catalog.ProductUpdate {
	return catalog.ProductUpdate{
		Metrics:   BuildMetrics(data),
		UpdatedAt: now,
	}
}

// BuildMetrics normalizes the metric and pricing fields. Values that do not
// parse are nil. Authority, link and size metrics reported as 0 are also nil
// because the marketplace uses 0 for "not reported".
func BuildMetrics(data site.ScrapedSiteData) catalog.Metrics {
	samples := make([]string, len(data.SampleURLs))
	copy(samples, data.SampleURLs)
	return catalog.Metrics{
		DA:                    optReported(parse.LeadingInt(data.MozDA)),
		DR:                    optReported(parse.LeadingInt(data.AhrefsDR)),
		SpamScore:             optInt(parse.Percent(data.SpamScore)),
		GoogleNews:            quality.IsGoogleNews(data.GoogleNews),
		MaxLinks:              optReported(parse.LeadingInt(data.MaxLinks)),
		RequiredContentSize:   optReported(parse.GroupedInt(data.RequiredContentSize)),
		AhrefsOrganicTraffic:  optInt(parse.GroupedInt(data.AhrefsOrganicTraffic)),
		ReferralDomains:       optInt(parse.GroupedInt(data.ReferralDomains)),
		SemrushAS:             optReported(parse.LeadingInt(data.SemrushAS)),
		SemrushTotalTraffic:   optInt(parse.GroupedInt(data.SemrushTotalTraffic)),
		SimilarwebTraffic:     optInt(parse.GroupedInt(data.SimilarwebTraffic)),
		Language:              optText(data.Language),
		CompletionRate:        optText(data.CompletionRate),
		AvgLifetimeOfLinks:    optText(data.AvgLifetimeOfLinks),
		TurnaroundTime:        Turnaround(data.TAT),
		SampleURLs:            samples,
		LinkType:              LinkType(data.LinkAttributionType),
		PriceRange:            PriceRange(Prices(data)),
		ContentPlacementPrice: optPrice(data.ContentPlacementPrice),
		WritingPlacementPrice: optPrice(data.WritingPlacementPrice),
		SpecialTopicPrice:     optPrice(data.SpecialTopicPrice),
	}
}

func optInt(n int, ok bool) *int {
	if !ok {
		return nil
	}
	return &n
}

func optReported(n int, ok bool) *int {
	if !ok || n == 0 {
		return nil
	}
	return &n
}

func optText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optPrice(raw string) *string {
	p, ok := parse.Decimal(raw)
	if !ok {
		return nil
	}
	out := formatAmount(p)
	return &out
}
