// Package site defines the scraped-site records that feed the catalog pipeline
// and the derived scoring types attached to them.
package site

// ScrapedSiteData holds the raw marketplace fields for one domain. Almost every
// value is a string carrying embedded units ("35%", "$12.50", "12,400");
// package parse turns them into typed values.
type ScrapedSiteData struct {
	SpamScore                   string   `json:"spamScore"`
	GoogleNews                  string   `json:"googleNews"`
	ApprovedDate                string   `json:"approvedDate"`
	MaxLinks                    string   `json:"maxLinks"`
	PerformerName               string   `json:"performerName"`
	SampleURLs                  []string `json:"sampleUrls"`
	ContentPlacementPrice       string   `json:"contentPlacementPrice"`
	WritingPlacementPrice       string   `json:"writingPlacementPrice"`
	SpecialTopicPrice           string   `json:"specialTopicPrice"`
	AhrefsOrganicTraffic        string   `json:"ahrefsOrganicTraffic"`
	SimilarwebTraffic           string   `json:"similarwebTraffic"`
	SemrushTotalTraffic         string   `json:"semrushTotalTraffic"`
	ReferralDomains             string   `json:"referralDomains"`
	MozDA                       string   `json:"mozDA"`
	SemrushAS                   string   `json:"semrushAS"`
	AhrefsDR                    string   `json:"ahrefsDR"`
	CompletionRate              string   `json:"completionRate"`
	AvgLifetimeOfLinks          string   `json:"avgLifetimeOfLinks"`
	TAT                         string   `json:"tat"`
	Language                    string   `json:"language"`
	LinkAttributionType         string   `json:"linkAttributionType"`
	RequiredContentSize         string   `json:"requiredContentSize"`
	Description                 string   `json:"description,omitempty"`
	Country                     string   `json:"country,omitempty"`
	SemrushTopCountry           string   `json:"semrushTopCountry,omitempty"`
	TopCountryTraffic           string   `json:"topCountryTraffic,omitempty"`
	TasksWithInitialDomainPrice string   `json:"tasksWithInitialDomainPrice,omitempty"`
}

// ScrapedSite is one record of the scrape output file. Data is a pointer so a
// record without a data object can be told apart from one with empty fields.
type ScrapedSite struct {
	Domain    string           `json:"domain"`
	SiteID    string           `json:"siteId"`
	Success   bool             `json:"success"`
	Data      *ScrapedSiteData `json:"data"`
	Error     *string          `json:"error"`
	Timestamp string           `json:"timestamp"`
}

// Fields returns the site's data, or an empty value when the record has none.
func (s ScrapedSite) Fields() ScrapedSiteData {
	if s.Data == nil {
		return ScrapedSiteData{}
	}
	return *s.Data
}

// Tier is the coarse quality bucket derived from a score.
type Tier string

// Supported tiers, best first.
const (
	TierPremium Tier = "premium"
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
)

// QualityScore is the result of scoring one site.
type QualityScore struct {
	// Score is always within [0, 100].
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
	// Reasons lists the rules that fired, in evaluation order.
	Reasons []string `json:"reasons"`
}

// Status is the catalog visibility assigned to an imported site.
type Status string

// Catalog statuses written by the pipeline.
const (
	StatusLive          Status = "live"
	StatusPendingReview Status = "pending_review"
)

// ScoredSite pairs a site with its score, rank and catalog status.
type ScoredSite struct {
	Site    ScrapedSite  `json:"site"`
	Quality QualityScore `json:"quality"`
	Status  Status       `json:"status"`
	// Rank is 1-based and unique within one scoring run.
	Rank int `json:"rank"`
}
