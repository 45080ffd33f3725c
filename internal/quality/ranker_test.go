package quality

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

func TestScoreAllSortsDescending(t *testing.T) {
	t.Parallel()

	sites := []site.ScrapedSite{
		newSite("low.com", func(d *site.ScrapedSiteData) { d.SpamScore = "100%" }),
		newSite("best.com", func(d *site.ScrapedSiteData) {
			d.GoogleNews = "yes"
			d.SpamScore = "5%"
		}),
		newSite("mid.com", func(d *site.ScrapedSiteData) { d.GoogleNews = "yes" }),
	}

	got := ScoreAll(sites)
	require.Len(t, got, 3)
	require.Equal(t, "best.com", got[0].Site.Domain)
	require.Equal(t, []int{1, 2, 3}, ranks(got))
	for _, s := range got {
		require.Equal(t, site.StatusPendingReview, s.Status)
	}
}

func TestScoreAllStableForTies(t *testing.T) {
	t.Parallel()

	sites := make([]site.ScrapedSite, 0, 20)
	for i := 0; i < 20; i++ {
		spam := "100%"
		if i%3 == 0 {
			spam = "0%"
		}
		sites = append(sites, newSite(fmt.Sprintf("site-%02d.com", i), func(d *site.ScrapedSiteData) {
			d.SpamScore = spam
		}))
	}

	got := ScoreAll(sites)
	var previous string
	for _, s := range got {
		if s.Quality.Score == 25 {
			require.Greater(t, s.Site.Domain, previous)
			previous = s.Site.Domain
		}
	}

	first, err := json.Marshal(got)
	require.NoError(t, err)
	second, err := json.Marshal(ScoreAll(sites))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScoreAllRanksContiguous(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 64} {
		sites := make([]site.ScrapedSite, n)
		for i := range sites {
			dr := fmt.Sprintf("%d", i*7%100)
			sites[i] = newSite(fmt.Sprintf("s%d.com", i), func(d *site.ScrapedSiteData) { d.AhrefsDR = dr })
		}
		got := ScoreAll(sites)
		require.Len(t, got, n)
		seen := make(map[int]bool, n)
		for _, s := range got {
			require.GreaterOrEqual(t, s.Rank, 1)
			require.LessOrEqual(t, s.Rank, n)
			require.False(t, seen[s.Rank], "rank %d repeated", s.Rank)
			seen[s.Rank] = true
		}
	}
}

func TestApplyStatus(t *testing.T) {
	t.Parallel()

	sites := []site.ScrapedSite{
		premiumSite("a.com"),
		premiumSite("b.com"),
		premiumSite("c.com"),
		newSite("d.com", func(d *site.ScrapedSiteData) { d.SpamScore = "0%" }),
	}

	tests := []struct {
		name   string
		policy Policy
		want   []site.Status
	}{
		{
			name:   "top two only",
			policy: Policy{TopLiveCount: 2, LiveThreshold: 70},
			want:   []site.Status{site.StatusLive, site.StatusLive, site.StatusPendingReview, site.StatusPendingReview},
		},
		{
			name:   "threshold excludes low score within top-n",
			policy: Policy{TopLiveCount: 10, LiveThreshold: 70},
			want:   []site.Status{site.StatusLive, site.StatusLive, site.StatusLive, site.StatusPendingReview},
		},
		{
			name:   "zero top-n keeps everything pending",
			policy: Policy{TopLiveCount: 0, LiveThreshold: 0},
			want: []site.Status{
				site.StatusPendingReview, site.StatusPendingReview, site.StatusPendingReview, site.StatusPendingReview,
			},
		},
		{
			name:   "zero threshold",
			policy: Policy{TopLiveCount: 4, LiveThreshold: 0},
			want:   []site.Status{site.StatusLive, site.StatusLive, site.StatusLive, site.StatusLive},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ApplyStatus(ScoreAll(sites), tt.policy)
			statuses := make([]site.Status, len(got))
			for i, s := range got {
				statuses[i] = s.Status
				live := s.Rank <= tt.policy.TopLiveCount && s.Quality.Score >= tt.policy.LiveThreshold
				require.Equal(t, live, s.Status == site.StatusLive)
			}
			require.Equal(t, tt.want, statuses)
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	scored := ApplyStatus(ScoreAll([]site.ScrapedSite{
		premiumSite("a.com"),
		newSite("b.com", func(d *site.ScrapedSiteData) { d.SpamScore = "0%" }),
	}), Policy{TopLiveCount: 500, LiveThreshold: 70})

	sum := Summarize(scored)
	require.Equal(t, 2, sum.Total)
	require.Equal(t, 1, sum.Live)
	require.Equal(t, 1, sum.Pending)
	require.InDelta(t, 52.5, sum.AverageScore, 1e-9)
	require.Equal(t, 1, sum.Tiers[site.TierPremium])
	require.Equal(t, 1, sum.Tiers[site.TierLow])

	empty := Summarize(nil)
	require.Zero(t, empty.AverageScore)
}

func premiumSite(domain string) site.ScrapedSite {
	return newSite(domain, func(d *site.ScrapedSiteData) {
		d.GoogleNews = "yes"
		d.SpamScore = "2%"
		d.SampleURLs = []string{"x"}
		d.AhrefsDR = "71"
	})
}

func ranks(scored []site.ScoredSite) []int {
	out := make([]int, len(scored))
	for i, s := range scored {
		out[i] = s.Rank
	}
	return out
}
