package quality

import (
	"sort"

	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// Policy decides which ranked sites go live.
type Policy struct {
	// TopLiveCount caps how many of the best-ranked sites may be live.
	TopLiveCount int
	// LiveThreshold is the minimum score a live site needs.
	LiveThreshold int
}

// ScoreAll scores every site and orders the result by descending score.
// Equal scores keep their input order, so repeated runs over the same input
// produce the same sequence. Ranks are 1..len(sites). Every site starts as
// pending review; ApplyStatus assigns the final status.
func ScoreAll(sites []site.ScrapedSite) []site.ScoredSite {
	scored := make([]site.ScoredSite, len(sites))
	for i, s := range sites {
		scored[i] = site.ScoredSite{
			Site:    s,
			Quality: Calculate(s),
			Status:  site.StatusPendingReview,
			Rank:    i + 1,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Quality.Score > scored[j].Quality.Score
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// ApplyStatus marks a site live only when it is within the top-N by rank and
// meets the live threshold. The slice is updated in place and returned.
func ApplyStatus(scored []site.ScoredSite, p Policy) []site.ScoredSite {
	for i := range scored {
		inTop := scored[i].Rank <= p.TopLiveCount
		meets := scored[i].Quality.Score >= p.LiveThreshold
		if inTop && meets {
			scored[i].Status = site.StatusLive
		} else {
			scored[i].Status = site.StatusPendingReview
		}
	}
	return scored
}

// Summary aggregates one scoring run.
type Summary struct {
	Total        int
	Live         int
	Pending      int
	AverageScore float64
	Tiers        map[site.Tier]int
}

// Summarize counts statuses and tiers over a scored run.
func Summarize(scored []site.ScoredSite) Summary {
	sum := Summary{Total: len(scored), Tiers: make(map[site.Tier]int, 4)}
	total := 0
	for _, s := range scored {
		total += s.Quality.Score
		sum.Tiers[s.Quality.Tier]++
		if s.Status == site.StatusLive {
			sum.Live++
		} else {
			sum.Pending++
		}
	}
	if len(scored) > 0 {
		sum.AverageScore = float64(total) / float64(len(scored))
	}
	return sum
}
