package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/fieldmap"
	"github.com/JakeFAU/guestpost-catalog/internal/quality"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// Prepared is a loaded, filtered, ranked and status-assigned source file.
type Prepared struct {
	Sites []site.ScoredSite
	// Loaded counts every record in the file, Sites only successful scrapes.
	Loaded  int
	Summary quality.Summary
	// Digest is the hex SHA-256 of the file bytes.
	Digest string
}

// Prepare reads the source and ranks its successful scrapes. It never writes
// anything; a missing file or malformed JSON aborts with an error.
func Prepare(opts Options, hasher Hasher) (Prepared, error) {
	if err := opts.validate(); err != nil {
		return Prepared{}, err
	}
	all, raw, err := site.Load(opts.SourcePath)
	if err != nil {
		return Prepared{}, err
	}
	digest, err := hasher.Hash(raw)
	if err != nil {
		return Prepared{}, fmt.Errorf("hash source: %w", err)
	}
	scored := quality.ApplyStatus(quality.ScoreAll(site.Successful(all)), opts.policy())
	return Prepared{
		Sites:   scored,
		Loaded:  len(all),
		Summary: quality.Summarize(scored),
		Digest:  digest,
	}, nil
}

func logPrepared(logger *zap.Logger, path string, p Prepared) {
	logger.Info("source ranked",
		zap.String("source", path),
		zap.String("sha256", p.Digest),
		zap.Int("loaded", p.Loaded),
		zap.Int("successful", p.Summary.Total),
		zap.Int("live", p.Summary.Live),
		zap.Int("pending", p.Summary.Pending),
		zap.Float64("avg_score", p.Summary.AverageScore),
	)
}

// dedupe keeps the first site per slug and returns the slugs in batch order
// along with how many later duplicates were dropped.
func dedupe(batch []site.ScoredSite) ([]site.ScoredSite, []string, int) {
	seen := make(map[string]struct{}, len(batch))
	kept := make([]site.ScoredSite, 0, len(batch))
	slugs := make([]string, 0, len(batch))
	for _, s := range batch {
		slug := fieldmap.Slug(s.Site.Domain)
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		kept = append(kept, s)
		slugs = append(slugs, slug)
	}
	return kept, slugs, len(batch) - len(kept)
}
