package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/hash/sha256"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/report"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Score and rank a source file without touching the catalog",
		Long: `Scores every successful scrape, applies the live policy and writes the ranked
CSV report to the configured report backend, or to stdout when none is set.`,
		Annotations: map[string]string{skipStore: "true"},
		RunE:        runRank,
	}
	addRunFlags(cmd)
	return cmd
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	prepared, err := pipeline.Prepare(a.Config.Options(), sha256.New())
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	tiers := prepared.Summary.Tiers
	a.Logger.Info("ranking complete",
		zap.Int("sites", prepared.Summary.Total),
		zap.Int("live", prepared.Summary.Live),
		zap.Int("pending", prepared.Summary.Pending),
		zap.Float64("avg_score", prepared.Summary.AverageScore),
		zap.Int("premium", tiers[site.TierPremium]),
		zap.Int("high", tiers[site.TierHigh]),
		zap.Int("medium", tiers[site.TierMedium]),
		zap.Int("low", tiers[site.TierLow]),
		zap.String("sha256", prepared.Digest),
	)

	if a.Reports == nil {
		return report.WriteCSV(cmd.OutOrStdout(), prepared.Sites)
	}
	path := report.ObjectPath(a.Config.Report.Prefix, "rank", time.Now())
	uri, err := report.Upload(ctx, a.Reports, path, prepared.Sites)
	if err != nil {
		return err
	}
	a.Logger.Info("report uploaded", zap.String("uri", uri))
	return nil
}
