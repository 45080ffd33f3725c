package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/app"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/progress"
	"github.com/JakeFAU/guestpost-catalog/internal/publisher"
	"github.com/JakeFAU/guestpost-catalog/internal/report"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Insert catalog products for domains not yet in the catalog",
		Long: `Ranks the source file and inserts a product for every domain whose slug is
not in the catalog yet. Existing products are left untouched. The system owner
must exist; the default category is created when missing.`,
		RunE: runImport,
	}
	addRunFlags(cmd)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh metrics of existing products and add new domains",
		Long: `Ranks the source file, overwrites metrics and pricing of products whose slug
already exists and inserts products for the rest. Name, niche, status and
category links of existing products never change.`,
		RunE: runUpdate,
	}
	addRunFlags(cmd)
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	im, err := pipeline.NewImporter(a.Deps())
	if err != nil {
		return err
	}
	res, err := im.Import(ctx, a.Config.Options())
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	uri := uploadReport(ctx, a, string(progress.ModeImport), res.Ranked, res.FinishedAt)
	if res.DryRun {
		return nil
	}
	summary := publisher.FromImport(res)
	summary.ReportURI = uri
	finishRun(ctx, a, summary)
	return nil
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	up, err := pipeline.NewUpdater(a.Deps())
	if err != nil {
		return err
	}
	stats, err := up.Update(ctx, a.Config.Options())
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	uri := uploadReport(ctx, a, string(progress.ModeUpdate), stats.Ranked, stats.FinishedAt)
	if stats.DryRun {
		return nil
	}
	summary := publisher.FromUpdate(stats)
	summary.ReportURI = uri
	finishRun(ctx, a, summary)
	return nil
}

// uploadReport stores the ranked CSV when a report backend is configured.
// A failed upload is logged and does not fail the run.
func uploadReport(ctx context.Context, a *app.App, label string, ranked []site.ScoredSite, at time.Time) string {
	if a.Reports == nil {
		return ""
	}
	path := report.ObjectPath(a.Config.Report.Prefix, label, at)
	uri, err := report.Upload(ctx, a.Reports, path, ranked)
	if err != nil {
		a.Logger.Warn("report upload failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	a.Logger.Info("report uploaded", zap.String("uri", uri), zap.Int("rows", len(ranked)))
	return uri
}

// finishRun publishes the run summary and pushes metrics. Both are best effort.
func finishRun(ctx context.Context, a *app.App, summary publisher.RunSummary) {
	if a.Publisher != nil {
		id, err := a.Publisher.Publish(ctx, summary)
		if err != nil {
			a.Logger.Warn("run summary publish failed", zap.String("run_id", summary.RunID), zap.Error(err))
		} else {
			a.Logger.Info("run summary published", zap.String("run_id", summary.RunID), zap.String("message_id", id))
		}
	}
	if err := a.PushMetrics(ctx, summary.Mode); err != nil {
		a.Logger.Warn("metrics push failed", zap.Error(err))
	}
}
