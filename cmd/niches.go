package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
)

func newNichesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "niches",
		Short: "Create niche categories and link live products to them",
		Long: `Counts live products per niche, creates a category for every niche with at
least --min-products live products and no category yet, then links each
niche's live products to its category. Existing links are kept, so the
command is safe to re-run.`,
		RunE: runNiches,
	}
	f := cmd.Flags()
	f.Bool("dry-run", false, "report what would be created and linked without writing")
	f.Int("min-products", pipeline.DefaultNicheMinProducts, "live products a niche needs before its category is created")
	return cmd
}

func runNiches(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	nc, err := pipeline.NewNicheCategorizer(a.Deps())
	if err != nil {
		return err
	}
	res, err := nc.Categorize(ctx, a.Config.NicheOptions())
	if err != nil {
		return fmt.Errorf("niches: %w", err)
	}
	for _, n := range res.Niches {
		a.Logger.Info("niche outcome",
			zap.String("niche", n.Niche),
			zap.String("slug", n.Slug),
			zap.Int64("live", n.Live),
			zap.Bool("created", n.Created),
			zap.Int("linked", n.Linked),
			zap.Int("already_linked", n.AlreadyLinked),
		)
	}
	a.Logger.Info("niche categorization complete",
		zap.Bool("dry_run", res.DryRun),
		zap.Int("niches", len(res.Niches)),
		zap.Int("categories_created", res.CategoriesCreated),
		zap.Int("linked", res.Linked),
	)
	return nil
}
