// Package cmd implements the guestpost-catalog CLI.
//
// Every command loads configuration from an optional file, CATALOG_*
// environment variables and flags (in increasing precedence), builds a zap
// logger and the shared services of internal/app, and stores them in the
// command context:
//   - import ranks a scrape output file and inserts products for new domains.
//   - update refreshes metrics of existing products and inserts new ones.
//   - rank scores a file without touching the catalog and writes the CSV report.
//   - niches creates niche categories and links live products to them.
//   - stats counts catalog products carrying scraper data.
//
// Non-dry runs publish a run summary to Pub/Sub and push metrics to a
// Pushgateway when those are configured.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/app"
	"github.com/JakeFAU/guestpost-catalog/internal/config"
	"github.com/JakeFAU/guestpost-catalog/internal/logging"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
)

// skipStore marks commands that never open the catalog store.
const skipStore = "skip-store"

type appKeyType string

const appKey appKeyType = "app"

// newApp is the service factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts app.Options) (*app.App, error) {
	return app.New(ctx, cfg, logger, opts)
}

// runFlags maps the shared run flags onto their config keys.
var runFlags = map[string]string{
	"source":         "import.source_path",
	"batch-size":     "import.batch_size",
	"dry-run":        "import.dry_run",
	"live-threshold": "import.live_threshold",
	"top-live":       "import.top_live_count",
}

// commandFlags overrides runFlags for commands whose flags feed another
// config section.
var commandFlags = map[string]map[string]string{
	"niches": {
		"dry-run":      "niches.dry_run",
		"min-products": "niches.min_products",
	},
}

// newRootCmd builds the command tree. The returned shutdown closes the
// services built for the executed command, whether or not it failed.
func newRootCmd() (*cobra.Command, func()) {
	v := config.New()
	var (
		cfgFile  string
		services *app.App
	)

	cmd := &cobra.Command{
		Use:   "guestpost-catalog",
		Short: "Score scraped guest-post sites and load them into the product catalog.",
		Long: `guestpost-catalog turns a marketplace scrape output file into catalog products.
Sites are scored, ranked and given a live or pending status, then written in
batches to the catalog database.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindRunFlags(v, cmd); err != nil {
				return err
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			opts := app.Options{SkipStore: cmd.Annotations[skipStore] == "true"}
			a, err := newApp(cmd.Context(), cfg, logger, opts)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			services = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newImportCmd(), newUpdateCmd(), newRankCmd(), newNichesCmd(), newStatsCmd())

	shutdown := func() {
		if services == nil {
			return
		}
		services.Close(context.Background())
		_ = services.Logger.Sync()
		services = nil
	}
	return cmd, shutdown
}

// addRunFlags declares the flags shared by import, update and rank.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("source", "", "scrape output JSON file")
	f.Int("batch-size", pipeline.DefaultBatchSize, "sites per batch")
	f.Bool("dry-run", false, "rank and report without writing the catalog")
	f.Int("live-threshold", pipeline.DefaultLiveThreshold, "minimum score for live status")
	f.Int("top-live", pipeline.DefaultTopLiveCount, "how many top-ranked sites may go live")
}

// bindRunFlags binds the executing command's flags. Binding happens per
// invocation because several commands share the same flag names and keys.
func bindRunFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags, ok := commandFlags[cmd.Name()]
	if !ok {
		flags = runFlags
	}
	for name, key := range flags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, shutdown := newRootCmd()
	err := root.ExecuteContext(ctx)
	shutdown()
	if err != nil {
		stop()
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
