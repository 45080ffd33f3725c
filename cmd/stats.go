package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count catalog products carrying scraper data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.Store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("catalog stats: %w", err)
			}
			a.Logger.Info("catalog stats",
				zap.Int64("products", st.Total),
				zap.Int64("with_ahrefs_traffic", st.WithAhrefsTraffic),
				zap.Int64("with_semrush_traffic", st.WithSemrushTraffic),
				zap.Int64("with_language", st.WithLanguage),
			)
			return nil
		},
	}
}
