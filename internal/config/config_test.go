package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/guestpost-catalog/internal/hash/sha256"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v := New()
	v.Set("db.driver", DriverMemory)
	cfg, err := Load(v, "")
	require.NoError(t, err)

	require.Equal(t, 50, cfg.Import.BatchSize)
	require.Equal(t, 70, cfg.Import.LiveThreshold)
	require.Equal(t, 500, cfg.Import.TopLiveCount)
	require.Equal(t, "guest-posts", cfg.Catalog.DefaultCategorySlug)
	require.Equal(t, "Guest Posts", cfg.Catalog.DefaultCategoryName)
	require.Equal(t, "FileText", cfg.Catalog.DefaultCategoryIcon)
	require.Equal(t, "system@dobacklinks.com", cfg.Catalog.SystemOwnerEmail)
	require.Equal(t, int32(4), cfg.DB.MaxConns)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, ReportNone, cfg.Report.Backend)
	require.Equal(t, "catalog-runs", cfg.Report.Prefix)
	require.Equal(t, "catalog_import", cfg.Metrics.Job)

	require.Equal(t, pipeline.CategoryConfig{Slug: "guest-posts", Name: "Guest Posts", Icon: "FileText"}, cfg.Category())
	require.Equal(t, pipeline.DefaultNicheOptions(), cfg.NicheOptions())
}

func TestLoadFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `
import:
  source_path: data/scraped-sites.json
  batch_size: 25
  dry_run: true
  live_threshold: 60
  top_live_count: 100
niches:
  dry_run: true
  min_products: 3
  link_batch_size: 20
catalog:
  system_owner_email: ops@example.com
db:
  driver: sqlite
  dsn: catalog.db
  seed_owner: true
logging:
  development: false
  level: warn
report:
  backend: local
  dir: out
pubsub:
  project_id: proj
  topic_name: catalog-runs
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, pipeline.Options{
		SourcePath:    "data/scraped-sites.json",
		BatchSize:     25,
		DryRun:        true,
		LiveThreshold: 60,
		TopLiveCount:  100,
	}, cfg.Options())
	require.Equal(t, pipeline.NicheOptions{DryRun: true, MinProducts: 3, LinkBatchSize: 20}, cfg.NicheOptions())
	require.Equal(t, "ops@example.com", cfg.Catalog.SystemOwnerEmail)
	require.Equal(t, DriverSQLite, cfg.DB.Driver)
	require.True(t, cfg.DB.SeedOwner)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "out", cfg.Report.Dir)
	require.Equal(t, "catalog-runs", cfg.PubSub.TopicName)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		v := New()
		v.Set("db.driver", DriverMemory)
		cfg, err := Load(v, "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"batch size", func(c *Config) { c.Import.BatchSize = 0 }, "import.batch_size"},
		{"threshold range", func(c *Config) { c.Import.LiveThreshold = 101 }, "live_threshold"},
		{"negative top", func(c *Config) { c.Import.TopLiveCount = -1 }, "top_live_count"},
		{"niche min products", func(c *Config) { c.Niches.MinProducts = 0 }, "niches.min_products"},
		{"niche link batch", func(c *Config) { c.Niches.LinkBatchSize = -1 }, "niches.link_batch_size"},
		{"owner email", func(c *Config) { c.Catalog.SystemOwnerEmail = " " }, "system_owner_email"},
		{"category slug", func(c *Config) { c.Catalog.DefaultCategorySlug = "" }, "default_category_slug"},
		{"postgres dsn", func(c *Config) { c.DB.Driver = DriverPostgres }, "db.dsn"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "unknown db.driver"},
		{"pool sizing", func(c *Config) { c.DB.MinConns = 9 }, "pool sizing"},
		{"gcs bucket", func(c *Config) { c.Report.Backend = ReportGCS }, "gcs_bucket"},
		{"unknown backend", func(c *Config) { c.Report.Backend = "s3" }, "unknown report.backend"},
		{"pubsub pair", func(c *Config) { c.PubSub.ProjectID = "p" }, "set together"},
		{"push job", func(c *Config) {
			c.Metrics.PushgatewayURL = "http://push:9091"
			c.Metrics.Job = ""
		}, "metrics.job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

// Uses t.Setenv, so it cannot run in parallel.
func TestZeroLivePolicyReachesPipeline(t *testing.T) {
	t.Setenv("CATALOG_IMPORT_TOP_LIVE_COUNT", "0")
	t.Setenv("CATALOG_IMPORT_LIVE_THRESHOLD", "0")

	source := filepath.Join(t.TempDir(), "sites.json")
	raw, err := json.Marshal([]site.ScrapedSite{{
		Domain:  "news.com",
		Success: true,
		Data: &site.ScrapedSiteData{
			GoogleNews:   "yes",
			SpamScore:    "1%",
			SampleURLs:   []string{"https://news.com/a"},
			MaxLinks:     "2",
			ApprovedDate: "2015-06-01",
			AhrefsDR:     "80",
		},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(source, raw, 0o600))

	v := New()
	v.Set("db.driver", DriverMemory)
	v.Set("import.source_path", source)
	cfg, err := Load(v, "")
	require.NoError(t, err)
	opts := cfg.Options()
	require.Zero(t, opts.TopLiveCount)
	require.Zero(t, opts.LiveThreshold)

	prepared, err := pipeline.Prepare(opts, sha256.New())
	require.NoError(t, err)
	require.Len(t, prepared.Sites, 1)
	require.Equal(t, 100, prepared.Sites[0].Quality.Score)
	require.Equal(t, site.StatusPendingReview, prepared.Sites[0].Status)
	require.Zero(t, prepared.Summary.Live)
}
