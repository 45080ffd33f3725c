// Package config loads and validates catalog pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/JakeFAU/guestpost-catalog/internal/logging"
	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/publisher/pubsub"
)

// EnvPrefix prefixes every environment override, e.g. CATALOG_DB_DSN.
const EnvPrefix = "CATALOG"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Report backends.
const (
	ReportNone   = "none"
	ReportLocal  = "local"
	ReportGCS    = "gcs"
	ReportMemory = "memory"
)

// Config captures every knob of the catalog CLI.
type Config struct {
	Import  ImportConfig   `mapstructure:"import"`
	Niches  NichesConfig   `mapstructure:"niches"`
	Catalog CatalogConfig  `mapstructure:"catalog"`
	DB      DBConfig       `mapstructure:"db"`
	Logging logging.Config `mapstructure:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Report  ReportConfig   `mapstructure:"report"`
	PubSub  pubsub.Config  `mapstructure:"pubsub"`
}

// ImportConfig holds the per-run options shared by import and update.
type ImportConfig struct {
	SourcePath    string `mapstructure:"source_path"`
	BatchSize     int    `mapstructure:"batch_size"`
	DryRun        bool   `mapstructure:"dry_run"`
	LiveThreshold int    `mapstructure:"live_threshold"`
	TopLiveCount  int    `mapstructure:"top_live_count"`
}

// NichesConfig holds the options of the niche categorization run.
type NichesConfig struct {
	DryRun        bool `mapstructure:"dry_run"`
	MinProducts   int  `mapstructure:"min_products"`
	LinkBatchSize int  `mapstructure:"link_batch_size"`
}

// CatalogConfig names the default category and the system owner.
type CatalogConfig struct {
	DefaultCategorySlug string `mapstructure:"default_category_slug"`
	DefaultCategoryName string `mapstructure:"default_category_name"`
	DefaultCategoryIcon string `mapstructure:"default_category_icon"`
	SystemOwnerEmail    string `mapstructure:"system_owner_email"`
}

// DBConfig selects and sizes the catalog store.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	// SeedOwner registers the system owner on memory and sqlite stores,
	// which start without users.
	SeedOwner bool `mapstructure:"seed_owner"`
}

// MetricsConfig enables pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// ReportConfig selects where ranked CSV reports go.
type ReportConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// New returns a Viper instance with defaults and environment binding set.
// Commands bind their flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (when set) into v and returns the validated Config.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("import.source_path", "")
	v.SetDefault("import.batch_size", pipeline.DefaultBatchSize)
	v.SetDefault("import.dry_run", false)
	v.SetDefault("import.live_threshold", pipeline.DefaultLiveThreshold)
	v.SetDefault("import.top_live_count", pipeline.DefaultTopLiveCount)
	v.SetDefault("niches.dry_run", false)
	v.SetDefault("niches.min_products", pipeline.DefaultNicheMinProducts)
	v.SetDefault("niches.link_batch_size", pipeline.DefaultNicheLinkBatchSize)
	v.SetDefault("catalog.default_category_slug", "guest-posts")
	v.SetDefault("catalog.default_category_name", "Guest Posts")
	v.SetDefault("catalog.default_category_icon", "FileText")
	v.SetDefault("catalog.system_owner_email", "system@dobacklinks.com")
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.seed_owner", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "catalog_import")
	v.SetDefault("report.backend", ReportNone)
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.gcs_bucket", "")
	v.SetDefault("report.prefix", "catalog-runs")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and limits. The source path is checked
// by the commands that need it.
func (c Config) Validate() error {
	switch {
	case c.Import.BatchSize <= 0:
		return errors.New("import.batch_size must be > 0")
	case c.Import.LiveThreshold < 0 || c.Import.LiveThreshold > 100:
		return errors.New("import.live_threshold must be within 0..100")
	case c.Import.TopLiveCount < 0:
		return errors.New("import.top_live_count must be >= 0")
	case c.Niches.MinProducts <= 0:
		return errors.New("niches.min_products must be > 0")
	case c.Niches.LinkBatchSize <= 0:
		return errors.New("niches.link_batch_size must be > 0")
	case strings.TrimSpace(c.Catalog.DefaultCategorySlug) == "":
		return errors.New("catalog.default_category_slug is required")
	case strings.TrimSpace(c.Catalog.SystemOwnerEmail) == "":
		return errors.New("catalog.system_owner_email is required")
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for driver %q", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.DB.MaxConns <= 0 || c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		return errors.New("db pool sizing requires 0 <= min_conns <= max_conns and max_conns > 0")
	}

	switch c.Report.Backend {
	case ReportNone, ReportMemory:
	case ReportLocal:
		if strings.TrimSpace(c.Report.Dir) == "" {
			return errors.New("report.dir is required for the local backend")
		}
	case ReportGCS:
		if c.Report.GCSBucket == "" {
			return errors.New("report.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown report.backend %q", c.Report.Backend)
	}

	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return errors.New("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		return errors.New("metrics.job is required when pushing metrics")
	}
	return nil
}

// Options converts the import section into pipeline options.
func (c Config) Options() pipeline.Options {
	return pipeline.Options{
		SourcePath:    c.Import.SourcePath,
		BatchSize:     c.Import.BatchSize,
		DryRun:        c.Import.DryRun,
		LiveThreshold: c.Import.LiveThreshold,
		TopLiveCount:  c.Import.TopLiveCount,
	}
}

// NicheOptions converts the niches section into categorization options.
func (c Config) NicheOptions() pipeline.NicheOptions {
	return pipeline.NicheOptions{
		DryRun:        c.Niches.DryRun,
		MinProducts:   c.Niches.MinProducts,
		LinkBatchSize: c.Niches.LinkBatchSize,
	}
}

// Category converts the catalog section into the default category record.
func (c Config) Category() pipeline.CategoryConfig {
	return pipeline.CategoryConfig{
		Slug: c.Catalog.DefaultCategorySlug,
		Name: c.Catalog.DefaultCategoryName,
		Icon: c.Catalog.DefaultCategoryIcon,
	}
}
