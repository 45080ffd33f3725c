// Package catalogsql builds the catalog statements shared by the SQL
// backends. Only the placeholder format differs between Postgres and SQLite.
package catalogsql

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// Table names.
const (
	UserTable            = `"user"`
	CategoryTable        = "categories"
	ProductTable         = "products"
	ProductCategoryTable = "product_categories"
)

// Builder renders catalog statements for one placeholder format.
type Builder struct {
	sb sq.StatementBuilderType
}

// New returns a Builder; use sq.Dollar for Postgres and sq.Question for SQLite.
func New(format sq.PlaceholderFormat) Builder {
	return Builder{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// FindCategoryBySlug selects id, name, slug, icon, display_order, is_active.
func (b Builder) FindCategoryBySlug(slug string) (string, []any, error) {
	return b.sb.
		Select("id", "name", "slug", "COALESCE(icon, '')", "display_order", "is_active").
		From(CategoryTable).
		Where(sq.Eq{"slug": slug}).
		Limit(1).
		ToSql()
}

// InsertCategory inserts one category row.
func (b Builder) InsertCategory(c catalog.Category) (string, []any, error) {
	return b.sb.
		Insert(CategoryTable).
		Columns(categoryColumns...).
		Values(c.ID, c.Name, c.Slug, c.Icon, c.DisplayOrder, c.IsActive, c.CreatedAt).
		ToSql()
}

var categoryColumns = []string{"id", "name", "slug", "icon", "display_order", "is_active", "created_at"}

// InsertCategories inserts several categories in one statement.
func (b Builder) InsertCategories(categories []catalog.Category) (string, []any, error) {
	if len(categories) == 0 {
		return "", nil, fmt.Errorf("no categories to insert")
	}
	q := b.sb.Insert(CategoryTable).Columns(categoryColumns...)
	for _, c := range categories {
		q = q.Values(c.ID, c.Name, c.Slug, c.Icon, c.DisplayOrder, c.IsActive, c.CreatedAt)
	}
	return q.ToSql()
}

// FindOwnerByEmail selects id and email.
func (b Builder) FindOwnerByEmail(email string) (string, []any, error) {
	return b.sb.
		Select("id", "email").
		From(UserTable).
		Where(sq.Eq{"email": email}).
		Limit(1).
		ToSql()
}

// FindProductsBySlugs selects id, slug and niche of the matching products.
func (b Builder) FindProductsBySlugs(slugs []string) (string, []any, error) {
	return b.sb.
		Select("id", "slug", "COALESCE(niche, '')").
		From(ProductTable).
		Where(sq.Eq{"slug": slugs}).
		OrderBy("slug").
		ToSql()
}

// productColumns lists the insert columns that precede the metric columns.
var productColumns = []string{
	"id", "user_id", "name", "slug", "url", "tagline", "description", "logo_url",
	"niche", "approved_date", "status", "is_featured", "is_verified", "enrichment_status",
}

var timestampColumns = []string{"submitted_at", "created_at", "updated_at"}

// InsertProducts renders one multi-row insert returning id, slug and niche.
func (b Builder) InsertProducts(products []catalog.Product) (string, []any, error) {
	if len(products) == 0 {
		return "", nil, fmt.Errorf("no products to insert")
	}
	metricNames := MetricColumns()
	cols := make([]string, 0, len(productColumns)+len(metricNames)+len(timestampColumns))
	cols = append(cols, productColumns...)
	cols = append(cols, metricNames...)
	cols = append(cols, timestampColumns...)

	q := b.sb.Insert(ProductTable).Columns(cols...)
	for _, p := range products {
		metrics, err := metricValues(p.Metrics)
		if err != nil {
			return "", nil, fmt.Errorf("product %s: %w", p.Slug, err)
		}
		row := make([]any, 0, len(cols))
		row = append(row,
			p.ID, p.UserID, p.Name, p.Slug, p.URL, p.Tagline, p.Description, p.LogoURL,
			p.Niche, p.ApprovedDate, string(p.Status), p.IsFeatured, p.IsVerified, p.EnrichmentStatus,
		)
		row = append(row, metrics...)
		row = append(row, p.SubmittedAt, p.CreatedAt, p.UpdatedAt)
		q = q.Values(row...)
	}
	return q.Suffix("RETURNING id, slug, COALESCE(niche, '')").ToSql()
}

// UpdateProduct renders the metrics-only update of one product.
func (b Builder) UpdateProduct(id string, u catalog.ProductUpdate) (string, []any, error) {
	values, err := metricValues(u.Metrics)
	if err != nil {
		return "", nil, err
	}
	set := make(map[string]any, len(values)+1)
	for i, name := range MetricColumns() {
		set[name] = values[i]
	}
	set["updated_at"] = u.UpdatedAt
	return b.sb.
		Update(ProductTable).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// LinkCategories renders a conflict-ignoring insert of category links.
func (b Builder) LinkCategories(links []catalog.CategoryLink) (string, []any, error) {
	if len(links) == 0 {
		return "", nil, fmt.Errorf("no links to insert")
	}
	q := b.sb.Insert(ProductCategoryTable).Columns("product_id", "category_id")
	for _, l := range links {
		q = q.Values(l.ProductID, l.CategoryID)
	}
	return q.Suffix("ON CONFLICT DO NOTHING").ToSql()
}

// Stats renders the catalog coverage count query.
func (b Builder) Stats() (string, []any, error) {
	return b.sb.
		Select(
			"COUNT(*)",
			"COUNT(ahrefs_organic_traffic)",
			"COUNT(semrush_total_traffic)",
			"COUNT(language)",
		).
		From(ProductTable).
		ToSql()
}

// NicheCounts groups live products by niche, skipping NULL and empty niches.
func (b Builder) NicheCounts() (string, []any, error) {
	return b.sb.
		Select("niche", "COUNT(*)").
		From(ProductTable).
		Where(sq.Eq{"status": string(site.StatusLive)}).
		Where(sq.NotEq{"niche": ""}).
		GroupBy("niche").
		OrderBy("COUNT(*) DESC", "niche").
		ToSql()
}

// FindLiveProductsByNiche selects id, slug and niche of a niche's live products.
func (b Builder) FindLiveProductsByNiche(niche string) (string, []any, error) {
	return b.sb.
		Select("id", "slug", "COALESCE(niche, '')").
		From(ProductTable).
		Where(sq.Eq{"niche": niche, "status": string(site.StatusLive)}).
		OrderBy("slug").
		ToSql()
}

// FindLinkedProductIDs selects the product ids already linked to categoryID.
func (b Builder) FindLinkedProductIDs(categoryID string, productIDs []string) (string, []any, error) {
	return b.sb.
		Select("product_id").
		From(ProductCategoryTable).
		Where(sq.Eq{"category_id": categoryID, "product_id": productIDs}).
		OrderBy("product_id").
		ToSql()
}

// MetricColumns lists the columns written by both inserts and updates, in
// the order metricValues produces them.
func MetricColumns() []string {
	return []string{
		"da", "dr", "spam_score", "google_news", "max_links", "required_content_size",
		"ahrefs_organic_traffic", "referral_domains", "semrush_as", "semrush_total_traffic",
		"similarweb_traffic_scraper", "language", "completion_rate", "avg_lifetime_of_links",
		"turnaround_time", "sample_urls", "link_type", "price_range",
		"content_placement_price", "writing_placement_price", "special_topic_price",
	}
}

func metricValues(m catalog.Metrics) ([]any, error) {
	samples := m.SampleURLs
	if samples == nil {
		samples = []string{}
	}
	encoded, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("encode sample urls: %w", err)
	}
	return []any{
		m.DA, m.DR, m.SpamScore, m.GoogleNews, m.MaxLinks, m.RequiredContentSize,
		m.AhrefsOrganicTraffic, m.ReferralDomains, m.SemrushAS, m.SemrushTotalTraffic,
		m.SimilarwebTraffic, m.Language, m.CompletionRate, m.AvgLifetimeOfLinks,
		m.TurnaroundTime, string(encoded), m.LinkType, m.PriceRange,
		m.ContentPlacementPrice, m.WritingPlacementPrice, m.SpecialTopicPrice,
	}, nil
}
