// Package sqlite provides a single-file catalog store for local runs,
// backed by the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/catalogsql"
)

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id    TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS categories (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	slug          TEXT NOT NULL UNIQUE,
	icon          TEXT,
	display_order INTEGER NOT NULL DEFAULT 0,
	is_active     INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id                         TEXT PRIMARY KEY,
	user_id                    TEXT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
	name                       TEXT NOT NULL,
	slug                       TEXT NOT NULL UNIQUE,
	url                        TEXT NOT NULL,
	tagline                    TEXT,
	description                TEXT,
	logo_url                   TEXT,
	niche                      TEXT,
	approved_date              TEXT,
	status                     TEXT NOT NULL,
	is_featured                INTEGER NOT NULL DEFAULT 0,
	is_verified                INTEGER NOT NULL DEFAULT 0,
	enrichment_status          TEXT DEFAULT 'pending',
	da                         INTEGER,
	dr                         INTEGER,
	spam_score                 INTEGER,
	google_news                INTEGER NOT NULL DEFAULT 0,
	max_links                  INTEGER,
	required_content_size      INTEGER,
	ahrefs_organic_traffic     INTEGER,
	referral_domains           INTEGER,
	semrush_as                 INTEGER,
	semrush_total_traffic      INTEGER,
	similarweb_traffic_scraper INTEGER,
	language                   TEXT,
	completion_rate            TEXT,
	avg_lifetime_of_links      TEXT,
	turnaround_time            TEXT,
	sample_urls                TEXT,
	link_type                  TEXT,
	price_range                TEXT,
	content_placement_price    TEXT,
	writing_placement_price    TEXT,
	special_topic_price        TEXT,
	submitted_at               TEXT NOT NULL,
	created_at                 TEXT NOT NULL,
	updated_at                 TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS product_categories (
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (product_id, category_id)
);
`

// CatalogStore implements catalog.Store on a SQLite database file.
type CatalogStore struct {
	db  *sql.DB
	sql catalogsql.Builder
}

var _ catalog.Store = (*CatalogStore)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*CatalogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db.dsn is required for sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; share one connection.
	db.SetMaxOpenConns(1)
	s := &CatalogStore{db: db, sql: catalogsql.New(sq.Question)}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the catalog tables when they are missing.
func (s *CatalogStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// AddOwner inserts a user row unless the email is already present.
func (s *CatalogStore) AddOwner(ctx context.Context, owner catalog.Owner) error {
	query, args, err := sq.Insert(catalogsql.UserTable).
		Columns("id", "email").
		Values(owner.ID, owner.Email).
		Suffix("ON CONFLICT(email) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build owner insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *CatalogStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// FindCategoryBySlug returns catalog.ErrNotFound when no row matches.
func (s *CatalogStore) FindCategoryBySlug(ctx context.Context, slug string) (catalog.Category, error) {
	query, args, err := s.sql.FindCategoryBySlug(slug)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("build category query: %w", err)
	}
	var c catalog.Category
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.DisplayOrder, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Category{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Category{}, fmt.Errorf("find category %s: %w", slug, err)
	}
	return c, nil
}

// CreateCategory inserts the category and returns it.
func (s *CatalogStore) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	query, args, err := s.sql.InsertCategory(c)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("build category insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return catalog.Category{}, fmt.Errorf("insert category %s: %w", c.Slug, err)
	}
	return c, nil
}

// FindOwnerByEmail returns catalog.ErrNotFound when no user matches.
func (s *CatalogStore) FindOwnerByEmail(ctx context.Context, email string) (catalog.Owner, error) {
	query, args, err := s.sql.FindOwnerByEmail(email)
	if err != nil {
		return catalog.Owner{}, fmt.Errorf("build owner query: %w", err)
	}
	var o catalog.Owner
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&o.ID, &o.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Owner{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Owner{}, fmt.Errorf("find owner: %w", err)
	}
	return o, nil
}

// FindProductsBySlugs returns the stored products whose slug is in slugs.
func (s *CatalogStore) FindProductsBySlugs(ctx context.Context, slugs []string) ([]catalog.ExistingProduct, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	query, args, err := s.sql.FindProductsBySlugs(slugs)
	if err != nil {
		return nil, fmt.Errorf("build product lookup: %w", err)
	}
	return s.queryProducts(ctx, "find products", query, args)
}

// InsertProducts inserts the batch in one statement.
func (s *CatalogStore) InsertProducts(ctx context.Context, products []catalog.Product) ([]catalog.ExistingProduct, error) {
	if len(products) == 0 {
		return nil, nil
	}
	query, args, err := s.sql.InsertProducts(products)
	if err != nil {
		return nil, fmt.Errorf("build product insert: %w", err)
	}
	return s.queryProducts(ctx, "insert products", query, args)
}

// UpdateProduct applies the metrics update to the product with id.
func (s *CatalogStore) UpdateProduct(ctx context.Context, id string, update catalog.ProductUpdate) error {
	query, args, err := s.sql.UpdateProduct(id, update)
	if err != nil {
		return fmt.Errorf("build product update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// LinkCategories inserts links, skipping ones that already exist.
func (s *CatalogStore) LinkCategories(ctx context.Context, links []catalog.CategoryLink) error {
	if len(links) == 0 {
		return nil
	}
	query, args, err := s.sql.LinkCategories(links)
	if err != nil {
		return fmt.Errorf("build category links: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link categories: %w", err)
	}
	return nil
}

// Stats counts products and scraper metric coverage.
func (s *CatalogStore) Stats(ctx context.Context) (catalog.Stats, error) {
	query, args, err := s.sql.Stats()
	if err != nil {
		return catalog.Stats{}, fmt.Errorf("build stats query: %w", err)
	}
	var st catalog.Stats
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&st.Total, &st.WithAhrefsTraffic, &st.WithSemrushTraffic, &st.WithLanguage)
	if err != nil {
		return catalog.Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return st, nil
}

// NicheCounts groups live products by niche.
func (s *CatalogStore) NicheCounts(ctx context.Context) ([]catalog.NicheCount, error) {
	query, args, err := s.sql.NicheCounts()
	if err != nil {
		return nil, fmt.Errorf("build niche counts: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("niche counts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []catalog.NicheCount
	for rows.Next() {
		var c catalog.NicheCount
		if err := rows.Scan(&c.Niche, &c.Count); err != nil {
			return nil, fmt.Errorf("niche counts: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("niche counts: %w", err)
	}
	return out, nil
}

// CreateCategories inserts the categories in one statement.
func (s *CatalogStore) CreateCategories(ctx context.Context, categories []catalog.Category) error {
	if len(categories) == 0 {
		return nil
	}
	query, args, err := s.sql.InsertCategories(categories)
	if err != nil {
		return fmt.Errorf("build categories insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}

// FindLiveProductsByNiche returns the live products of niche.
func (s *CatalogStore) FindLiveProductsByNiche(ctx context.Context, niche string) ([]catalog.ExistingProduct, error) {
	query, args, err := s.sql.FindLiveProductsByNiche(niche)
	if err != nil {
		return nil, fmt.Errorf("build niche products: %w", err)
	}
	return s.queryProducts(ctx, "find niche products", query, args)
}

// FindLinkedProductIDs returns which products already link to categoryID.
func (s *CatalogStore) FindLinkedProductIDs(ctx context.Context, categoryID string, productIDs []string) ([]string, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	query, args, err := s.sql.FindLinkedProductIDs(categoryID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("build linked products: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find linked products: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("find linked products: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find linked products: %w", err)
	}
	return ids, nil
}

func (s *CatalogStore) queryProducts(ctx context.Context, op, query string, args []any) ([]catalog.ExistingProduct, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()
	var out []catalog.ExistingProduct
	for rows.Next() {
		var p catalog.ExistingProduct
		if err := rows.Scan(&p.ID, &p.Slug, &p.Niche); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
