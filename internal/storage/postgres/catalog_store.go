// Package postgres provides the Postgres-backed catalog store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/storage/catalogsql"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// CatalogStore implements catalog.Store on Postgres.
type CatalogStore struct {
	pool Pool
	sql  catalogsql.Builder
}

var _ catalog.Store = (*CatalogStore)(nil)

// NewCatalogStore connects a pool using cfg.
func NewCatalogStore(ctx context.Context, cfg Config) (*CatalogStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &CatalogStore{pool: pool, sql: catalogsql.New(sq.Dollar)}, nil
}

// NewCatalogStoreWithPool constructs a store from an existing pool.
func NewCatalogStoreWithPool(pool Pool) (*CatalogStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CatalogStore{pool: pool, sql: catalogsql.New(sq.Dollar)}, nil
}

// Close releases the pool.
func (s *CatalogStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// FindCategoryBySlug returns catalog.ErrNotFound when no row matches.
func (s *CatalogStore) FindCategoryBySlug(ctx context.Context, slug string) (catalog.Category, error) {
	query, args, err := s.sql.FindCategoryBySlug(slug)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("build category query: %w", err)
	}
	var c catalog.Category
	err = s.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.DisplayOrder, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
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
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
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
	err = s.pool.QueryRow(ctx, query, args...).Scan(&o.ID, &o.Email)
	if errors.Is(err, pgx.ErrNoRows) {
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
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
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
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
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
	err = s.pool.QueryRow(ctx, query, args...).
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
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("niche counts: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.NicheCount, error) {
		var c catalog.NicheCount
		err := row.Scan(&c.Niche, &c.Count)
		return c, err
	})
	if err != nil {
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
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
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
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find linked products: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("find linked products: %w", err)
	}
	return ids, nil
}

func (s *CatalogStore) queryProducts(ctx context.Context, op, query string, args []any) ([]catalog.ExistingProduct, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.ExistingProduct, error) {
		var p catalog.ExistingProduct
		err := row.Scan(&p.ID, &p.Slug, &p.Niche)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
