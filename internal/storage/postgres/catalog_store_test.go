package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *CatalogStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	store, err := NewCatalogStoreWithPool(mock)
	require.NoError(t, err)
	return mock, store
}

func TestNewCatalogStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewCatalogStore(context.Background(), Config{})
	require.Error(t, err)
	_, err = NewCatalogStoreWithPool(nil)
	require.Error(t, err)
}

func TestFindCategoryBySlug(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, slug, COALESCE\(icon, ''\), display_order, is_active FROM categories WHERE slug = \$1`).
		WithArgs("guest-posts").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "icon", "display_order", "is_active"}).
			AddRow("cat-1", "Guest Posts", "guest-posts", "FileText", 0, true))
	mock.ExpectQuery(`FROM categories WHERE slug = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	c, err := store.FindCategoryBySlug(context.Background(), "guest-posts")
	require.NoError(t, err)
	require.Equal(t, catalog.Category{ID: "cat-1", Name: "Guest Posts", Slug: "guest-posts", Icon: "FileText", IsActive: true}, c)

	_, err = store.FindCategoryBySlug(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategory(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	c := catalog.Category{ID: "cat-1", Name: "Guest Posts", Slug: "guest-posts", Icon: "FileText", IsActive: true, CreatedAt: now}
	mock.ExpectExec(`INSERT INTO categories \(id,name,slug,icon,display_order,is_active,created_at\)`).
		WithArgs("cat-1", "Guest Posts", "guest-posts", "FileText", 0, true, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := store.CreateCategory(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, c, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOwnerByEmail(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, email FROM "user" WHERE email = \$1`).
		WithArgs("system@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email"}).AddRow("u-1", "system@example.com"))
	mock.ExpectQuery(`FROM "user"`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`FROM "user"`).
		WithArgs("broken@example.com").
		WillReturnError(errors.New("connection reset"))

	o, err := store.FindOwnerByEmail(context.Background(), "system@example.com")
	require.NoError(t, err)
	require.Equal(t, "u-1", o.ID)

	_, err = store.FindOwnerByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = store.FindOwnerByEmail(context.Background(), "broken@example.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProductsBySlugs(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, slug, COALESCE\(niche, ''\) FROM products WHERE slug IN \(\$1,\$2\) ORDER BY slug`).
		WithArgs("acom", "bcom").
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "niche"}).AddRow("p-1", "acom", "News"))

	got, err := store.FindProductsBySlugs(context.Background(), []string{"acom", "bcom"})
	require.NoError(t, err)
	require.Equal(t, []catalog.ExistingProduct{{ID: "p-1", Slug: "acom", Niche: "News"}}, got)

	got, err = store.FindProductsBySlugs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductsReturnsRows(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO products \(id,user_id,name,slug.*RETURNING id, slug, COALESCE\(niche, ''\)`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "niche"}).
			AddRow("p-1", "acom", "General").
			AddRow("p-2", "bcom", "News"))

	got, err := store.InsertProducts(context.Background(), []catalog.Product{
		{ID: "p-1", Slug: "acom", Niche: "General"},
		{ID: "p-2", Slug: "bcom", Niche: "News"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "p-2", got[1].ID)

	mock.ExpectQuery(`INSERT INTO products`).WillReturnError(errors.New("duplicate key value"))
	_, err = store.InsertProducts(context.Background(), []catalog.Product{{ID: "p-3", Slug: "acom"}})
	require.ErrorContains(t, err, "insert products")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec(`UPDATE products SET .* WHERE id = \$\d+`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.UpdateProduct(context.Background(), "p-1", catalog.ProductUpdate{}))
	require.ErrorIs(t, store.UpdateProduct(context.Background(), "ghost", catalog.ProductUpdate{}), catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkCategoriesIgnoresConflicts(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO product_categories \(product_id,category_id\) VALUES \(\$1,\$2\),\(\$3,\$4\) ON CONFLICT DO NOTHING`).
		WithArgs("p-1", "cat-1", "p-2", "cat-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.LinkCategories(context.Background(), []catalog.CategoryLink{
		{ProductID: "p-1", CategoryID: "cat-1"},
		{ProductID: "p-2", CategoryID: "cat-1"},
	})
	require.NoError(t, err)
	require.NoError(t, store.LinkCategories(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(ahrefs_organic_traffic\), COUNT\(semrush_total_traffic\), COUNT\(language\) FROM products`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "ahrefs", "semrush", "language"}).
			AddRow(int64(10), int64(7), int64(5), int64(9)))

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, catalog.Stats{Total: 10, WithAhrefsTraffic: 7, WithSemrushTraffic: 5, WithLanguage: 9}, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNicheQueries(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT niche, COUNT\(\*\) FROM products WHERE status = \$1 AND niche <> \$2 GROUP BY niche`).
		WithArgs("live", "").
		WillReturnRows(pgxmock.NewRows([]string{"niche", "count"}).
			AddRow("Technology", int64(7)).
			AddRow("News", int64(2)))
	mock.ExpectQuery(`FROM products WHERE niche = \$1 AND status = \$2 ORDER BY slug`).
		WithArgs("News", "live").
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "niche"}).
			AddRow("p-1", "acom", "News").
			AddRow("p-2", "bcom", "News"))
	mock.ExpectQuery(`SELECT product_id FROM product_categories WHERE category_id = \$1 AND product_id IN \(\$2,\$3\)`).
		WithArgs("cat-1", "p-1", "p-2").
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow("p-2"))

	counts, err := store.NicheCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []catalog.NicheCount{{Niche: "Technology", Count: 7}, {Niche: "News", Count: 2}}, counts)

	products, err := store.FindLiveProductsByNiche(context.Background(), "News")
	require.NoError(t, err)
	require.Len(t, products, 2)

	linked, err := store.FindLinkedProductIDs(context.Background(), "cat-1", []string{"p-1", "p-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"p-2"}, linked)

	linked, err = store.FindLinkedProductIDs(context.Background(), "cat-1", nil)
	require.NoError(t, err)
	require.Empty(t, linked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategories(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec(`INSERT INTO categories \(id,name,slug,icon,display_order,is_active,created_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7\),\(\$8`).
		WithArgs("c-1", "News", "news", "Newspaper", 5, true, now, "c-2", "Health", "health", "Heart", 6, true, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`INSERT INTO categories`).WillReturnError(errors.New("duplicate key value"))

	err := store.CreateCategories(context.Background(), []catalog.Category{
		{ID: "c-1", Name: "News", Slug: "news", Icon: "Newspaper", DisplayOrder: 5, IsActive: true, CreatedAt: now},
		{ID: "c-2", Name: "Health", Slug: "health", Icon: "Heart", DisplayOrder: 6, IsActive: true, CreatedAt: now},
	})
	require.NoError(t, err)
	require.NoError(t, store.CreateCategories(context.Background(), nil))

	err = store.CreateCategories(context.Background(), []catalog.Category{{ID: "c-3", Slug: "news", CreatedAt: now}})
	require.ErrorContains(t, err, "insert categories")
	require.NoError(t, mock.ExpectationsWereMet())
}
