package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

func openTestStore(t *testing.T) *CatalogStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestCatalogRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.Migrate(ctx))

	_, err := store.FindOwnerByEmail(ctx, "system@example.com")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, store.AddOwner(ctx, catalog.Owner{ID: "u-1", Email: "system@example.com"}))
	require.NoError(t, store.AddOwner(ctx, catalog.Owner{ID: "u-2", Email: "system@example.com"}))
	owner, err := store.FindOwnerByEmail(ctx, "system@example.com")
	require.NoError(t, err)
	require.Equal(t, "u-1", owner.ID)

	_, err = store.FindCategoryBySlug(ctx, "guest-posts")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.CreateCategory(ctx, catalog.Category{
		ID: "cat-1", Name: "Guest Posts", Slug: "guest-posts", Icon: "FileText", IsActive: true, CreatedAt: now,
	})
	require.NoError(t, err)
	cat, err := store.FindCategoryBySlug(ctx, "guest-posts")
	require.NoError(t, err)
	require.Equal(t, "cat-1", cat.ID)
	require.True(t, cat.IsActive)
	require.Equal(t, "FileText", cat.Icon)

	products := []catalog.Product{
		{
			ID: "p-1", UserID: "u-1", Name: "A", Slug: "acom", URL: "https://a.com", Niche: "News",
			Status: site.StatusLive, EnrichmentStatus: catalog.EnrichmentPending,
			Metrics: catalog.Metrics{
				DR: intPtr(50), AhrefsOrganicTraffic: intPtr(1200), Language: strPtr("English"),
				SampleURLs: []string{"https://a.com/1"}, LinkType: "dofollow", PriceRange: "$10",
				ContentPlacementPrice: strPtr("10"),
			},
			SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "p-2", UserID: "u-1", Name: "B", Slug: "bcom", URL: "https://b.com", Niche: "General",
			Status: site.StatusPendingReview, EnrichmentStatus: catalog.EnrichmentPending,
			SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
		},
	}
	inserted, err := store.InsertProducts(ctx, products)
	require.NoError(t, err)
	require.ElementsMatch(t, []catalog.ExistingProduct{
		{ID: "p-1", Slug: "acom", Niche: "News"},
		{ID: "p-2", Slug: "bcom", Niche: "General"},
	}, inserted)

	_, err = store.InsertProducts(ctx, []catalog.Product{
		{ID: "p-3", UserID: "u-1", Name: "C", Slug: "ccom", URL: "https://c.com", Status: site.StatusLive},
		{ID: "p-4", UserID: "u-1", Name: "A2", Slug: "acom", URL: "https://a.com", Status: site.StatusLive},
	})
	require.Error(t, err)

	found, err := store.FindProductsBySlugs(ctx, []string{"ccom", "bcom", "acom"})
	require.NoError(t, err)
	require.Equal(t, []catalog.ExistingProduct{
		{ID: "p-1", Slug: "acom", Niche: "News"},
		{ID: "p-2", Slug: "bcom", Niche: "General"},
	}, found)

	links := []catalog.CategoryLink{{ProductID: "p-1", CategoryID: "cat-1"}, {ProductID: "p-2", CategoryID: "cat-1"}}
	require.NoError(t, store.LinkCategories(ctx, links))
	require.NoError(t, store.LinkCategories(ctx, links))

	later := now.Add(time.Hour)
	require.NoError(t, store.UpdateProduct(ctx, "p-2", catalog.ProductUpdate{
		Metrics:   catalog.Metrics{SemrushTotalTraffic: intPtr(300), LinkType: "nofollow", PriceRange: "Contact for pricing"},
		UpdatedAt: later,
	}))
	require.ErrorIs(t, store.UpdateProduct(ctx, "ghost", catalog.ProductUpdate{UpdatedAt: later}), catalog.ErrNotFound)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, catalog.Stats{Total: 2, WithAhrefsTraffic: 1, WithSemrushTraffic: 1, WithLanguage: 1}, st)
}

func TestNicheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.AddOwner(ctx, catalog.Owner{ID: "u-1", Email: "system@example.com"}))

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	product := func(id, slug, niche string, status site.Status) catalog.Product {
		return catalog.Product{
			ID: id, UserID: "u-1", Name: slug, Slug: slug, URL: "https://" + slug, Niche: niche,
			Status: status, EnrichmentStatus: catalog.EnrichmentPending,
			SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
		}
	}
	_, err := store.InsertProducts(ctx, []catalog.Product{
		product("p-1", "bcom", "News", site.StatusLive),
		product("p-2", "acom", "News", site.StatusLive),
		product("p-3", "ccom", "Finance", site.StatusLive),
		product("p-4", "dcom", "News", site.StatusPendingReview),
		product("p-5", "ecom", "", site.StatusLive),
	})
	require.NoError(t, err)

	counts, err := store.NicheCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []catalog.NicheCount{{Niche: "News", Count: 2}, {Niche: "Finance", Count: 1}}, counts)

	news, err := store.FindLiveProductsByNiche(ctx, "News")
	require.NoError(t, err)
	require.Equal(t, []catalog.ExistingProduct{
		{ID: "p-2", Slug: "acom", Niche: "News"},
		{ID: "p-1", Slug: "bcom", Niche: "News"},
	}, news)

	require.NoError(t, store.CreateCategories(ctx, nil))
	require.NoError(t, store.CreateCategories(ctx, []catalog.Category{
		{ID: "cat-1", Name: "News", Slug: "news", Icon: "Newspaper", DisplayOrder: 5, IsActive: true, CreatedAt: now},
		{ID: "cat-2", Name: "Finance", Slug: "finance", Icon: "DollarSign", DisplayOrder: 9, IsActive: true, CreatedAt: now},
	}))
	cat, err := store.FindCategoryBySlug(ctx, "news")
	require.NoError(t, err)
	require.Equal(t, "Newspaper", cat.Icon)
	require.Equal(t, 5, cat.DisplayOrder)

	require.NoError(t, store.LinkCategories(ctx, []catalog.CategoryLink{{ProductID: "p-1", CategoryID: "cat-1"}}))
	linked, err := store.FindLinkedProductIDs(ctx, "cat-1", []string{"p-1", "p-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"p-1"}, linked)
	linked, err = store.FindLinkedProductIDs(ctx, "cat-1", nil)
	require.NoError(t, err)
	require.Empty(t, linked)
}
