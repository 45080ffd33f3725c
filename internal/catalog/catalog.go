// Package catalog declares the product catalog records written by the import
// pipeline and the Store interface it needs from a persistence backend.
// Implementations live under internal/storage; this package must not import
// database drivers.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// EnrichmentPending is the enrichment status of freshly imported products.
const EnrichmentPending = "pending"

// Category models a row of the categories table.
type Category struct {
	ID           string
	Name         string
	Slug         string
	Icon         string
	DisplayOrder int
	IsActive     bool
	CreatedAt    time.Time
}

// Owner is the user that owns system-created products.
type Owner struct {
	ID    string
	Email string
}

// Metrics holds the marketplace metrics and pricing shared by inserts and
// updates. Nil pointers are stored as NULL.
type Metrics struct {
	DA                    *int
	DR                    *int
	SpamScore             *int
	GoogleNews            bool
	MaxLinks              *int
	RequiredContentSize   *int
	AhrefsOrganicTraffic  *int
	ReferralDomains       *int
	SemrushAS             *int
	SemrushTotalTraffic   *int
	SimilarwebTraffic     *int
	Language              *string
	CompletionRate        *string
	AvgLifetimeOfLinks    *string
	TurnaroundTime        *string
	SampleURLs            []string
	LinkType              string
	PriceRange            string
	ContentPlacementPrice *string
	WritingPlacementPrice *string
	SpecialTopicPrice     *string
}

// Product is a full insert record for a newly imported domain.
type Product struct {
	ID               string
	UserID           string
	Name             string
	Slug             string
	URL              string
	Tagline          string
	Description      string
	LogoURL          string
	Niche            string
	ApprovedDate     *string
	Status           site.Status
	IsFeatured       bool
	IsVerified       bool
	EnrichmentStatus string
	Metrics
	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductUpdate is the partial update applied to an existing product. It
// carries metrics and pricing only; name, niche, status and category links
// are never part of it.
type ProductUpdate struct {
	Metrics
	UpdatedAt time.Time
}

// ExistingProduct identifies a stored product by id and slug.
type ExistingProduct struct {
	ID    string
	Slug  string
	Niche string
}

// CategoryLink joins a product to a category.
type CategoryLink struct {
	ProductID  string
	CategoryID string
}

// NicheCount is how many live products share a niche.
type NicheCount struct {
	Niche string
	Count int64
}

// Stats counts how much scraper data the catalog carries.
type Stats struct {
	Total              int64
	WithAhrefsTraffic  int64
	WithSemrushTraffic int64
	WithLanguage       int64
}

// Store is the persistence surface the import pipeline depends on. Each call
// is atomic on its own; callers get no transaction spanning several calls.
type Store interface {
	// FindCategoryBySlug returns ErrNotFound when no category has the slug.
	FindCategoryBySlug(ctx context.Context, slug string) (Category, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)
	// FindOwnerByEmail returns ErrNotFound when no user has the email.
	FindOwnerByEmail(ctx context.Context, email string) (Owner, error)
	FindProductsBySlugs(ctx context.Context, slugs []string) ([]ExistingProduct, error)
	// InsertProducts inserts every product or none and returns the stored rows.
	InsertProducts(ctx context.Context, products []Product) ([]ExistingProduct, error)
	UpdateProduct(ctx context.Context, id string, update ProductUpdate) error
	// LinkCategories ignores links that already exist.
	LinkCategories(ctx context.Context, links []CategoryLink) error
	Stats(ctx context.Context) (Stats, error)

	// NicheCounts groups live products with a non-empty niche, most common
	// niche first and ties by name.
	NicheCounts(ctx context.Context) ([]NicheCount, error)
	// CreateCategories inserts every category or none.
	CreateCategories(ctx context.Context, categories []Category) error
	// FindLiveProductsByNiche returns the live products of a niche ordered by slug.
	FindLiveProductsByNiche(ctx context.Context, niche string) ([]ExistingProduct, error)
	// FindLinkedProductIDs returns which of productIDs already link to categoryID.
	FindLinkedProductIDs(ctx context.Context, categoryID string, productIDs []string) ([]string, error)

	Close() error
}
