// Package memory provides in-process implementations used for dry runs,
// development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// CatalogStore keeps the catalog in maps guarded by a single lock.
type CatalogStore struct {
	mu         sync.RWMutex
	categories map[string]catalog.Category
	owners     map[string]catalog.Owner
	products   map[string]catalog.Product
	updates    map[string]int
	links      map[catalog.CategoryLink]struct{}
}

// NewCatalogStore constructs an empty CatalogStore.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		categories: make(map[string]catalog.Category),
		owners:     make(map[string]catalog.Owner),
		products:   make(map[string]catalog.Product),
		updates:    make(map[string]int),
		links:      make(map[catalog.CategoryLink]struct{}),
	}
}

// AddOwner registers a user that products can be attributed to.
func (s *CatalogStore) AddOwner(owner catalog.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.Email] = owner
}

// FindCategoryBySlug returns the category with the given slug.
func (s *CatalogStore) FindCategoryBySlug(_ context.Context, slug string) (catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[slug]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, nil
}

// CreateCategory stores a new category; the slug must be unused.
func (s *CatalogStore) CreateCategory(_ context.Context, category catalog.Category) (catalog.Category, error) {
	if category.ID == "" {
		return catalog.Category{}, errors.New("category id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[category.Slug]; exists {
		return catalog.Category{}, fmt.Errorf("category %q already exists", category.Slug)
	}
	s.categories[category.Slug] = category
	return category, nil
}

// FindOwnerByEmail returns the user with the given email.
func (s *CatalogStore) FindOwnerByEmail(_ context.Context, email string) (catalog.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[email]
	if !ok {
		return catalog.Owner{}, catalog.ErrNotFound
	}
	return o, nil
}

// FindProductsBySlugs returns the stored products among slugs, ordered by slug.
func (s *CatalogStore) FindProductsBySlugs(_ context.Context, slugs []string) ([]catalog.ExistingProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.ExistingProduct, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		if p, ok := s.products[slug]; ok {
			out = append(out, existing(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// InsertProducts stores every product or none. A slug or id collision with a
// stored product, or within the batch, rejects the whole batch.
func (s *CatalogStore) InsertProducts(_ context.Context, products []catalog.Product) ([]catalog.ExistingProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slugs := make(map[string]struct{}, len(products))
	ids := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q has no id", p.Slug)
		}
		if _, exists := s.products[p.Slug]; exists {
			return nil, fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		if _, dup := slugs[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		if _, dup := ids[p.ID]; dup || s.hasID(p.ID) {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		slugs[p.Slug] = struct{}{}
		ids[p.ID] = struct{}{}
	}
	out := make([]catalog.ExistingProduct, 0, len(products))
	for _, p := range products {
		p.SampleURLs = append([]string{}, p.SampleURLs...)
		s.products[p.Slug] = p
		out = append(out, existing(p))
	}
	return out, nil
}

// UpdateProduct overwrites the metrics of the product with id.
func (s *CatalogStore) UpdateProduct(_ context.Context, id string, update catalog.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slug, p := range s.products {
		if p.ID != id {
			continue
		}
		p.Metrics = update.Metrics
		p.SampleURLs = append([]string{}, update.SampleURLs...)
		p.UpdatedAt = update.UpdatedAt
		s.products[slug] = p
		s.updates[id]++
		return nil
	}
	return catalog.ErrNotFound
}

// LinkCategories records links, ignoring ones already present.
func (s *CatalogStore) LinkCategories(_ context.Context, links []catalog.CategoryLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range links {
		if !s.hasID(l.ProductID) {
			return fmt.Errorf("link references unknown product %q", l.ProductID)
		}
		s.links[l] = struct{}{}
	}
	return nil
}

// Stats counts the stored products and how many carry scraper metrics.
func (s *CatalogStore) Stats(_ context.Context) (catalog.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st catalog.Stats
	for _, p := range s.products {
		st.Total++
		if p.AhrefsOrganicTraffic != nil {
			st.WithAhrefsTraffic++
		}
		if p.SemrushTotalTraffic != nil {
			st.WithSemrushTraffic++
		}
		if p.Language != nil {
			st.WithLanguage++
		}
	}
	return st, nil
}

// NicheCounts groups live products with a niche, most common first and ties
// by name.
func (s *CatalogStore) NicheCounts(_ context.Context) ([]catalog.NicheCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, p := range s.products {
		if p.Status == site.StatusLive && p.Niche != "" {
			counts[p.Niche]++
		}
	}
	out := make([]catalog.NicheCount, 0, len(counts))
	for niche, n := range counts {
		out = append(out, catalog.NicheCount{Niche: niche, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Niche < out[j].Niche
	})
	return out, nil
}

// CreateCategories stores every category or none.
func (s *CatalogStore) CreateCategories(_ context.Context, categories []catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slugs := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c.ID == "" {
			return fmt.Errorf("category %q has no id", c.Slug)
		}
		if _, exists := s.categories[c.Slug]; exists {
			return fmt.Errorf("category %q already exists", c.Slug)
		}
		if _, dup := slugs[c.Slug]; dup {
			return fmt.Errorf("duplicate category slug %q", c.Slug)
		}
		slugs[c.Slug] = struct{}{}
	}
	for _, c := range categories {
		s.categories[c.Slug] = c
	}
	return nil
}

// FindLiveProductsByNiche returns the live products of niche ordered by slug.
func (s *CatalogStore) FindLiveProductsByNiche(_ context.Context, niche string) ([]catalog.ExistingProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.ExistingProduct
	for _, p := range s.products {
		if p.Status == site.StatusLive && p.Niche == niche {
			out = append(out, existing(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// FindLinkedProductIDs returns the ids among productIDs already linked to
// categoryID, in input order.
func (s *CatalogStore) FindLinkedProductIDs(_ context.Context, categoryID string, productIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range productIDs {
		if _, ok := s.links[catalog.CategoryLink{ProductID: id, CategoryID: categoryID}]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *CatalogStore) Close() error {
	return nil
}

// Product returns a copy of the stored product with slug.
func (s *CatalogStore) Product(slug string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[slug]
	if ok {
		p.SampleURLs = append([]string{}, p.SampleURLs...)
	}
	return p, ok
}

// Products returns copies of every stored product ordered by slug.
func (s *CatalogStore) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		p.SampleURLs = append([]string{}, p.SampleURLs...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Links returns every stored category link.
func (s *CatalogStore) Links() []catalog.CategoryLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.CategoryLink, 0, len(s.links))
	for l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// Categories returns every stored category ordered by slug.
func (s *CatalogStore) Categories() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// UpdateCount reports how many times the product with id was updated.
func (s *CatalogStore) UpdateCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates[id]
}

func (s *CatalogStore) hasID(id string) bool {
	for _, p := range s.products {
		if p.ID == id {
			return true
		}
	}
	return false
}

func existing(p catalog.Product) catalog.ExistingProduct {
	return catalog.ExistingProduct{ID: p.ID, Slug: p.Slug, Niche: p.Niche}
}
