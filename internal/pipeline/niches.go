package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/fieldmap"
)

// Niche categorization defaults.
const (
	DefaultNicheMinProducts   = 5
	DefaultNicheLinkBatchSize = 100
)

// NicheOptions controls a niche categorization run.
type NicheOptions struct {
	DryRun bool
	// MinProducts is the live product count a niche needs before a category
	// is created for it. Niches whose category already exists are linked
	// regardless.
	MinProducts   int
	LinkBatchSize int
}

// DefaultNicheOptions returns the options of a non-dry run.
func DefaultNicheOptions() NicheOptions {
	return NicheOptions{MinProducts: DefaultNicheMinProducts, LinkBatchSize: DefaultNicheLinkBatchSize}
}

func (o NicheOptions) validate() error {
	if o.MinProducts <= 0 {
		return fmt.Errorf("niche min products must be > 0, got %d", o.MinProducts)
	}
	if o.LinkBatchSize <= 0 {
		return fmt.Errorf("niche link batch size must be > 0, got %d", o.LinkBatchSize)
	}
	return nil
}

// NicheOutcome is what one niche's pass did.
type NicheOutcome struct {
	Niche string
	Slug  string
	Live  int64
	// CategoryID is empty when the niche has no category; in a dry run that
	// includes categories that would be created.
	CategoryID string
	Created    bool
	// Linked counts new links, or links that would be written in a dry run.
	Linked        int
	AlreadyLinked int
}

// NicheResult summarizes a niche categorization run.
type NicheResult struct {
	DryRun            bool
	Niches            []NicheOutcome
	CategoriesCreated int
	Linked            int
}

// NicheCategorizer gives every sizeable niche of live products its own
// category and links the niche's live products to it.
type NicheCategorizer struct {
	deps Deps
}

// NewNicheCategorizer validates deps and returns a NicheCategorizer.
func NewNicheCategorizer(deps Deps) (*NicheCategorizer, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &NicheCategorizer{deps: deps.withDefaults()}, nil
}

// Categorize creates missing niche categories, then links live products to
// the category of their niche. Links that already exist are left alone, so
// repeated runs converge. A dry run only reads.
func (n *NicheCategorizer) Categorize(ctx context.Context, opts NicheOptions) (NicheResult, error) {
	if err := opts.validate(); err != nil {
		return NicheResult{}, err
	}
	d := n.deps
	counts, err := d.Store.NicheCounts(ctx)
	if err != nil {
		return NicheResult{}, fmt.Errorf("niche counts: %w", err)
	}
	for _, c := range counts {
		d.Logger.Info("niche", zap.String("niche", c.Niche), zap.Int64("live", c.Count))
	}

	res := NicheResult{DryRun: opts.DryRun}
	var pending []catalog.Category
	seen := make(map[string]struct{}, len(counts))
	for _, c := range counts {
		slug := fieldmap.Slug(c.Niche)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			d.Logger.Warn("niche shares a category slug", zap.String("niche", c.Niche), zap.String("slug", slug))
			continue
		}
		seen[slug] = struct{}{}

		out := NicheOutcome{Niche: c.Niche, Slug: slug, Live: c.Count}
		existing, err := d.Store.FindCategoryBySlug(ctx, slug)
		switch {
		case err == nil:
			out.CategoryID = existing.ID
		case errors.Is(err, catalog.ErrNotFound):
			if c.Count >= int64(opts.MinProducts) {
				category, err := n.newCategory(c.Niche, slug)
				if err != nil {
					return NicheResult{}, err
				}
				pending = append(pending, category)
				out.Created = true
				if !opts.DryRun {
					out.CategoryID = category.ID
				}
			}
		default:
			return NicheResult{}, fmt.Errorf("find category %q: %w", slug, err)
		}
		res.Niches = append(res.Niches, out)
	}

	if len(pending) > 0 {
		d.Logger.Info("niche categories to create", zap.Int("count", len(pending)), zap.Bool("dry_run", opts.DryRun))
	}
	if !opts.DryRun && len(pending) > 0 {
		if err := d.Store.CreateCategories(ctx, pending); err != nil {
			return NicheResult{}, fmt.Errorf("create niche categories: %w", err)
		}
	}
	res.CategoriesCreated = len(pending)

	for i := range res.Niches {
		out := &res.Niches[i]
		if out.CategoryID == "" {
			d.Logger.Info("skipping niche without category", zap.String("niche", out.Niche))
			continue
		}
		if err := n.link(ctx, out, opts); err != nil {
			return NicheResult{}, err
		}
		res.Linked += out.Linked
	}
	return res, nil
}

func (n *NicheCategorizer) newCategory(niche, slug string) (catalog.Category, error) {
	id, err := n.deps.IDs.NewID()
	if err != nil {
		return catalog.Category{}, fmt.Errorf("new category id: %w", err)
	}
	look := fieldmap.CategoryFor(niche)
	return catalog.Category{
		ID:           id,
		Name:         niche,
		Slug:         slug,
		Icon:         look.Icon,
		DisplayOrder: look.DisplayOrder,
		IsActive:     true,
		CreatedAt:    n.deps.Clock.Now(),
	}, nil
}

func (n *NicheCategorizer) link(ctx context.Context, out *NicheOutcome, opts NicheOptions) error {
	d := n.deps
	products, err := d.Store.FindLiveProductsByNiche(ctx, out.Niche)
	if err != nil {
		return fmt.Errorf("find %s products: %w", out.Niche, err)
	}
	// Niche equality in SQL follows the column collation; keep exact matches.
	ids := make([]string, 0, len(products))
	for _, p := range products {
		if p.Niche == out.Niche {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		d.Logger.Info("skipping niche without products", zap.String("niche", out.Niche))
		return nil
	}
	linked, err := d.Store.FindLinkedProductIDs(ctx, out.CategoryID, ids)
	if err != nil {
		return fmt.Errorf("find %s links: %w", out.Niche, err)
	}
	already := make(map[string]struct{}, len(linked))
	for _, id := range linked {
		already[id] = struct{}{}
	}
	links := make([]catalog.CategoryLink, 0, len(ids)-len(already))
	for _, id := range ids {
		if _, ok := already[id]; !ok {
			links = append(links, catalog.CategoryLink{ProductID: id, CategoryID: out.CategoryID})
		}
	}
	out.AlreadyLinked = len(already)

	if opts.DryRun {
		out.Linked = len(links)
		d.Logger.Info("would link niche products",
			zap.String("niche", out.Niche), zap.Int("count", len(links)))
		return nil
	}
	for _, w := range batches(len(links), opts.LinkBatchSize) {
		if err := d.Store.LinkCategories(ctx, links[w[0]:w[1]]); err != nil {
			return fmt.Errorf("link %s products: %w", out.Niche, err)
		}
		out.Linked += w[1] - w[0]
	}
	d.Logger.Info("linked niche products",
		zap.String("niche", out.Niche), zap.Int("linked", out.Linked), zap.Int("already_linked", out.AlreadyLinked))
	return nil
}
