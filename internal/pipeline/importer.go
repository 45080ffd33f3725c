package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/fieldmap"
	"github.com/JakeFAU/guestpost-catalog/internal/progress"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// dryRunPreview is how many top-ranked sites a dry run logs.
const dryRunPreview = 10

// ImportResult summarizes an import run.
type ImportResult struct {
	RunID   string
	Success bool
	DryRun  bool
	// Total is the number of successful scrapes considered.
	Total int
	// Imported counts inserted products.
	Imported int
	// Skipped counts sites whose slug already existed or repeated within a batch.
	Skipped int
	// Failed counts every site of every failed batch.
	Failed       int
	LiveCount    int
	PendingCount int
	SourceDigest string
	StartedAt    time.Time
	FinishedAt   time.Time
	// Ranked holds the scored sites in rank order.
	Ranked []site.ScoredSite
}

// Importer creates catalog products for domains the catalog does not have
// yet. It never modifies existing products.
type Importer struct {
	deps Deps
}

// NewImporter validates deps and returns an Importer.
func NewImporter(deps Deps) (*Importer, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Importer{deps: deps.withDefaults()}, nil
}

// Import runs the import. A dry run ranks the source and returns without
// touching the store. Otherwise the system owner must exist and the default
// category is created when missing, both before the first batch.
func (im *Importer) Import(ctx context.Context, opts Options) (ImportResult, error) {
	if err := opts.validate(); err != nil {
		return ImportResult{}, err
	}
	d := im.deps
	prepared, err := Prepare(opts, d.Hasher)
	if err != nil {
		return ImportResult{}, err
	}
	logPrepared(d.Logger, opts.SourcePath, prepared)

	res := ImportResult{
		Success:      true,
		DryRun:       opts.DryRun,
		Total:        len(prepared.Sites),
		LiveCount:    prepared.Summary.Live,
		PendingCount: prepared.Summary.Pending,
		SourceDigest: prepared.Digest,
		StartedAt:    d.Clock.Now(),
		Ranked:       prepared.Sites,
	}
	if opts.DryRun {
		logPreview(d.Logger, prepared.Sites)
		res.FinishedAt = d.Clock.Now()
		return res, nil
	}

	r, err := newRun(d, progress.ModeImport)
	if err != nil {
		return ImportResult{}, err
	}
	res.RunID = uuid.UUID(r.id).String()
	res.StartedAt = r.started
	r.emit(progress.Event{Stage: progress.StageRunStart, Sites: res.Total})

	owner, err := resolveOwner(ctx, d)
	if err != nil {
		return ImportResult{}, r.fail(err)
	}
	category, err := resolveCategory(ctx, d)
	if err != nil {
		return ImportResult{}, r.fail(err)
	}

	d.Logger.Info("importing sites", zap.Int("sites", res.Total), zap.Int("batch_size", opts.BatchSize))
	for i, win := range batches(len(prepared.Sites), opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			res.Success = false
			res.FinishedAt = d.Clock.Now()
			return res, r.fail(fmt.Errorf("import canceled after %d batches: %w", i, err))
		}
		batch := prepared.Sites[win[0]:win[1]]
		num := i + 1
		began := d.Clock.Now()
		imported, skipped, err := im.importBatch(ctx, batch, owner, category)
		if err != nil {
			res.Failed += len(batch)
			d.Logger.Warn("import batch failed", zap.Int("batch", num), zap.Int("sites", len(batch)), zap.Error(err))
			r.emit(progress.Event{
				Stage:  progress.StageBatchFailed,
				Batch:  num,
				Sites:  len(batch),
				Failed: len(batch),
				Dur:    d.Clock.Now().Sub(began),
				Note:   err.Error(),
			})
			continue
		}
		res.Imported += imported
		res.Skipped += skipped
		d.Logger.Info("import batch done",
			zap.Int("batch", num),
			zap.Int("imported", imported),
			zap.Int("skipped", skipped),
			zap.Int("progress", res.Imported),
			zap.Int("total", res.Total),
		)
		r.emit(progress.Event{
			Stage:   progress.StageBatchDone,
			Batch:   num,
			Sites:   len(batch),
			Written: imported,
			Skipped: skipped,
			Dur:     d.Clock.Now().Sub(began),
		})
	}

	res.FinishedAt = d.Clock.Now()
	r.emit(progress.Event{
		Stage:   progress.StageRunDone,
		Sites:   res.Total,
		Written: res.Imported,
		Skipped: res.Skipped,
		Failed:  res.Failed,
		Dur:     res.FinishedAt.Sub(res.StartedAt),
	})
	d.Logger.Info("import complete",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// importBatch inserts the batch's new slugs and links them to category.
func (im *Importer) importBatch(
	ctx context.Context,
	batch []site.ScoredSite,
	owner catalog.Owner,
	category catalog.Category,
) (int, int, error) {
	d := im.deps
	kept, slugs, dupes := dedupe(batch)
	existing, err := d.Store.FindProductsBySlugs(ctx, slugs)
	if err != nil {
		return 0, 0, fmt.Errorf("find existing products: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.Slug] = struct{}{}
	}

	now := d.Clock.Now()
	fresh := make([]catalog.Product, 0, len(kept))
	for i, s := range kept {
		if _, ok := known[slugs[i]]; ok {
			continue
		}
		id, err := d.IDs.NewID()
		if err != nil {
			return 0, 0, fmt.Errorf("new product id: %w", err)
		}
		fresh = append(fresh, fieldmap.BuildProduct(s, id, owner.ID, now))
	}
	skipped := dupes + len(kept) - len(fresh)
	if len(fresh) == 0 {
		return 0, skipped, nil
	}

	inserted, err := d.Store.InsertProducts(ctx, fresh)
	if err != nil {
		return 0, 0, fmt.Errorf("insert products: %w", err)
	}
	if err := d.Store.LinkCategories(ctx, linksFor(inserted, category)); err != nil {
		return 0, 0, fmt.Errorf("link categories: %w", err)
	}
	return len(inserted), skipped, nil
}

func linksFor(products []catalog.ExistingProduct, category catalog.Category) []catalog.CategoryLink {
	links := make([]catalog.CategoryLink, len(products))
	for i, p := range products {
		links[i] = catalog.CategoryLink{ProductID: p.ID, CategoryID: category.ID}
	}
	return links
}

func logPreview(logger *zap.Logger, ranked []site.ScoredSite) {
	logger.Info("dry run: no data will be written")
	for _, s := range ranked[:min(dryRunPreview, len(ranked))] {
		logger.Info("top site",
			zap.Int("rank", s.Rank),
			zap.String("domain", s.Site.Domain),
			zap.Int("score", s.Quality.Score),
			zap.String("tier", string(s.Quality.Tier)),
			zap.String("status", string(s.Status)),
		)
	}
}
