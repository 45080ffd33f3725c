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

// UpdateStats summarizes an update run.
type UpdateStats struct {
	RunID  string
	DryRun bool
	// Total is the number of successful scrapes considered.
	Total   int
	Updated int
	Added   int
	// Skipped counts in-batch duplicate slugs that were dropped.
	Skipped int
	// Failed counts every site of every failed batch.
	Failed       int
	SourceDigest string
	StartedAt    time.Time
	FinishedAt   time.Time
	Ranked       []site.ScoredSite
}

// Updater refreshes metrics of existing products and inserts products for
// new domains. Name, niche, status and category links of existing products
// are never changed.
type Updater struct {
	deps Deps
}

// NewUpdater validates deps and returns an Updater.
func NewUpdater(deps Deps) (*Updater, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Updater{deps: deps.withDefaults()}, nil
}

type batchPlan struct {
	updates []pendingUpdate
	inserts []site.ScoredSite
	dupes   int
}

type pendingUpdate struct {
	id   string
	data site.ScrapedSiteData
}

// Update runs the update. A dry run performs only the read-only slug lookups
// and reports what would be updated or added.
func (u *Updater) Update(ctx context.Context, opts Options) (UpdateStats, error) {
	if err := opts.validate(); err != nil {
		return UpdateStats{}, err
	}
	d := u.deps
	prepared, err := Prepare(opts, d.Hasher)
	if err != nil {
		return UpdateStats{}, err
	}
	logPrepared(d.Logger, opts.SourcePath, prepared)

	stats := UpdateStats{
		DryRun:       opts.DryRun,
		Total:        len(prepared.Sites),
		SourceDigest: prepared.Digest,
		StartedAt:    d.Clock.Now(),
		Ranked:       prepared.Sites,
	}
	windows := batches(len(prepared.Sites), opts.BatchSize)

	if opts.DryRun {
		d.Logger.Info("dry run: analyzing what would change")
		for i, win := range windows {
			plan, err := u.plan(ctx, prepared.Sites[win[0]:win[1]])
			if err != nil {
				return stats, fmt.Errorf("dry run batch %d: %w", i+1, err)
			}
			stats.Updated += len(plan.updates)
			stats.Added += len(plan.inserts)
			stats.Skipped += plan.dupes
			d.Logger.Info("dry run batch",
				zap.Int("batch", i+1),
				zap.Int("would_update", len(plan.updates)),
				zap.Int("would_add", len(plan.inserts)),
			)
		}
		stats.FinishedAt = d.Clock.Now()
		return stats, nil
	}

	r, err := newRun(d, progress.ModeUpdate)
	if err != nil {
		return UpdateStats{}, err
	}
	stats.RunID = uuid.UUID(r.id).String()
	stats.StartedAt = r.started
	r.emit(progress.Event{Stage: progress.StageRunStart, Sites: stats.Total})

	owner, err := resolveOwner(ctx, d)
	if err != nil {
		return UpdateStats{}, r.fail(err)
	}
	category, err := resolveCategory(ctx, d)
	if err != nil {
		return UpdateStats{}, r.fail(err)
	}

	d.Logger.Info("updating sites", zap.Int("sites", stats.Total), zap.Int("batch_size", opts.BatchSize))
	for i, win := range windows {
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = d.Clock.Now()
			return stats, r.fail(fmt.Errorf("update canceled after %d batches: %w", i, err))
		}
		batch := prepared.Sites[win[0]:win[1]]
		num := i + 1
		began := d.Clock.Now()
		updated, added, dupes, err := u.updateBatch(ctx, batch, owner, category)
		if err != nil {
			stats.Failed += len(batch)
			d.Logger.Warn("update batch failed", zap.Int("batch", num), zap.Int("sites", len(batch)), zap.Error(err))
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
		stats.Updated += updated
		stats.Added += added
		stats.Skipped += dupes
		d.Logger.Info("update batch done",
			zap.Int("batch", num),
			zap.Int("updated", updated),
			zap.Int("added", added),
			zap.Int("progress", stats.Updated+stats.Added),
			zap.Int("total", stats.Total),
		)
		r.emit(progress.Event{
			Stage:   progress.StageBatchDone,
			Batch:   num,
			Sites:   len(batch),
			Written: updated + added,
			Added:   added,
			Skipped: dupes,
			Dur:     d.Clock.Now().Sub(began),
		})
	}

	stats.FinishedAt = d.Clock.Now()
	r.emit(progress.Event{
		Stage:   progress.StageRunDone,
		Sites:   stats.Total,
		Written: stats.Updated + stats.Added,
		Added:   stats.Added,
		Skipped: stats.Skipped,
		Failed:  stats.Failed,
		Dur:     stats.FinishedAt.Sub(stats.StartedAt),
	})
	d.Logger.Info("update complete",
		zap.Int("total", stats.Total),
		zap.Int("updated", stats.Updated),
		zap.Int("added", stats.Added),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// plan splits a batch into updates of existing slugs and inserts of new ones.
func (u *Updater) plan(ctx context.Context, batch []site.ScoredSite) (batchPlan, error) {
	kept, slugs, dupes := dedupe(batch)
	existing, err := u.deps.Store.FindProductsBySlugs(ctx, slugs)
	if err != nil {
		return batchPlan{}, fmt.Errorf("find existing products: %w", err)
	}
	ids := make(map[string]string, len(existing))
	for _, p := range existing {
		ids[p.Slug] = p.ID
	}
	plan := batchPlan{dupes: dupes}
	for i, s := range kept {
		if id, ok := ids[slugs[i]]; ok {
			plan.updates = append(plan.updates, pendingUpdate{id: id, data: s.Site.Fields()})
			continue
		}
		plan.inserts = append(plan.inserts, s)
	}
	return plan, nil
}

func (u *Updater) updateBatch(
	ctx context.Context,
	batch []site.ScoredSite,
	owner catalog.Owner,
	category catalog.Category,
) (int, int, int, error) {
	d := u.deps
	plan, err := u.plan(ctx, batch)
	if err != nil {
		return 0, 0, 0, err
	}
	now := d.Clock.Now()
	for _, up := range plan.updates {
		if err := d.Store.UpdateProduct(ctx, up.id, fieldmap.BuildUpdate(up.data, now)); err != nil {
			return 0, 0, 0, fmt.Errorf("update product %s: %w", up.id, err)
		}
	}
	if len(plan.inserts) == 0 {
		return len(plan.updates), 0, plan.dupes, nil
	}
	fresh := make([]catalog.Product, 0, len(plan.inserts))
	for _, s := range plan.inserts {
		id, err := d.IDs.NewID()
		if err != nil {
			return 0, 0, 0, fmt.Errorf("new product id: %w", err)
		}
		fresh = append(fresh, fieldmap.BuildProduct(s, id, owner.ID, now))
	}
	inserted, err := d.Store.InsertProducts(ctx, fresh)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("insert products: %w", err)
	}
	if err := d.Store.LinkCategories(ctx, linksFor(inserted, category)); err != nil {
		return 0, 0, 0, fmt.Errorf("link categories: %w", err)
	}
	return len(plan.updates), len(inserted), plan.dupes, nil
}
