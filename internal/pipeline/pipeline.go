// Package pipeline runs the catalog import and update flows: load a scrape
// output file, score and rank it, then write the catalog batch by batch.
//
// Batches run sequentially. A batch that fails is counted and logged and the
// run moves on; re-running the whole pipeline is the retry mechanism.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/catalog"
	"github.com/JakeFAU/guestpost-catalog/internal/progress"
	"github.com/JakeFAU/guestpost-catalog/internal/quality"
)

// Option defaults.
const (
	DefaultBatchSize     = 50
	DefaultLiveThreshold = 70
	DefaultTopLiveCount  = 500
)

var (
	// ErrNoSource is returned when Options carries no source path.
	ErrNoSource = errors.New("source path is required")
	// ErrOwnerMissing is returned when the system owner user does not exist.
	// No write happens before this check.
	ErrOwnerMissing = errors.New("system owner not found")
)

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints row identifiers and run identifiers.
type IDGenerator interface {
	NewID() (string, error)
	NewRunID() ([16]byte, error)
}

// Hasher fingerprints the source file.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Options is the per-run input of Import and Update. Every field is used as
// given; DefaultOptions fills in the standard batch size and live policy.
type Options struct {
	SourcePath    string
	BatchSize     int
	DryRun        bool
	LiveThreshold int
	TopLiveCount  int
}

// DefaultOptions returns the options of a non-dry run over source. A
// TopLiveCount or LiveThreshold of 0 set afterwards is honored.
func DefaultOptions(source string) Options {
	return Options{
		SourcePath:    source,
		BatchSize:     DefaultBatchSize,
		LiveThreshold: DefaultLiveThreshold,
		TopLiveCount:  DefaultTopLiveCount,
	}
}

func (o Options) validate() error {
	if o.SourcePath == "" {
		return ErrNoSource
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, got %d", o.BatchSize)
	}
	if o.LiveThreshold < 0 || o.TopLiveCount < 0 {
		return fmt.Errorf("live policy must not be negative: threshold=%d top=%d",
			o.LiveThreshold, o.TopLiveCount)
	}
	return nil
}

func (o Options) policy() quality.Policy {
	return quality.Policy{TopLiveCount: o.TopLiveCount, LiveThreshold: o.LiveThreshold}
}

// CategoryConfig describes the default category every new product joins.
type CategoryConfig struct {
	Slug string
	Name string
	Icon string
}

// Deps are the collaborators shared by Importer and Updater.
type Deps struct {
	Store    catalog.Store
	Clock    Clock
	IDs      IDGenerator
	Hasher   Hasher
	Progress progress.Emitter
	Logger   *zap.Logger

	Category   CategoryConfig
	OwnerEmail string
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("pipeline: store is required")
	case d.Clock == nil:
		return errors.New("pipeline: clock is required")
	case d.IDs == nil:
		return errors.New("pipeline: id generator is required")
	case d.Hasher == nil:
		return errors.New("pipeline: hasher is required")
	case d.Category.Slug == "":
		return errors.New("pipeline: default category slug is required")
	case d.OwnerEmail == "":
		return errors.New("pipeline: owner email is required")
	}
	return nil
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Progress == nil {
		d.Progress = progress.Discard
	}
	if d.Category.Name == "" {
		d.Category.Name = d.Category.Slug
	}
	return d
}

// run carries the identity and timing of one pipeline execution.
type run struct {
	id      [16]byte
	mode    progress.Mode
	started time.Time
	deps    Deps
}

func newRun(d Deps, mode progress.Mode) (*run, error) {
	id, err := d.IDs.NewRunID()
	if err != nil {
		return nil, fmt.Errorf("new run id: %w", err)
	}
	return &run{id: id, mode: mode, started: d.Clock.Now(), deps: d}, nil
}

func (r *run) emit(evt progress.Event) {
	evt.RunID = r.id
	evt.Mode = r.mode
	if evt.TS.IsZero() {
		evt.TS = r.deps.Clock.Now()
	}
	r.deps.Progress.Emit(evt)
}

func (r *run) fail(err error) error {
	r.emit(progress.Event{
		Stage: progress.StageRunError,
		Dur:   r.deps.Clock.Now().Sub(r.started),
		Note:  err.Error(),
	})
	return err
}

// resolveOwner looks up the system owner; a miss is ErrOwnerMissing.
func resolveOwner(ctx context.Context, d Deps) (catalog.Owner, error) {
	owner, err := d.Store.FindOwnerByEmail(ctx, d.OwnerEmail)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Owner{}, fmt.Errorf("%w: %s", ErrOwnerMissing, d.OwnerEmail)
	}
	if err != nil {
		return catalog.Owner{}, fmt.Errorf("find system owner: %w", err)
	}
	return owner, nil
}

// resolveCategory returns the default category, creating it when absent.
func resolveCategory(ctx context.Context, d Deps) (catalog.Category, error) {
	c, err := d.Store.FindCategoryBySlug(ctx, d.Category.Slug)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return catalog.Category{}, fmt.Errorf("find default category: %w", err)
	}
	id, err := d.IDs.NewID()
	if err != nil {
		return catalog.Category{}, fmt.Errorf("new category id: %w", err)
	}
	d.Logger.Info("creating default category", zap.String("slug", d.Category.Slug))
	created, err := d.Store.CreateCategory(ctx, catalog.Category{
		ID:           id,
		Name:         d.Category.Name,
		Slug:         d.Category.Slug,
		Icon:         d.Category.Icon,
		DisplayOrder: 0,
		IsActive:     true,
		CreatedAt:    d.Clock.Now(),
	})
	if err != nil {
		return catalog.Category{}, fmt.Errorf("create default category: %w", err)
	}
	return created, nil
}

// batches splits n items into [start, end) windows of size.
func batches(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
