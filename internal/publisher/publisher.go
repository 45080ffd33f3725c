// Package publisher announces finished catalog runs to downstream consumers.
package publisher

import (
	"context"
	"time"

	"github.com/JakeFAU/guestpost-catalog/internal/pipeline"
	"github.com/JakeFAU/guestpost-catalog/internal/progress"
)

// RunSummary is the JSON payload sent after a non-dry run.
type RunSummary struct {
	Mode         progress.Mode `json:"mode"`
	RunID        string        `json:"run_id"`
	SourceDigest string        `json:"source_digest"`
	Total        int           `json:"total"`
	Written      int           `json:"written"`
	Added        int           `json:"added"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Live         int           `json:"live,omitempty"`
	Pending      int           `json:"pending,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	ReportURI    string        `json:"report_uri,omitempty"`
}

// Publisher delivers run summaries and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, summary RunSummary) (string, error)
}

// FromImport summarizes an import run. Written and Added both count inserts.
func FromImport(res pipeline.ImportResult) RunSummary {
	return RunSummary{
		Mode:         progress.ModeImport,
		RunID:        res.RunID,
		SourceDigest: res.SourceDigest,
		Total:        res.Total,
		Written:      res.Imported,
		Added:        res.Imported,
		Skipped:      res.Skipped,
		Failed:       res.Failed,
		Live:         res.LiveCount,
		Pending:      res.PendingCount,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
}

// FromUpdate summarizes an update run.
func FromUpdate(stats pipeline.UpdateStats) RunSummary {
	return RunSummary{
		Mode:         progress.ModeUpdate,
		RunID:        stats.RunID,
		SourceDigest: stats.SourceDigest,
		Total:        stats.Total,
		Written:      stats.Updated + stats.Added,
		Added:        stats.Added,
		Skipped:      stats.Skipped,
		Failed:       stats.Failed,
		StartedAt:    stats.StartedAt,
		FinishedAt:   stats.FinishedAt,
	}
}
