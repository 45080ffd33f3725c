package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/guestpost-catalog/internal/progress"
)

// Site outcome labels.
const (
	outcomeWritten = "written"
	outcomeAdded   = "added"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// PrometheusSink turns progress events into run, batch and site counters.
type PrometheusSink struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	batches       *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	sites         *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_runs_started_total",
			Help: "Pipeline runs started, by mode.",
		}, []string{"mode"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_runs_completed_total",
			Help: "Pipeline runs finished, by mode and result.",
		}, []string{"mode", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_run_duration_seconds",
			Help:    "Wall time per finished run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"mode", "result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_batches_total",
			Help: "Batches processed, by mode and result.",
		}, []string{"mode", "result"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_batch_duration_seconds",
			Help:    "Wall time per batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"mode"}),
		sites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_sites_total",
			Help: "Sites handled by batches, by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.batches,
		s.batchDuration,
		s.sites,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		mode := string(evt.Mode)
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(mode).Inc()
		case progress.StageRunDone:
			s.finishRun(evt, "success")
		case progress.StageRunError:
			s.finishRun(evt, "error")
		case progress.StageBatchDone:
			s.finishBatch(evt, "success")
		case progress.StageBatchFailed:
			s.finishBatch(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) finishRun(evt progress.Event, result string) {
	mode := string(evt.Mode)
	s.runsCompleted.WithLabelValues(mode, result).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(mode, result).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) finishBatch(evt progress.Event, result string) {
	mode := string(evt.Mode)
	s.batches.WithLabelValues(mode, result).Inc()
	if evt.Dur > 0 {
		s.batchDuration.WithLabelValues(mode).Observe(evt.Dur.Seconds())
	}
	for outcome, n := range map[string]int{
		outcomeWritten: evt.Written,
		outcomeAdded:   evt.Added,
		outcomeSkipped: evt.Skipped,
		outcomeFailed:  evt.Failed,
	} {
		if n > 0 {
			s.sites.WithLabelValues(mode, outcome).Add(float64(n))
		}
	}
}

// Close implements progress.Sink; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
