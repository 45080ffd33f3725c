package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageBatchDone   Stage = "BATCH_DONE"
	StageBatchFailed Stage = "BATCH_FAILED"
	StageRunDone     Stage = "RUN_DONE"
	StageRunError    Stage = "RUN_ERROR"
)

// Mode names the pipeline that emitted an event.
type Mode string

// Pipeline modes.
const (
	ModeImport Mode = "import"
	ModeUpdate Mode = "update"
)

// Event reports one milestone of an import or update run.
type Event struct {
	// RunID identifies the run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC time the emitter recorded.
	TS    time.Time
	Stage Stage
	Mode  Mode
	// Batch is the 1-based batch number; zero for run-level stages.
	Batch int
	// Sites is the number of sites the event covers: the batch size for batch
	// stages and the qualifying total for RUN_START.
	Sites int
	// Written counts rows inserted or updated by the batch.
	Written int
	// Added counts rows inserted by an update run.
	Added   int
	Skipped int
	Failed  int
	// Dur is the batch or run wall time.
	Dur time.Duration
	// Note carries error text for failure stages.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Mode {
	case ModeImport, ModeUpdate:
	default:
		return fmt.Errorf("unknown mode %q", e.Mode)
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageRunError:
		if e.Note == "" {
			return errors.New("run error requires note")
		}
	case StageBatchDone, StageBatchFailed:
		if e.Batch <= 0 {
			return errors.New("batch stages require a batch number")
		}
		if e.Sites <= 0 {
			return errors.New("batch stages require a site count")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
