package domain

import "time"

// State is the pipeline lifecycle state
type State string

// Pipeline states
const (
	StateIdle        State = "idle"
	StateEnumerating State = "enumerating"
	StateCollecting  State = "collecting"
	StateFlushing    State = "flushing"
	StateAdvancing   State = "advancing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Mode distinguishes full and incremental runs
type Mode string

// Run modes
const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// PermanentPolicy decides what a permanent error on one proceeding does to the run
type PermanentPolicy string

// Policies
const (
	OnPermanentSkip  PermanentPolicy = "skip"
	OnPermanentAbort PermanentPolicy = "abort"
)

// Report is the outcome of one run
type Report struct {
	RunID string `json:"run_id"`
	Mode  Mode   `json:"mode"`
	Term  int    `json:"term"`
	State State  `json:"state"`

	Proceedings int `json:"proceedings"` // enumerated
	Processed   int `json:"processed"`   // completed in this run, skipped ones included
	Skipped     int `json:"skipped"`     // abandoned on a permanent error
	Statements  int `json:"statements"`  // newly stored
	Deduped     int `json:"deduped"`     // dropped as already stored
	Dropped     int `json:"dropped"`     // single records left out on a permanent error
	Batches     int `json:"batches"`
	Members     int `json:"members"`

	FailedProceeding int  `json:"failed_proceeding,omitempty"`
	Checkpoint       *int `json:"checkpoint,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}
