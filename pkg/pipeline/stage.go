// Package pipeline contains the vocabulary of a yearly ingestion run:
// stages of a year pipeline, error kinds, per-year outcomes and the
// final report.
package pipeline

import (
	"fmt"
)

// Stage is the state of a year pipeline.
type Stage int

const (
	Queued Stage = iota
	Fetching
	Extracting
	Reconciling
	Importing
	Completed
	Failed
)

var stageNames = []string{
	"queued",
	"fetching",
	"extracting",
	"reconciling",
	"importing",
	"completed",
	"failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText makes stages readable in the JSON report.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal is true for Completed and Failed.
func (s Stage) Terminal() bool {
	return s == Completed || s == Failed
}

var transitions = map[Stage][]Stage{
	Queued:      {Fetching},
	Fetching:    {Extracting},
	Extracting:  {Reconciling, Completed},
	Reconciling: {Importing},
	Importing:   {Reconciling, Completed},
}

// CanMove checks if a pipeline can go from stage s to stage to.
// Every non-terminal stage can go to Failed, terminal stages cannot
// go anywhere.
func (s Stage) CanMove(to Stage) bool {
	if s.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, v := range transitions[s] {
		if v == to {
			return true
		}
	}
	return false
}

// Tracker follows the stage of one year pipeline. It is used by one
// goroutine only.
type Tracker struct {
	year     int
	stage    Stage
	failedAt Stage
	onChange func(year int, from, to Stage)
}

// NewTracker creates a tracker in the Queued stage. The onChange
// callback is optional and is called after every transition.
func NewTracker(year int, onChange func(year int, from, to Stage)) *Tracker {
	return &Tracker{year: year, onChange: onChange}
}

// Stage returns the current stage.
func (t *Tracker) Stage() Stage {
	return t.stage
}

// FailedAt returns the stage the pipeline was in when it failed.
func (t *Tracker) FailedAt() Stage {
	return t.failedAt
}

// Move switches the pipeline to a new stage.
func (t *Tracker) Move(to Stage) error {
	if !t.stage.CanMove(to) {
		return fmt.Errorf("year %d: illegal transition %s -> %s",
			t.year, t.stage, to)
	}
	from := t.stage
	if to == Failed {
		t.failedAt = from
	}
	t.stage = to
	if t.onChange != nil {
		t.onChange(t.year, from, to)
	}
	return nil
}

// Fail moves the pipeline to Failed and returns the stage where the
// failure happened. Failing a terminal pipeline does nothing.
func (t *Tracker) Fail() Stage {
	if t.stage.Terminal() {
		return t.failedAt
	}
	_ = t.Move(Failed)
	return t.failedAt
}
