package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
)

// TableFailure describes a table of a year that was not imported.
// Other tables of the same year are not affected by it.
type TableFailure struct {
	Table       string    `json:"table"`
	SourceTable string    `json:"sourceTable"`
	Kind        ErrorKind `json:"kind"`
	Reason      string    `json:"reason"`
}

// Outcome is the result of one year pipeline.
type Outcome struct {
	Year int `json:"year"`

	// Stage is Completed or Failed.
	Stage Stage `json:"stage"`

	// FailedAt is the stage where a failed pipeline stopped.
	FailedAt Stage `json:"failedAt,omitzero"`

	Kind   ErrorKind `json:"kind,omitzero"`
	Err    error     `json:"-"`
	Reason string    `json:"reason,omitempty"`

	// Cached is true when the snapshot was already on disk.
	Cached bool `json:"cached"`

	// Tables is the number of tables imported during this run.
	Tables int `json:"tables"`

	// Unchanged is the number of tables with matching import records.
	Unchanged int `json:"unchanged"`

	// Loaded lists destination tables that received rows of the year.
	Loaded []string `json:"loaded,omitempty"`

	Rows     int64          `json:"rows"`
	Skipped  int64          `json:"skippedRows,omitempty"`
	Failures []TableFailure `json:"failures,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Fail sets the failure fields of the outcome from an error.
func (o *Outcome) Fail(at Stage, err error) {
	o.Stage = Failed
	o.FailedAt = at
	o.Err = err
	o.Kind = KindOf(err)
	if err != nil {
		o.Reason = err.Error()
	}
}

// Report summarizes a run over all years.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Sort orders outcomes by year.
func (r *Report) Sort() {
	slices.SortFunc(r.Outcomes, func(a, b Outcome) int {
		return a.Year - b.Year
	})
}

// Completed returns outcomes of completed years.
func (r *Report) Completed() []Outcome {
	return r.filter(Completed)
}

// Failed returns outcomes of failed years.
func (r *Report) Failed() []Outcome {
	return r.filter(Failed)
}

// OK is true when every year completed.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Rows returns the number of rows imported during the run.
func (r *Report) Rows() int64 {
	var res int64
	for _, v := range r.Outcomes {
		res += v.Rows
	}
	return res
}

// LoadedTables returns sorted unique names of destination tables that
// were changed during the run.
func (r *Report) LoadedTables() []string {
	var res []string
	for _, v := range r.Outcomes {
		res = append(res, v.Loaded...)
	}
	slices.Sort(res)
	return slices.Compact(res)
}

func (r *Report) filter(s Stage) []Outcome {
	var res []Outcome
	for _, v := range r.Outcomes {
		if v.Stage == s {
			res = append(res, v)
		}
	}
	return res
}

// JSON returns the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	enc := gnfmt.GNjson{Pretty: true}
	return enc.Encode(r)
}

// Fprint writes the human-readable version of the report.
func (r *Report) Fprint(w io.Writer) {
	dur := r.FinishedAt.Sub(r.StartedAt)
	fmt.Fprintf(w, "\nYears: %d, completed: %d, failed: %d, rows: %s, time: %s\n\n",
		len(r.Outcomes), len(r.Completed()), len(r.Failed()),
		humanize.Comma(r.Rows()), gnfmt.TimeString(dur.Seconds()),
	)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tRESULT\tSTAGE\tKIND\tTABLES\tROWS\tREASON")
	for _, v := range r.Outcomes {
		stage := ""
		if v.Stage == Failed {
			stage = v.FailedAt.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			v.Year, v.Stage, stage, v.Kind, v.Tables, v.Tables+v.Unchanged,
			humanize.Comma(v.Rows), shorten(v.Reason, 80),
		)
	}
	tw.Flush()

	for _, v := range r.Outcomes {
		for _, f := range v.Failures {
			fmt.Fprintf(w, "%d %s (%s): %s: %s\n",
				v.Year, f.Table, f.SourceTable, f.Kind, f.Reason)
		}
	}
	for _, v := range r.Outcomes {
		for _, s := range v.Warnings {
			fmt.Fprintf(w, "%d warning: %s\n", v.Year, s)
		}
	}
}

func shorten(s string, l int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	rs := []rune(s)
	if len(rs) <= l {
		return s
	}
	return string(rs[:l-3]) + "..."
}
