package pipeline_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *pipeline.Report {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	failed := pipeline.Outcome{Year: 2004}
	failed.Fail(pipeline.Fetching, errors.New("HTTP 404"))

	return &pipeline.Report{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Outcomes: []pipeline.Outcome{
			{
				Year:   2010,
				Stage:  pipeline.Completed,
				Tables: 3,
				Loaded: []string{"ic", "hd", "hd"},
				Rows:   1200,
				Failures: []pipeline.TableFailure{{
					Table:       "hd",
					SourceTable: "HD2010",
					Kind:        pipeline.ConstraintViolation,
					Reason:      "row 7",
				}},
				Warnings: []string{"hd.x: widened"},
			},
			failed,
		},
	}
}

func TestReport(t *testing.T) {
	assert := assert.New(t)
	r := testReport()
	r.Sort()

	assert.Equal(2004, r.Outcomes[0].Year)
	assert.Len(r.Completed(), 1)
	assert.Len(r.Failed(), 1)
	assert.False(r.OK())
	assert.Equal(int64(1200), r.Rows())
	assert.Equal(pipeline.Internal, r.Failed()[0].Kind)

	assert.Equal([]string{"hd", "ic"}, r.LoadedTables())

	assert.True((&pipeline.Report{}).OK())
	assert.Empty((&pipeline.Report{}).LoadedTables())
}

func TestReportFprint(t *testing.T) {
	var buf bytes.Buffer
	r := testReport()
	r.Sort()
	r.Fprint(&buf)

	out := buf.String()
	assert.Contains(t, out, "Years: 2, completed: 1, failed: 1, rows: 1,200")
	assert.Contains(t, out, "HTTP 404")
	assert.Contains(t, out, "2010 hd (HD2010): constraint_violation: row 7")
	assert.Contains(t, out, "2010 warning: hd.x: widened")
}

func TestReportJSON(t *testing.T) {
	r := testReport()
	res, err := r.JSON()
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(res, &data))
	outs := data["outcomes"].([]any)
	first := outs[0].(map[string]any)
	assert.Equal(t, "completed", first["stage"])
	second := outs[1].(map[string]any)
	assert.Equal(t, "failed", second["stage"])
	assert.Equal(t, "fetching", second["failedAt"])
	assert.Equal(t, "HTTP 404", second["reason"])
}
