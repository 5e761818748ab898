package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/progress"
)

// Series is chart data: one label per value.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

func newSeries(n int) Series {
	return Series{Labels: make([]string, 0, n), Data: make([]float64, 0, n)}
}

// AttendanceChart returns the student's attendance over the default window, oldest
// first: 1 when present, 0 when absent.
func (svc *Service) AttendanceChart(ctx context.Context, id access.Identity) (Series, error) {
	student, err := svc.profiles.Student(ctx, id)
	if err != nil {
		return Series{}, err
	}
	entries, err := svc.attendance.QueryEntries(ctx,
		attendance.Filter{StudentID: student.ID, From: windowStart(defaultWindowDays)},
		core.OrderBy("date", true /* ascending */))
	if err != nil {
		return Series{}, errors.Wrap(err, "querying attendance")
	}

	series := newSeries(len(entries))
	for _, e := range entries {
		series.Labels = append(series.Labels, e.Date.String())
		var v float64
		if e.Present {
			v = 1
		}
		series.Data = append(series.Data, v)
	}
	return series, nil
}

// ProgressChart returns the percentages of the student's 10 latest progress entries,
// oldest first.
func (svc *Service) ProgressChart(ctx context.Context, id access.Identity) (Series, error) {
	student, err := svc.profiles.Student(ctx, id)
	if err != nil {
		return Series{}, err
	}
	entries, err := svc.progress.QueryEntries(ctx,
		progress.Filter{StudentID: student.ID, Limit: progressChartLimit}, byDateDesc)
	if err != nil {
		return Series{}, errors.Wrap(err, "querying progress")
	}

	series := newSeries(len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		series.Labels = append(series.Labels, e.AssignmentName)
		series.Data = append(series.Data, e.Percentage.Float64)
	}
	return series, nil
}
