package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/profile"
)

type Repository interface {
	// UpsertEntry inserts e, or updates Present, Remarks and MarkedAt of the entry
	// already recorded for (StudentID, TeacherID, Date).
	UpsertEntry(ctx context.Context, e Entry) (Entry, error)
	QueryEntries(ctx context.Context, filter Filter, ordering ...core.DBOrdering) ([]Entry, error)
}

type Recorder struct {
	tx       core.Transactor
	repo     Repository
	profiles *profile.Service
	logger   core.Logger
}

func NewRecorder(tx core.Transactor, repo Repository, profiles *profile.Service, logger core.Logger) *Recorder {
	return &Recorder{tx: tx, repo: repo, profiles: profiles, logger: logger}
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.NewFieldValidationError("date", err.Error())
	}
	return d, nil
}

// MarkRoster records the attendance of the teacher's whole roster for one date,
// in a single transaction.
func (r *Recorder) MarkRoster(ctx context.Context, id access.Identity, req MarkRequest) ([]Entry, error) {
	teacher, err := r.profiles.Teacher(ctx, id)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	roster, err := r.profiles.Roster(ctx, teacher)
	if err != nil {
		return nil, err
	}

	inRoster := make(map[int64]bool, len(roster))
	for _, s := range roster {
		inRoster[s.ID] = true
	}
	marks := make(map[int64]Mark, len(req.Marks))
	var unknown []string
	for _, m := range req.Marks {
		if !inRoster[m.StudentID] {
			unknown = append(unknown, fmt.Sprint(m.StudentID))
			continue
		}
		marks[m.StudentID] = m
	}
	if len(unknown) > 0 {
		msg := "students not in your class: " + strings.Join(unknown, ", ")
		return nil, core.NewValidationError(access.ErrNotInRoster, core.FieldError{Field: "marks", Error: msg})
	}

	now := core.Now()
	entries := make([]Entry, 0, len(roster))
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, s := range roster {
			m := marks[s.ID] // unmarked students are absent
			e := Entry{
				StudentID: s.ID,
				TeacherID: teacher.ID,
				Date:      date,
				Present:   m.Present,
				MarkedAt:  now,
			}
			if remarks := core.CleanString(m.Remarks); remarks != "" {
				e.Remarks = null.StringFrom(remarks)
			}
			saved, err := r.repo.UpsertEntry(ctx, e)
			if err != nil {
				return errors.Wrapf(err, "upserting attendance of student %d", s.ID)
			}
			entries = append(entries, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(fmt.Sprintf("attendance marked for %s: %d students", date, len(entries)), id.Account())
	return entries, nil
}

// RosterSheet returns the teacher's roster with the entries already recorded on date.
// An empty date means today.
func (r *Recorder) RosterSheet(ctx context.Context, id access.Identity, date string) (Sheet, error) {
	teacher, err := r.profiles.Teacher(ctx, id)
	if err != nil {
		return Sheet{}, err
	}
	day := core.Today()
	if core.CleanString(date) != "" {
		if day, err = parseDate(date); err != nil {
			return Sheet{}, err
		}
	}
	roster, err := r.profiles.Roster(ctx, teacher)
	if err != nil {
		return Sheet{}, err
	}
	entries, err := r.repo.QueryEntries(ctx, Filter{TeacherID: teacher.ID, From: day, To: day})
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying attendance")
	}

	byStudent := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		byStudent[e.StudentID] = e
	}
	rows := make([]SheetRow, 0, len(roster))
	for _, s := range roster {
		row := SheetRow{Student: s}
		if e, ok := byStudent[s.ID]; ok {
			row.Entry = &e
		}
		rows = append(rows, row)
	}
	return Sheet{Teacher: teacher, Date: day, Rows: rows}, nil
}
