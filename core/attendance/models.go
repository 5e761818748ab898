package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
)

// Entry records whether a student attended a teacher's class on a date.
// There is at most one Entry per (StudentID, TeacherID, Date).
type Entry struct {
	ID        int64       `json:"id"`
	StudentID int64       `json:"student_id"`
	TeacherID int64       `json:"teacher_id"`
	Date      core.Date   `json:"date"`
	Present   bool        `json:"present"`
	Remarks   null.String `json:"remarks"`
	MarkedAt  time.Time   `json:"marked_at"` // UTC
}

// Filter applies AND operation on its non-zero fields. From and To are inclusive.
type Filter struct {
	StudentID int64
	TeacherID int64
	From      core.Date
	To        core.Date
	Limit     int
}

// Percentage returns present/total*100 for entries, 0 when there are none.
func Percentage(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var present int
	for _, e := range entries {
		if e.Present {
			present++
		}
	}
	return float64(present) / float64(len(entries)) * 100
}

type Mark struct {
	StudentID int64  `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
	Remarks   string `json:"remarks" validate:"max=500"`
}

// MarkRequest is a teacher's submission for a whole roster on one date.
// Roster students without a Mark are recorded absent.
type MarkRequest struct {
	Date  string `json:"date" validate:"required,isodate"`
	Marks []Mark `json:"marks" validate:"dive"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.Date = core.CleanString(mr.Date)
	return validate.Struct(mr)
}

// SheetRow is one roster student and their entry for the sheet date, if any.
type SheetRow struct {
	Student profile.Student `json:"student"`
	Entry   *Entry          `json:"entry"`
}

type Sheet struct {
	Teacher profile.Teacher `json:"teacher"`
	Date    core.Date       `json:"date"`
	Rows    []SheetRow      `json:"rows"`
}
