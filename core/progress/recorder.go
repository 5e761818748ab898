package progress

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/profile"
)

var (
	errMarksRequired  = "this field is required"
	errNegativeMarks  = "marks cannot be negative"
	errTotalNotPos    = "total marks must be greater than 0"
	errMarksOverTotal = "marks obtained cannot exceed total marks"
	errAssignmentName = "this field cannot be blank"
	errTooLong        = "this field cannot exceed %d characters"
)

type Repository interface {
	CreateEntry(ctx context.Context, e Entry) (Entry, error)
	QueryEntries(ctx context.Context, filter Filter, ordering ...core.DBOrdering) ([]Entry, error)
}

type Recorder struct {
	repo     Repository
	profiles *profile.Service
	logger   core.Logger
}

func NewRecorder(repo Repository, profiles *profile.Service, logger core.Logger) *Recorder {
	return &Recorder{repo: repo, profiles: profiles, logger: logger}
}

// check enforces the marks rules and returns the date of ne.
func (ne *NewEntry) check() (core.Date, error) {
	ne.AssignmentName = core.CleanString(ne.AssignmentName)
	ne.Comments = core.CleanString(ne.Comments)
	if ne.TotalMarks == nil {
		total := DefaultTotalMarks
		ne.TotalMarks = &total
	}

	var flds []core.FieldError
	switch {
	case ne.AssignmentName == "":
		flds = append(flds, core.FieldError{Field: "assignment_name", Error: errAssignmentName})
	case utf8.RuneCountInString(ne.AssignmentName) > maxAssignmentNameLen:
		flds = append(flds, core.FieldError{Field: "assignment_name", Error: fmt.Sprintf(errTooLong, maxAssignmentNameLen)})
	}
	if utf8.RuneCountInString(ne.Comments) > maxCommentsLen {
		flds = append(flds, core.FieldError{Field: "comments", Error: fmt.Sprintf(errTooLong, maxCommentsLen)})
	}
	switch {
	case ne.MarksObtained == nil:
		flds = append(flds, core.FieldError{Field: "marks_obtained", Error: errMarksRequired})
	case *ne.MarksObtained < 0:
		flds = append(flds, core.FieldError{Field: "marks_obtained", Error: errNegativeMarks})
	case *ne.TotalMarks > 0 && *ne.MarksObtained > *ne.TotalMarks:
		flds = append(flds, core.FieldError{Field: "marks_obtained", Error: errMarksOverTotal})
	}
	if *ne.TotalMarks <= 0 {
		flds = append(flds, core.FieldError{Field: "total_marks", Error: errTotalNotPos})
	}
	date, err := core.ParseDate(ne.Date)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "date", Error: err.Error()})
	}

	if len(flds) > 0 {
		return core.Date{}, core.NewValidationError(errors.New(flds[0].Error), flds...)
	}
	return date, nil
}

// Record stores a new assignment mark for a student of the teacher's roster.
// Repeated submissions are kept as separate entries.
func (r *Recorder) Record(ctx context.Context, id access.Identity, ne NewEntry) (Entry, error) {
	teacher, err := r.profiles.Teacher(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	date, err := ne.check()
	if err != nil {
		return Entry{}, err
	}
	student, err := r.profiles.RosterStudent(ctx, teacher, ne.StudentID)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		StudentID:      student.ID,
		TeacherID:      teacher.ID,
		Subject:        teacher.Subject,
		AssignmentName: ne.AssignmentName,
		MarksObtained:  *ne.MarksObtained,
		TotalMarks:     *ne.TotalMarks,
		Comments:       ne.Comments,
		Date:           date,
		CreatedAt:      core.Now(),
	}
	e.CalculatePercentage()

	e, err = r.repo.CreateEntry(ctx, e)
	if err != nil {
		return Entry{}, errors.Wrap(err, "creating progress entry")
	}

	r.logger.Info(fmt.Sprintf("progress recorded for student %d: %s", student.ID, e.AssignmentName), id.Account())
	return e, nil
}

// Form returns the data needed to render the marks form: the teacher and their roster.
func (r *Recorder) Form(ctx context.Context, id access.Identity) (profile.Teacher, []profile.Student, error) {
	teacher, err := r.profiles.Teacher(ctx, id)
	if err != nil {
		return profile.Teacher{}, nil, err
	}
	roster, err := r.profiles.Roster(ctx, teacher)
	if err != nil {
		return profile.Teacher{}, nil, err
	}
	return teacher, roster, nil
}
