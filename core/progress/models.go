package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendtrack/core"
)

const (
	DefaultTotalMarks = 100.0

	maxAssignmentNameLen = 200
	maxCommentsLen       = 1000
)

// Entry is the mark a student got on one assignment.
type Entry struct {
	ID             int64        `json:"id"`
	StudentID      int64        `json:"student_id"`
	TeacherID      int64        `json:"teacher_id"`
	Subject        string       `json:"subject"`
	AssignmentName string       `json:"assignment_name"`
	MarksObtained  float64      `json:"marks_obtained"`
	TotalMarks     float64      `json:"total_marks"`
	Percentage     null.Float64 `json:"percentage"`
	Comments       string       `json:"comments"`
	Date           core.Date    `json:"date"`
	CreatedAt      time.Time    `json:"created_at"` // UTC
}

// CalculatePercentage sets Percentage from the marks. It is left unset when
// TotalMarks is not positive.
func (e *Entry) CalculatePercentage() {
	if e.TotalMarks > 0 {
		e.Percentage = null.Float64From(e.MarksObtained / e.TotalMarks * 100)
		return
	}
	e.Percentage = null.Float64{}
}

// AveragePercentage returns the mean of the known percentages of entries, 0 when
// there are none.
func AveragePercentage(entries []Entry) float64 {
	var (
		sum float64
		n   int
	)
	for _, e := range entries {
		if e.Percentage.Valid {
			sum += e.Percentage.Float64
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Filter applies AND operation on its non-zero fields. From and To are inclusive.
type Filter struct {
	StudentID int64
	TeacherID int64
	Subject   string
	From      core.Date
	To        core.Date
	Limit     int
}

type NewEntry struct {
	StudentID      int64    `json:"student_id" validate:"required"`
	AssignmentName string   `json:"assignment_name" validate:"notblank,max=200"`
	MarksObtained  *float64 `json:"marks_obtained" validate:"required"`
	TotalMarks     *float64 `json:"total_marks"`
	Comments       string   `json:"comments" validate:"max=1000"`
	Date           string   `json:"date" validate:"required,isodate"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.AssignmentName = core.CleanString(ne.AssignmentName)
	ne.Comments = core.CleanString(ne.Comments)
	ne.Date = core.CleanString(ne.Date)
	return validate.Struct(ne)
}
