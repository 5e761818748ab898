package progress_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/tests"
)

func float(f float64) *float64 { return &f }

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.True(t, core.IsValidationError(err), "err = %v", err)
	flds := make(map[string]string)
	for _, f := range err.(*core.ValidationError).Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestRecorder_Record(t *testing.T) {
	st := testutil.NewInmemStores()
	logger := new(testutil.Logger)
	rec := progress.NewRecorder(st.Progress, profile.NewService(st.Profiles), logger)
	ctx := context.Background()
	today := core.Today().String()

	tAcc, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	teacherID := access.NewIdentity(tAcc)
	sAcc, student := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)
	_, outsider := testutil.CreateStudent(t, st, "eve", "cs101", "CSE-B", 0)

	t.Run("teachers only", func(t *testing.T) {
		_, err := rec.Record(ctx, access.NewIdentity(sAcc), progress.NewEntry{})
		assert.Equal(t, access.ErrUnauthorized, err)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			entry progress.NewEntry
			want  map[string]string
		}{
			{
				name:  "blank",
				entry: progress.NewEntry{StudentID: student.ID, AssignmentName: "  "},
				want: map[string]string{
					"assignment_name": "this field cannot be blank",
					"marks_obtained":  "this field is required",
					"date":            core.ErrInvalidDate.Error(),
				},
			},
			{
				name:  "negative marks",
				entry: progress.NewEntry{StudentID: student.ID, AssignmentName: "Quiz", MarksObtained: float(-1), Date: today},
				want:  map[string]string{"marks_obtained": "marks cannot be negative"},
			},
			{
				name: "marks over total",
				entry: progress.NewEntry{
					StudentID: student.ID, AssignmentName: "Quiz", MarksObtained: float(21), TotalMarks: float(20), Date: today,
				},
				want: map[string]string{"marks_obtained": "marks obtained cannot exceed total marks"},
			},
			{
				name: "total not positive",
				entry: progress.NewEntry{
					StudentID: student.ID, AssignmentName: "Quiz", MarksObtained: float(0), TotalMarks: float(0), Date: today,
				},
				want: map[string]string{"total_marks": "total marks must be greater than 0"},
			},
			{
				name: "too long",
				entry: progress.NewEntry{
					StudentID:      student.ID,
					AssignmentName: strings.Repeat("a", 201),
					MarksObtained:  float(10),
					Comments:       strings.Repeat("c", 1001),
					Date:           today,
				},
				want: map[string]string{
					"assignment_name": "this field cannot exceed 200 characters",
					"comments":        "this field cannot exceed 1000 characters",
				},
			},
			{
				name:  "over default total",
				entry: progress.NewEntry{StudentID: student.ID, AssignmentName: "Quiz", MarksObtained: float(101), Date: today},
				want:  map[string]string{"marks_obtained": "marks obtained cannot exceed total marks"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := rec.Record(ctx, teacherID, tt.entry)
				assert.Equal(t, tt.want, fieldErrors(t, err))
			})
		}
	})

	t.Run("student not in roster", func(t *testing.T) {
		_, err := rec.Record(ctx, teacherID, progress.NewEntry{
			StudentID: outsider.ID, AssignmentName: "Quiz", MarksObtained: float(10), Date: today,
		})
		assert.Equal(t, access.ErrNotInRoster, err)

		_, err = rec.Record(ctx, teacherID, progress.NewEntry{
			StudentID: 9999, AssignmentName: "Quiz", MarksObtained: float(10), Date: today,
		})
		assert.Equal(t, access.ErrNotInRoster, err)
	})

	t.Run("default total", func(t *testing.T) {
		e, err := rec.Record(ctx, teacherID, progress.NewEntry{
			StudentID: student.ID, AssignmentName: " Quiz 1 ", MarksObtained: float(42), Comments: " ok ", Date: today,
		})
		require.NoError(t, err)
		assert.NotZero(t, e.ID)
		assert.Equal(t, student.ID, e.StudentID)
		assert.Equal(t, teacher.ID, e.TeacherID)
		assert.Equal(t, teacher.Subject, e.Subject)
		assert.Equal(t, "Quiz 1", e.AssignmentName)
		assert.Equal(t, "ok", e.Comments)
		assert.Equal(t, progress.DefaultTotalMarks, e.TotalMarks)
		assert.Equal(t, 42.0, e.Percentage.Float64)
		assert.True(t, core.Today().Equal(e.Date))
		assert.Contains(t, logger.Messages, fmt.Sprintf("INFO: progress recorded for student %d: Quiz 1", student.ID))
	})

	t.Run("repeated submissions", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := rec.Record(ctx, teacherID, progress.NewEntry{
				StudentID: student.ID, AssignmentName: "Lab", MarksObtained: float(17), TotalMarks: float(20), Date: today,
			})
			require.NoError(t, err)
		}

		entries, err := st.Progress.QueryEntries(ctx, progress.Filter{StudentID: student.ID})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "Lab", entries[1].AssignmentName)
		assert.Equal(t, "Lab", entries[2].AssignmentName)
		assert.NotEqual(t, entries[1].ID, entries[2].ID)
		assert.Equal(t, 85.0, entries[2].Percentage.Float64)
	})
}

func TestRecorder_Form(t *testing.T) {
	st := testutil.NewInmemStores()
	rec := progress.NewRecorder(st.Progress, profile.NewService(st.Profiles), new(testutil.Logger))

	tAcc, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	testutil.CreateStudent(t, st, "bob", "cs002", "CSE-A", 0)
	testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)
	testutil.CreateStudent(t, st, "eve", "cs101", "CSE-B", 0)

	gotTeacher, students, err := rec.Form(context.Background(), access.NewIdentity(tAcc))
	require.NoError(t, err)
	assert.Equal(t, teacher, gotTeacher)
	require.Len(t, students, 2)
	assert.Equal(t, "cs001", students[0].RollNumber)
	assert.Equal(t, "cs002", students[1].RollNumber)
}

func TestAveragePercentage(t *testing.T) {
	entry := func(obtained, total float64) progress.Entry {
		e := progress.Entry{MarksObtained: obtained, TotalMarks: total}
		e.CalculatePercentage()
		return e
	}

	tests := []struct {
		name    string
		entries []progress.Entry
		want    float64
	}{
		{name: "none", want: 0},
		{name: "one", entries: []progress.Entry{entry(45, 50)}, want: 90},
		{name: "mixed totals", entries: []progress.Entry{entry(80, 100), entry(6, 10)}, want: 70},
		{name: "unknown percentage skipped", entries: []progress.Entry{entry(5, 0), entry(50, 100)}, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, progress.AveragePercentage(tt.entries), 1e-9)
		})
	}
}
