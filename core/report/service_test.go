package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/report"
	"github.com/trezcool/attendtrack/tests"
)

func newService(st testutil.Stores) *report.Service {
	return report.NewService(profile.NewService(st.Profiles), st.Attendance, st.Progress, 0)
}

func TestService_AttendancePercentage(t *testing.T) {
	st := testutil.NewInmemStores()
	svc := newService(st)
	ctx := context.Background()

	_, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	_, student := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)

	got, err := svc.AttendancePercentage(ctx, student.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "no entries")

	testutil.MarkAttendance(t, st, student.ID, teacher.ID, 0, true)
	testutil.MarkAttendance(t, st, student.ID, teacher.ID, 30, true)  // window edge
	testutil.MarkAttendance(t, st, student.ID, teacher.ID, 31, false) // out of window
	testutil.MarkAttendance(t, st, student.ID, teacher.ID, 45, true)

	tests := []struct {
		name string
		days int
		want float64
	}{
		{name: "30 days", days: 30, want: 100},
		{name: "default window", days: 0, want: 100},
		{name: "31 days", days: 31, want: 200.0 / 3},
		{name: "60 days", days: 60, want: 75},
		{name: "today only", days: 1, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AttendancePercentage(ctx, student.ID, tt.days)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestService_AttendancePercentage_markedRoster(t *testing.T) {
	core.NowFunc = func() time.Time { return time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { core.NowFunc = time.Now })

	st := testutil.NewInmemStores()
	profiles := profile.NewService(st.Profiles)
	svc := newService(st)
	rec := attendance.NewRecorder(st.Tx, st.Attendance, profiles, new(testutil.Logger))
	ctx := context.Background()

	tAcc, _ := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	_, ann := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)
	_, bob := testutil.CreateStudent(t, st, "bob", "cs002", "CSE-A", 0)
	_, cid := testutil.CreateStudent(t, st, "cid", "cs003", "CSE-A", 0)

	_, err := rec.MarkRoster(ctx, access.NewIdentity(tAcc), attendance.MarkRequest{
		Date: "2024-01-10",
		Marks: []attendance.Mark{
			{StudentID: ann.ID, Present: true},
			{StudentID: bob.ID, Present: false},
			{StudentID: cid.ID, Present: true},
		},
	})
	require.NoError(t, err)

	for _, tt := range []struct {
		student profile.Student
		want    float64
	}{{ann, 100}, {bob, 0}, {cid, 100}} {
		got, err := svc.AttendancePercentage(ctx, tt.student.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.student.RollNumber)
	}
}

func TestService_AverageMarks(t *testing.T) {
	st := testutil.NewInmemStores()
	svc := newService(st)
	ctx := context.Background()

	_, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	_, student := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)

	got, err := svc.AverageMarks(ctx, student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	testutil.RecordProgress(t, st, student.ID, teacher.ID, 1, 80, 100)
	testutil.RecordProgress(t, st, student.ID, teacher.ID, 2, 30, 50)
	maths := progress.Entry{
		StudentID:      student.ID,
		TeacherID:      teacher.ID,
		Subject:        "Maths",
		AssignmentName: "Algebra",
		MarksObtained:  9,
		TotalMarks:     10,
		Date:           core.Today(),
		CreatedAt:      core.Now(),
	}
	maths.CalculatePercentage()
	_, err = st.Progress.CreateEntry(ctx, maths)
	require.NoError(t, err)

	tests := []struct {
		subject string
		want    float64
	}{
		{subject: "", want: 230.0 / 3},
		{subject: "Computer Science", want: 70},
		{subject: "Maths", want: 90},
		{subject: "History", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, err := svc.AverageMarks(ctx, student.ID, tt.subject)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestService_student(t *testing.T) {
	st := testutil.NewInmemStores()
	svc := newService(st)
	ctx := context.Background()

	_, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	sAcc, student := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)
	for days := 0; days < 12; days++ {
		testutil.MarkAttendance(t, st, student.ID, teacher.ID, days*5, days%2 == 0)
	}
	for days := 1; days <= 7; days++ {
		testutil.RecordProgress(t, st, student.ID, teacher.ID, days, float64(days*10), 100)
	}
	id := access.NewIdentity(sAcc)

	t.Run("dashboard", func(t *testing.T) {
		dash, err := svc.StudentDashboard(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, student, dash.Student)
		// days 0..30: 0,10,20,30 present; 5,15,25 absent
		assert.InDelta(t, 400.0/7, dash.Attendance30, 1e-9)
		// every mark: 6 present, 6 absent
		assert.InDelta(t, 600.0/12, dash.Attendance60, 1e-9)
		require.Len(t, dash.RecentAttendance, 10)
		assert.True(t, core.Today().Equal(dash.RecentAttendance[0].Date))
		require.Len(t, dash.RecentProgress, 5)
		assert.Equal(t, "Assignment 1", dash.RecentProgress[0].AssignmentName)
	})

	t.Run("attendance chart", func(t *testing.T) {
		series, err := svc.AttendanceChart(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0, 1, 0, 1, 0, 1}, series.Data)
		assert.Equal(t, core.Today().AddDays(-30).String(), series.Labels[0])
		assert.Equal(t, core.Today().String(), series.Labels[6])
	})

	t.Run("progress chart", func(t *testing.T) {
		series, err := svc.ProgressChart(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []float64{70, 60, 50, 40, 30, 20, 10}, series.Data)
		assert.Equal(t, "Assignment 7", series.Labels[0])
		assert.Equal(t, "Assignment 1", series.Labels[6])
	})

	t.Run("students only", func(t *testing.T) {
		pAcc, _ := testutil.CreateParent(t, st, "mum")
		_, err := svc.StudentDashboard(ctx, access.NewIdentity(pAcc))
		assert.Equal(t, access.ErrUnauthorized, err)
	})
}

func TestService_parent(t *testing.T) {
	st := testutil.NewInmemStores()
	svc := newService(st)
	ctx := context.Background()

	_, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	pAcc, parent := testutil.CreateParent(t, st, "mum")
	_, bob := testutil.CreateStudent(t, st, "bob", "cs002", "CSE-A", parent.ID)
	_, ann := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", parent.ID)
	_, eve := testutil.CreateStudent(t, st, "eve", "cs003", "CSE-A", 0)

	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 1, true)
	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 2, false)
	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 40, false) // out of window
	testutil.RecordProgress(t, st, ann.ID, teacher.ID, 1, 25, 50)
	testutil.RecordProgress(t, st, bob.ID, teacher.ID, 1, 15, 20)
	id := access.NewIdentity(pAcc)

	t.Run("dashboard", func(t *testing.T) {
		dash, err := svc.ParentDashboard(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, parent, dash.Parent)
		assert.Equal(t, []report.ChildSummary{
			{Student: ann, Attendance: 50, AvgMarks: 50},
			{Student: bob, Attendance: 0, AvgMarks: 75},
		}, dash.Children)
	})

	t.Run("detail", func(t *testing.T) {
		detail, err := svc.StudentDetail(ctx, id, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, ann, detail.Student)
		require.Len(t, detail.AttendanceRecords, 3)
		assert.True(t, detail.AttendanceRecords[0].Present)
		require.Len(t, detail.ProgressRecords, 1)
		assert.Equal(t, 50.0, detail.AttendancePercentage)
		assert.Equal(t, 50.0, detail.AverageMarks)
	})

	t.Run("not their child", func(t *testing.T) {
		_, err := svc.StudentDetail(ctx, id, eve.ID)
		assert.Equal(t, access.ErrOwnership, err)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.StudentDetail(ctx, id, 9999)
		assert.Equal(t, profile.ErrStudentNotFound, err)
	})
}

func teacherFixture(t *testing.T) (*report.Service, access.Identity) {
	st := testutil.NewInmemStores()
	tAcc, teacher := testutil.CreateTeacher(t, st, "mrx", "CSE-A")
	_, ann := testutil.CreateStudent(t, st, "ann", "cs001", "CSE-A", 0)
	_, bob := testutil.CreateStudent(t, st, "bob", "cs002", "CSE-A", 0)
	testutil.CreateStudent(t, st, "eve", "cs101", "CSE-B", 0)

	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 0, true)
	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 1, true)
	testutil.MarkAttendance(t, st, ann.ID, teacher.ID, 2, false)
	testutil.RecordProgress(t, st, bob.ID, teacher.ID, 1, 1, 3)
	return newService(st), access.NewIdentity(tAcc)
}

func TestService_teacher(t *testing.T) {
	svc, id := teacherFixture(t)
	ctx := context.Background()

	dash, err := svc.TeacherDashboard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalStudents)

	reports, err := svc.TeacherReports(ctx, id)
	require.NoError(t, err)
	require.Len(t, reports.Rows, 2)
	assert.Equal(t, "cs001", reports.Rows[0].Student.RollNumber)
	assert.Equal(t, 66.67, reports.Rows[0].Attendance)
	assert.Equal(t, 0.0, reports.Rows[0].AvgMarks)
	assert.Equal(t, "cs002", reports.Rows[1].Student.RollNumber)
	assert.Equal(t, 0.0, reports.Rows[1].Attendance)
	assert.Equal(t, 33.33, reports.Rows[1].AvgMarks)
}

func TestService_ExportReports(t *testing.T) {
	svc, id := teacherFixture(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportReports(context.Background(), id, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Roll Number", "Full Name", "Class", "Attendance (%)", "Average Marks (%)"},
		{"cs001", "Student ann", "CSE-A", "66.67", "0"},
		{"cs002", "Student bob", "CSE-A", "0", "33.33"},
	}, rows)
}

func TestExportFilename(t *testing.T) {
	name := report.ExportFilename()
	assert.Regexp(t, `^reports_\d{8}_\d{6}\.xlsx$`, name)
}

func TestSortable(t *testing.T) {
	assert.Equal(t, []string{"attendance", "avg_marks", "full_name", "roll_number"}, report.SortFields())
	for _, f := range report.SortFields() {
		assert.True(t, report.Sortable(f), f)
	}
	assert.False(t, report.Sortable("-roll_number"))
	assert.False(t, report.Sortable(""))
}

func TestSortRows(t *testing.T) {
	rows := func() []report.ReportRow {
		return []report.ReportRow{
			{Student: profile.Student{RollNumber: "cs001", FullName: "Ann"}, Attendance: 50, AvgMarks: 70},
			{Student: profile.Student{RollNumber: "cs002", FullName: "Bob"}, Attendance: 50, AvgMarks: 90},
			{Student: profile.Student{RollNumber: "cs003", FullName: "Cid"}, Attendance: 80, AvgMarks: 60},
		}
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "none", want: []string{"cs001", "cs002", "cs003"}},
		{name: "unknown field", ordering: []core.DBOrdering{core.OrderBy("lol")}, want: []string{"cs001", "cs002", "cs003"}},
		{name: "full name desc", ordering: []core.DBOrdering{core.OrderBy("full_name")}, want: []string{"cs003", "cs002", "cs001"}},
		{name: "avg marks asc", ordering: []core.DBOrdering{core.OrderBy("avg_marks", true)}, want: []string{"cs003", "cs001", "cs002"}},
		{
			name:     "attendance then roll desc",
			ordering: []core.DBOrdering{core.OrderBy("attendance", true), core.OrderBy("roll_number")},
			want:     []string{"cs002", "cs001", "cs003"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rows()
			report.SortRows(got, tt.ordering)
			rolls := make([]string, 0, len(got))
			for _, r := range got {
				rolls = append(rolls, r.Student.RollNumber)
			}
			assert.Equal(t, tt.want, rolls)
		})
	}
}
