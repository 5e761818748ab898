// Package report aggregates attendance and progress into the dashboards of each role.
package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
)

const (
	defaultWindowDays = 30
	longWindowDays    = 60

	recentAttendanceLimit = 10
	recentProgressLimit   = 5
	detailAttendanceLimit = 30
	progressChartLimit    = 10
)

var byDateDesc = core.OrderBy("date")

type (
	StudentDashboard struct {
		Student          profile.Student    `json:"student"`
		Attendance30     float64            `json:"attendance_30"`
		Attendance60     float64            `json:"attendance_60"`
		RecentAttendance []attendance.Entry `json:"recent_attendance"`
		RecentProgress   []progress.Entry   `json:"recent_progress"`
	}

	ChildSummary struct {
		Student    profile.Student `json:"student"`
		Attendance float64         `json:"attendance"`
		AvgMarks   float64         `json:"avg_marks"`
	}

	ParentDashboard struct {
		Parent   profile.Parent `json:"parent"`
		Children []ChildSummary `json:"children"`
	}

	StudentDetail struct {
		Student              profile.Student    `json:"student"`
		AttendanceRecords    []attendance.Entry `json:"attendance_records"`
		ProgressRecords      []progress.Entry   `json:"progress_records"`
		AttendancePercentage float64            `json:"attendance_percentage"`
		AverageMarks         float64            `json:"average_marks"`
	}

	TeacherDashboard struct {
		Teacher       profile.Teacher `json:"teacher"`
		TotalStudents int             `json:"total_students"`
	}

	ReportRow struct {
		Student    profile.Student `json:"student"`
		Attendance float64         `json:"attendance"`
		AvgMarks   float64         `json:"avg_marks"`
	}

	TeacherReports struct {
		Teacher profile.Teacher `json:"teacher"`
		Rows    []ReportRow     `json:"rows"`
	}
)

type Service struct {
	profiles   *profile.Service
	attendance attendance.Repository
	progress   progress.Repository
	windowDays int
}

// NewService returns the aggregation service. windowDays is the default attendance
// window; 30 days when not positive.
func NewService(profiles *profile.Service, att attendance.Repository, prog progress.Repository, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &Service{profiles: profiles, attendance: att, progress: prog, windowDays: windowDays}
}

// windowStart returns the first date of a window of days ending today.
func windowStart(days int) core.Date {
	return core.Today().AddDays(-days)
}

// AttendancePercentage returns the share of present entries of the student dated
// within the last windowDays days (today - windowDays included).
func (svc *Service) AttendancePercentage(ctx context.Context, studentID int64, windowDays int) (float64, error) {
	if windowDays <= 0 {
		windowDays = svc.windowDays
	}
	entries, err := svc.attendance.QueryEntries(ctx, attendance.Filter{StudentID: studentID, From: windowStart(windowDays)})
	if err != nil {
		return 0, errors.Wrap(err, "querying attendance")
	}
	return attendance.Percentage(entries), nil
}

// AverageMarks returns the mean progress percentage of the student, optionally for
// one subject only.
func (svc *Service) AverageMarks(ctx context.Context, studentID int64, subject string) (float64, error) {
	entries, err := svc.progress.QueryEntries(ctx, progress.Filter{StudentID: studentID, Subject: subject})
	if err != nil {
		return 0, errors.Wrap(err, "querying progress")
	}
	return progress.AveragePercentage(entries), nil
}

func (svc *Service) StudentDashboard(ctx context.Context, id access.Identity) (StudentDashboard, error) {
	student, err := svc.profiles.Student(ctx, id)
	if err != nil {
		return StudentDashboard{}, err
	}

	dash := StudentDashboard{Student: student}
	if dash.Attendance30, err = svc.AttendancePercentage(ctx, student.ID, defaultWindowDays); err != nil {
		return StudentDashboard{}, err
	}
	if dash.Attendance60, err = svc.AttendancePercentage(ctx, student.ID, longWindowDays); err != nil {
		return StudentDashboard{}, err
	}
	dash.RecentAttendance, err = svc.attendance.QueryEntries(ctx,
		attendance.Filter{StudentID: student.ID, Limit: recentAttendanceLimit}, byDateDesc)
	if err != nil {
		return StudentDashboard{}, errors.Wrap(err, "querying recent attendance")
	}
	dash.RecentProgress, err = svc.progress.QueryEntries(ctx,
		progress.Filter{StudentID: student.ID, Limit: recentProgressLimit}, byDateDesc)
	if err != nil {
		return StudentDashboard{}, errors.Wrap(err, "querying recent progress")
	}
	return dash, nil
}

func (svc *Service) ParentDashboard(ctx context.Context, id access.Identity) (ParentDashboard, error) {
	parent, err := svc.profiles.Parent(ctx, id)
	if err != nil {
		return ParentDashboard{}, err
	}
	children, err := svc.profiles.Children(ctx, parent)
	if err != nil {
		return ParentDashboard{}, err
	}

	dash := ParentDashboard{Parent: parent, Children: make([]ChildSummary, 0, len(children))}
	for _, child := range children {
		summary, err := svc.summarize(ctx, child)
		if err != nil {
			return ParentDashboard{}, err
		}
		dash.Children = append(dash.Children, ChildSummary(summary))
	}
	return dash, nil
}

// StudentDetail returns the records of one of the parent's children.
func (svc *Service) StudentDetail(ctx context.Context, id access.Identity, studentID int64) (StudentDetail, error) {
	parent, err := svc.profiles.Parent(ctx, id)
	if err != nil {
		return StudentDetail{}, err
	}
	student, err := svc.profiles.ChildOf(ctx, parent, studentID)
	if err != nil {
		return StudentDetail{}, err
	}

	detail := StudentDetail{Student: student}
	detail.AttendanceRecords, err = svc.attendance.QueryEntries(ctx,
		attendance.Filter{StudentID: student.ID, Limit: detailAttendanceLimit}, byDateDesc)
	if err != nil {
		return StudentDetail{}, errors.Wrap(err, "querying attendance records")
	}
	detail.ProgressRecords, err = svc.progress.QueryEntries(ctx, progress.Filter{StudentID: student.ID}, byDateDesc)
	if err != nil {
		return StudentDetail{}, errors.Wrap(err, "querying progress records")
	}
	if detail.AttendancePercentage, err = svc.AttendancePercentage(ctx, student.ID, svc.windowDays); err != nil {
		return StudentDetail{}, err
	}
	detail.AverageMarks = progress.AveragePercentage(detail.ProgressRecords)
	return detail, nil
}

func (svc *Service) TeacherDashboard(ctx context.Context, id access.Identity) (TeacherDashboard, error) {
	teacher, err := svc.profiles.Teacher(ctx, id)
	if err != nil {
		return TeacherDashboard{}, err
	}
	total, err := svc.profiles.RosterSize(ctx, teacher)
	if err != nil {
		return TeacherDashboard{}, err
	}
	return TeacherDashboard{Teacher: teacher, TotalStudents: total}, nil
}

// TeacherReports returns the attendance and average marks of every roster student,
// rounded to 2 decimal places.
func (svc *Service) TeacherReports(ctx context.Context, id access.Identity) (TeacherReports, error) {
	teacher, err := svc.profiles.Teacher(ctx, id)
	if err != nil {
		return TeacherReports{}, err
	}
	roster, err := svc.profiles.Roster(ctx, teacher)
	if err != nil {
		return TeacherReports{}, err
	}

	reports := TeacherReports{Teacher: teacher, Rows: make([]ReportRow, 0, len(roster))}
	for _, s := range roster {
		row, err := svc.summarize(ctx, s)
		if err != nil {
			return TeacherReports{}, err
		}
		row.Attendance = core.Round2(row.Attendance)
		row.AvgMarks = core.Round2(row.AvgMarks)
		reports.Rows = append(reports.Rows, row)
	}
	return reports, nil
}

func (svc *Service) summarize(ctx context.Context, s profile.Student) (ReportRow, error) {
	att, err := svc.AttendancePercentage(ctx, s.ID, svc.windowDays)
	if err != nil {
		return ReportRow{}, err
	}
	avg, err := svc.AverageMarks(ctx, s.ID, "")
	if err != nil {
		return ReportRow{}, err
	}
	return ReportRow{Student: s, Attendance: att, AvgMarks: avg}, nil
}
