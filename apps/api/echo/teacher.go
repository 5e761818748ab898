package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/report"
)

type teacherApi struct {
	reports    *report.Service
	attendance *attendance.Recorder
	progress   *progress.Recorder
	validate   *validator.Validate
}

func registerTeacherAPI(g *echo.Group, api teacherApi) {
	g.GET("/dashboard", api.dashboard)
	g.GET("/attendance", api.attendanceSheet)
	g.POST("/attendance", api.markAttendance)
	g.GET("/progress", api.progressForm)
	g.POST("/progress", api.recordProgress)
	g.GET("/reports", api.reportsList)
	g.GET("/reports/export", api.exportReports)
}

// Handlers

func (api *teacherApi) dashboard(ctx echo.Context) error {
	dash, err := api.reports.TeacherDashboard(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *teacherApi) attendanceSheet(ctx echo.Context) error {
	sheet, err := api.attendance.RosterSheet(ctx.Request().Context(), getIdentity(ctx), ctx.QueryParam("date"))
	if err != nil {
		return errors.Wrap(err, "loading attendance sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *teacherApi) markAttendance(ctx echo.Context) error {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entries, err := api.attendance.MarkRoster(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *teacherApi) progressForm(ctx echo.Context) error {
	teacher, students, err := api.progress.Form(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "loading progress form")
	}
	return ctx.JSON(http.StatusOK, ProgressFormResponse{Teacher: teacher, Students: students})
}

func (api *teacherApi) recordProgress(ctx echo.Context) error {
	var data progress.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progress.NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.progress.Record(ctx.Request().Context(), getIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *teacherApi) reportsList(ctx echo.Context) error {
	reports, err := api.reports.TeacherReports(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building teacher reports")
	}
	ordering, err := bindReportOrdering(ctx)
	if err != nil {
		return err
	}
	report.SortRows(reports.Rows, ordering)

	return ctx.JSON(http.StatusOK, reports)
}

func (api *teacherApi) exportReports(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.reports.ExportReports(ctx.Request().Context(), getIdentity(ctx), &buf); err != nil {
		return errors.Wrap(err, "exporting teacher reports")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.ExportFilename()))
	return ctx.Blob(http.StatusOK, report.XLSXMime, buf.Bytes())
}

type ProgressFormResponse struct {
	Teacher  profile.Teacher   `json:"teacher"`
	Students []profile.Student `json:"students"`
}
