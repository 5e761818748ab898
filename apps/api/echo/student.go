package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core/report"
)

type studentApi struct {
	reports *report.Service
}

func registerStudentAPI(g *echo.Group, reports *report.Service) {
	api := studentApi{reports: reports}

	g.GET("/dashboard", api.dashboard)
	g.GET("/charts/attendance", api.attendanceChart)
	g.GET("/charts/progress", api.progressChart)
}

// Handlers

func (api *studentApi) dashboard(ctx echo.Context) error {
	dash, err := api.reports.StudentDashboard(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building student dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *studentApi) attendanceChart(ctx echo.Context) error {
	series, err := api.reports.AttendanceChart(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building attendance chart")
	}
	return ctx.JSON(http.StatusOK, series)
}

func (api *studentApi) progressChart(ctx echo.Context) error {
	series, err := api.reports.ProgressChart(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building progress chart")
	}
	return ctx.JSON(http.StatusOK, series)
}
