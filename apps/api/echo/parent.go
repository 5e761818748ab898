package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core/report"
)

type parentApi struct {
	reports *report.Service
}

func registerParentAPI(g *echo.Group, reports *report.Service) {
	api := parentApi{reports: reports}

	g.GET("/dashboard", api.dashboard)
	g.GET("/students/:id", api.studentDetail)
}

// Handlers

func (api *parentApi) dashboard(ctx echo.Context) error {
	dash, err := api.reports.ParentDashboard(ctx.Request().Context(), getIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "building parent dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *parentApi) studentDetail(ctx echo.Context) error {
	studentID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	detail, err := api.reports.StudentDetail(ctx.Request().Context(), getIdentity(ctx), studentID)
	if err != nil {
		return errors.Wrap(err, "building student detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}
