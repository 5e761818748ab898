package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core/setup"
)

type setupApi struct {
	svc      *setup.Service
	validate *validator.Validate
}

func registerSetupAPI(g *echo.Group, svc *setup.Service, validate *validator.Validate) {
	api := setupApi{svc: svc, validate: validate}

	g.GET("/setup", api.status)
	g.POST("/setup", api.run)
}

// Handlers

func (api *setupApi) status(ctx echo.Context) error {
	required, err := api.svc.Required(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking setup status")
	}
	return ctx.JSON(http.StatusOK, SetupStatusResponse{SetupRequired: required})
}

// run bootstraps an empty system. The one-time passwords are only ever shown here.
func (api *setupApi) run(ctx echo.Context) error {
	var data setup.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to setup.Request")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Run(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "running setup")
	}
	return ctx.JSON(http.StatusCreated, res)
}

type SetupStatusResponse struct {
	SetupRequired bool `json:"setup_required"`
}
