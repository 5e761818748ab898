package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/user"
)

type accountApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAccountAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	conf *core.Config,
	svc *user.Service,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := accountApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	// un-authed endpoints
	g.POST("/login", api.login)
	g.POST("/register", api.register)

	// authed endpoints
	ag := g.Group("", authed...)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me)
	ag.POST("/password", api.changePassword)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(acc, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		Role:     acc.Role,
		Redirect: dashboardPath(acc),
	})
}

func (api *accountApi) register(ctx echo.Context) error {
	var data user.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, api.validate, api.svc); err != nil {
		return err
	}

	acc, err := api.svc.Register(rctx, data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}

	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

// logout only acknowledges: tokens are stateless and expire on their own.
func (api *accountApi) logout(ctx echo.Context) error {
	id := getIdentity(ctx)
	api.logger.Info(fmt.Sprintf("%s logged out", id.Username), id)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "You have been logged out."})
}

func (api *accountApi) me(ctx echo.Context) error {
	if err := access.RequireAuthenticated(getIdentity(ctx)); err != nil {
		return err
	}
	acc, err := getContextAccount(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

// changePassword stays reachable while a password rotation is pending.
func (api *accountApi) changePassword(ctx echo.Context) error {
	if err := access.RequireAuthenticated(getIdentity(ctx)); err != nil {
		return err
	}
	acc, err := getContextAccount(ctx)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.validate, acc); err != nil {
		return err
	}

	acc, err = api.svc.ChangePassword(ctx.Request().Context(), acc, data)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Role: acc.Role, Redirect: dashboardPath(acc)})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token    string    `json:"token,omitempty"`
		Role     user.Role `json:"role"`
		Redirect string    `json:"redirect"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
