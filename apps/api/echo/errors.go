package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/setup"
	"github.com/trezcool/attendtrack/core/user"
)

const (
	loginPath            = "/v1/login"
	passwordPath         = "/v1/password"
	parentDashboardPath  = "/v1/parent/dashboard"
	studentDashboardPath = "/v1/student/dashboard"
	teacherDashboardPath = "/v1/teacher/dashboard"
)

var (
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, user.ErrAccountDeactivated.Error())
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")

	// access denials tell the client where to go instead
	redirects = map[error]string{
		access.ErrUnauthorized:           loginPath,
		access.ErrPasswordChangeRequired: passwordPath,
		access.ErrOwnership:              parentDashboardPath,
		access.ErrNotInRoster:            teacherDashboardPath,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch cause {
			case access.ErrUnauthorized, access.ErrPasswordChangeRequired, access.ErrOwnership, access.ErrNotInRoster:
				code = http.StatusForbidden
				message = echo.Map{"error": cause.Error(), "redirect": redirects[cause]}
			case access.ErrUnauthenticated:
				code = http.StatusUnauthorized
				message = cause.Error()
			case user.ErrAuthenticationFailed:
				code = http.StatusBadRequest
				message = cause.Error()
			case user.ErrAccountDeactivated:
				code = http.StatusForbidden
				message = cause.Error()
			case access.ErrProfileNotFound, user.ErrNotFound, profile.ErrNotFound, profile.ErrStudentNotFound:
				code = http.StatusNotFound
				message = cause.Error()
			case setup.ErrSetupCompleted:
				code = http.StatusConflict
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logger.Error(msg, errors.Wrap(err, msg), getIdentity(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
