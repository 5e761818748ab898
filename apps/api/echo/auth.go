package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
	"github.com/trezcool/attendtrack/core/user"
)

const (
	contextTokenKey    = "userToken"
	contextAccountKey  = "account"
	contextIdentityKey = "identity"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role,omitempty"` // -> dashboard
}

func GetUserClaims(acc user.Account, conf *core.Config, origIat ...int64) *Claims {
	now := core.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(acc.ID, 10),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     acc.Username,
		Email:        acc.Email,
		Role:         acc.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, access.ErrUnauthenticated
}

// identityMiddleware loads the account named by the token and resolves the request
// Identity. It must run after the JWT middleware.
func identityMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return access.ErrUnauthenticated
			}

			acc, err := svc.GetByID(ctx.Request().Context(), accountID)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return access.ErrUnauthenticated
				}
				return errors.Wrap(err, "finding account by ID")
			}
			ctx.Set(contextAccountKey, acc)
			ctx.Set(contextIdentityKey, access.NewIdentity(acc))
			return next(ctx)
		}
	}
}

// getIdentity returns the request Identity; it is anonymous on public routes.
func getIdentity(ctx echo.Context) access.Identity {
	id, _ := ctx.Get(contextIdentityKey).(access.Identity)
	return id
}

func getContextAccount(ctx echo.Context) (user.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(user.Account); ok {
		return acc, nil
	}
	return user.Account{}, access.ErrUnauthenticated
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := getContextAccount(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context account")
	}

	// check if account is still active
	if !acc.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if core.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(GetUserClaims(acc, conf, claims.OrigIssuedAt), conf)
	return token, errors.Wrap(err, "generating token")
}

// dashboardPath is where an account lands after login.
func dashboardPath(acc user.Account) string {
	if acc.MustChangePassword {
		return passwordPath
	}
	switch acc.Role {
	case user.RoleStudent:
		return studentDashboardPath
	case user.RoleTeacher:
		return teacherDashboardPath
	case user.RoleParent:
		return parentDashboardPath
	}
	return loginPath
}
