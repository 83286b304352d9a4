package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"standards-gateway/apperr"
	"standards-gateway/auth"
)

// userContextKey is the echo.Context key the auth middleware stores the
// verified user under; handlers read it back with CurrentUser.
const userContextKey = "gateway_user"

// RequireAuth extracts and verifies the bearer token, mapping the auth
// package's sentinel errors onto the three-way 401/422/revoked split the
// external interface requires; this is why a custom middleware is used
// instead of bare echojwt, which only gives one failure shape.
func RequireAuth(authService *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return apperr.New(apperr.KindAuthMissing, "missing bearer token")
			}
			token := strings.TrimPrefix(header, "Bearer ")

			user, err := authService.VerifyToken(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrRevokedToken):
					return apperr.New(apperr.KindAuthRevoked, "token has been revoked")
				case errors.Is(err, auth.ErrExpiredToken):
					return apperr.New(apperr.KindAuthExpired, "token expired")
				case errors.Is(err, auth.ErrInvalidToken):
					return apperr.New(apperr.KindAuthInvalid, "malformed token")
				case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrAccountDisabled):
					return apperr.New(apperr.KindAuthMissing, "account unavailable")
				default:
					return apperr.Wrap(apperr.KindInternal, "token verification failed", err)
				}
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser reads back the user RequireAuth attached to the request.
func CurrentUser(c echo.Context) *auth.User {
	u, _ := c.Get(userContextKey).(*auth.User)
	return u
}
