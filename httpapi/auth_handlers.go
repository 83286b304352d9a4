package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"standards-gateway/apperr"
	"standards-gateway/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Register → POST /auth/register. Validation and conflict failures map
// to 400/409 via apperr; success returns 201.
func (d *Deps) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body", nil)
	}

	user, err := d.Auth.Register(req.Email, req.Password, req.Username)
	if err != nil {
		return translateAuthError(err)
	}
	return ok(c, http.StatusCreated, "registration successful", user.ToResponse())
}

type loginRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

// Login → POST /auth/login. Per the "uniform failure" contract, any
// credential/account failure returns HTTP 200 success=false rather than
// 401, so a client cannot distinguish unknown-user from wrong-password.
func (d *Deps) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body", nil)
	}

	result, err := d.Auth.Login(req.Credential, req.Password)
	if err != nil {
		return fail(c, http.StatusOK, "invalid credentials", nil)
	}

	return ok(c, http.StatusOK, "login successful", map[string]interface{}{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User.ToResponse(),
	})
}

// Logout → POST /auth/logout. Revokes the bearer token found on the
// request; a missing/already-invalid token is a no-op success, matching
// Logout's own tolerant semantics.
func (d *Deps) Logout(c echo.Context) error {
	token := bearerToken(c)
	if token != "" {
		_ = d.Auth.Logout(token)
	}
	return ok(c, http.StatusOK, "logged out", nil)
}

// Profile → GET /auth/profile. Requires auth middleware to have run.
func (d *Deps) Profile(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperr.New(apperr.KindAuthMissing, "missing bearer token")
	}
	return ok(c, http.StatusOK, "", user.ToResponse())
}

// VerifyToken → POST /auth/verify-token. Distinguishes revoked/expired/
// invalid rather than reusing the RequireAuth
// middleware, since this endpoint's whole job is to report that split.
func (d *Deps) VerifyToken(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		_ = c.Bind(&body)
		token = body.Token
	}
	if token == "" {
		return apperr.New(apperr.KindAuthMissing, "missing token")
	}

	user, err := d.Auth.VerifyToken(token)
	if err != nil {
		return translateAuthError(err)
	}
	return ok(c, http.StatusOK, "token valid", user.ToResponse())
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword → POST /auth/forgot-password. Always reports generic
// success to avoid account enumeration.
func (d *Deps) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	_, _ = d.Auth.ForgotPassword(req.Email)
	return ok(c, http.StatusOK, "if the account exists, a reset link has been issued", nil)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword → POST /auth/reset-password.
func (d *Deps) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	if err := d.Auth.ResetPassword(req.Token, req.NewPassword); err != nil {
		return translateAuthError(err)
	}
	return ok(c, http.StatusOK, "password reset", nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword → POST /auth/change-password. Authenticated.
func (d *Deps) ChangePassword(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperr.New(apperr.KindAuthMissing, "missing bearer token")
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	if err := d.Auth.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return translateAuthError(err)
	}
	return ok(c, http.StatusOK, "password changed", nil)
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// translateAuthError maps the auth package's sentinel errors onto the
// apperr taxonomy at the HTTP boundary, keeping auth.Service itself free
// of any HTTP-layer dependency.
func translateAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return apperr.New(apperr.KindConflict, "account already exists")
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrEmptyPassword), errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrSamePassword):
		return apperr.Validation(err.Error(), nil)
	case errors.Is(err, auth.ErrRevokedToken):
		return apperr.New(apperr.KindAuthRevoked, "token has been revoked")
	case errors.Is(err, auth.ErrExpiredToken):
		return apperr.New(apperr.KindAuthExpired, "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		return apperr.New(apperr.KindAuthInvalid, "malformed token")
	case errors.Is(err, auth.ErrUserNotFound):
		return apperr.New(apperr.KindAuthMissing, "account unavailable")
	case errors.Is(err, auth.ErrAccountDisabled):
		return apperr.New(apperr.KindForbidden, "account disabled")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.New(apperr.KindAuthMissing, "invalid credentials")
	case errors.Is(err, auth.ErrResetTokenInvalid):
		return apperr.Validation("reset token invalid or expired", nil)
	default:
		return apperr.Wrap(apperr.KindInternal, "authentication error", err)
	}
}
