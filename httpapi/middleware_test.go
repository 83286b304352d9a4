package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standards-gateway/apperr"
)

func TestRequireAuthMissingHeader(t *testing.T) {
	e := newEcho()
	d := newTestDeps()
	mw := RequireAuth(d.Auth)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(func(c echo.Context) error { return nil })(c)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthMissing, ae.Kind)
}

func TestRequireAuthMalformedToken(t *testing.T) {
	e := newEcho()
	d := newTestDeps()
	mw := RequireAuth(d.Auth)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(func(c echo.Context) error { return nil })(c)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthInvalid, ae.Kind)
}

func TestRequireAuthValidToken(t *testing.T) {
	e := newEcho()
	d := newTestDeps()
	doJSON(e, d.Register, http.MethodPost, "/api/auth/register",
		`{"email":"dana@example.com","password":"Password123!@#$","username":"dana"}`)
	result, err := d.Auth.Login("dana@example.com", "Password123!@#$")
	require.NoError(t, err)

	mw := RequireAuth(d.Auth)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+result.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *echo.Context
	handlerErr := mw(func(c echo.Context) error {
		captured = &c
		return nil
	})(c)
	require.NoError(t, handlerErr)
	require.NotNil(t, captured)
	assert.Equal(t, "dana@example.com", CurrentUser(*captured).Email)
}
