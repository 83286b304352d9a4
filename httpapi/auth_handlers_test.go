package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standards-gateway/auth"
)

type memUserStore struct {
	byID    map[string]*auth.User
	byEmail map[string]*auth.User
	byUser  map[string]*auth.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]*auth.User{}, byEmail: map[string]*auth.User{}, byUser: map[string]*auth.User{}}
}

func (m *memUserStore) CreateUser(u *auth.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	if u.Username != "" {
		m.byUser[u.Username] = u
	}
	return nil
}
func (m *memUserStore) GetUserByID(id string) (*auth.User, error) { return m.byID[id], nil }
func (m *memUserStore) GetUserByCredential(credential string) (*auth.User, error) {
	if u, ok := m.byEmail[credential]; ok {
		return u, nil
	}
	return m.byUser[credential], nil
}
func (m *memUserStore) GetUserByEmail(email string) (*auth.User, error)       { return m.byEmail[email], nil }
func (m *memUserStore) GetUserByUsername(username string) (*auth.User, error) { return m.byUser[username], nil }
func (m *memUserStore) UpdateUser(u *auth.User) error                         { m.byID[u.ID] = u; return nil }
func (m *memUserStore) GetUserByResetToken(token string) (*auth.User, error) {
	for _, u := range m.byID {
		if u.ResetToken == token {
			return u, nil
		}
	}
	return nil, nil
}

func newTestDeps() *Deps {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	revoked := auth.NewRevokedSet()
	svc := auth.NewService(newMemUserStore(), tokens, revoked)
	return &Deps{Auth: svc}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

func doJSON(e *echo.Echo, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRegisterThenLogin(t *testing.T) {
	e := newEcho()
	d := newTestDeps()

	rec := doJSON(e, d.Register, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"Password123!@#$","username":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = doJSON(e, d.Login, http.MethodPost, "/api/auth/login",
		`{"credential":"alice@example.com","password":"Password123!@#$"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

// Login failures must never leak whether the account exists: wrong password
// and unknown account both come back as HTTP 200 success=false.
func TestLoginFailureAlwaysReturns200(t *testing.T) {
	e := newEcho()
	d := newTestDeps()
	doJSON(e, d.Register, http.MethodPost, "/api/auth/register",
		`{"email":"bob@example.com","password":"Password123!@#$","username":"bob"}`)

	rec := doJSON(e, d.Login, http.MethodPost, "/api/auth/login",
		`{"credential":"bob@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = doJSON(e, d.Login, http.MethodPost, "/api/auth/login",
		`{"credential":"nobody@example.com","password":"whatever123!@#"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestForgotPasswordAlwaysGeneric(t *testing.T) {
	e := newEcho()
	d := newTestDeps()

	rec := doJSON(e, d.ForgotPassword, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "if the account exists")
}

func TestProfileRequiresCurrentUser(t *testing.T) {
	e := newEcho()
	d := newTestDeps()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := d.Profile(c)
	require.Error(t, err)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	e := newEcho()
	d := newTestDeps()
	doJSON(e, d.Register, http.MethodPost, "/api/auth/register",
		`{"email":"carol@example.com","password":"Password123!@#$","username":"carol"}`)

	loginResult, loginErr := d.Auth.Login("carol@example.com", "Password123!@#$")
	require.NoError(t, loginErr)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password",
		strings.NewReader(`{"current_password":"wrong","new_password":"NewPassword123!@#$"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(userContextKey, loginResult.User)

	err := d.ChangePassword(c)
	require.Error(t, err)
}
