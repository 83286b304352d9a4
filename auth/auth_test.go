package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	byID    map[string]*User
	byEmail map[string]*User
	byUser  map[string]*User
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*User{}, byEmail: map[string]*User{}, byUser: map[string]*User{}}
}

func (m *memStore) CreateUser(u *User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	if u.Username != "" {
		m.byUser[u.Username] = u
	}
	return nil
}
func (m *memStore) GetUserByID(id string) (*User, error) { return m.byID[id], nil }
func (m *memStore) GetUserByCredential(credential string) (*User, error) {
	if u, ok := m.byEmail[credential]; ok {
		return u, nil
	}
	return m.byUser[credential], nil
}
func (m *memStore) GetUserByEmail(email string) (*User, error)       { return m.byEmail[email], nil }
func (m *memStore) GetUserByUsername(username string) (*User, error) { return m.byUser[username], nil }
func (m *memStore) UpdateUser(u *User) error                         { m.byID[u.ID] = u; return nil }
func (m *memStore) GetUserByResetToken(token string) (*User, error) {
	for _, u := range m.byID {
		if u.ResetToken == token {
			return u, nil
		}
	}
	return nil, nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	tokens := NewTokenService("test-secret", time.Hour)
	revoked := NewRevokedSet()
	return NewService(store, tokens, revoked), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register("alice@example.com", "Password123!@#$", "alice")
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	result, err := svc.Login("alice@example.com", "Password123!@#$")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login("alice", "Password123!@#$")
	require.NoError(t, err)

	_, err = svc.Login("alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordStrengthBoundary(t *testing.T) {
	assert.ErrorIs(t, CheckPasswordStrength("Sh0rt!!!!!1", true), ErrPasswordTooShort) // 11 chars
	assert.NoError(t, CheckPasswordStrength("Sh0rt!!!!!12", true))                     // 12 chars
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register("bob@example.com", "Password123!@#$", "")
	require.NoError(t, err)
	result, err := svc.Login("bob@example.com", "Password123!@#$")
	require.NoError(t, err)

	_, err = svc.VerifyToken(result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(result.Token))

	_, err = svc.VerifyToken(result.Token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestResetPasswordSingleUse(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register("carol@example.com", "Password123!@#$", "")
	require.NoError(t, err)

	token, err := svc.ForgotPassword("carol@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(token, "NewPassword456!@#$"))

	// token is single-use
	err = svc.ResetPassword(token, "AnotherPassword789!@#$")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}
