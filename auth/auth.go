package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStore is the persistence seam the auth service depends on; the
// relational store implements it.
type UserStore interface {
	CreateUser(user *User) error
	GetUserByID(id string) (*User, error)
	GetUserByCredential(credential string) (*User, error) // matches email or username
	GetUserByEmail(email string) (*User, error)
	GetUserByUsername(username string) (*User, error)
	UpdateUser(user *User) error
}

// Service implements the identity & session operations of the gateway:
// register, login, logout, token verification, password change and
// reset, each translating domain outcomes into apperr at call sites
// above it (handlers), while this layer returns the plain sentinel
// errors from errors.go so it stays independent of the HTTP layer.
type Service struct {
	store   UserStore
	tokens  *TokenService
	revoked *RevokedSet
}

func NewService(store UserStore, tokens *TokenService, revoked *RevokedSet) *Service {
	return &Service{store: store, tokens: tokens, revoked: revoked}
}

// Register validates input and creates a new user with is_active=true.
func (s *Service) Register(email, password, username string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if username != "" {
		if err := ValidateUsername(username); err != nil {
			return nil, err
		}
	}
	if err := CheckPasswordStrength(password, true); err != nil {
		return nil, err
	}

	if existing, _ := s.store.GetUserByEmail(email); existing != nil {
		return nil, ErrUserExists
	}
	if username != "" {
		if existing, _ := s.store.GetUserByUsername(username); existing != nil {
			return nil, ErrUserExists
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginResult carries the issued token plus its metadata for response
// building and cookie/expiry reporting.
type LoginResult struct {
	User      *User
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Login resolves credential (email or username) and password. Per the
// deliberate "uniform failure" contract, callers MUST translate a
// returned error into HTTP 200 success=false, never 401/404, so clients
// cannot distinguish "no such user" from "wrong password".
func (s *Service) Login(credential, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByCredential(credential)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := ValidatePassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, jti, expiresAt, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	_ = s.store.UpdateUser(user)

	return &LoginResult{User: user, Token: token, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Logout adds the token's jti to the revoked set.
func (s *Service) Logout(tokenString string) error {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		// Already invalid/expired tokens need no explicit revocation.
		return nil
	}
	expiry := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	s.revoked.Revoke(claims.ID, expiry)
	return nil
}

// VerifyToken validates signature, expiry and revocation, then loads the
// current user snapshot.
func (s *Service) VerifyToken(tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.revoked.IsRevoked(claims.ID) {
		return nil, ErrRevokedToken
	}
	user, err := s.store.GetUserByID(claims.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// ChangePassword requires the current password to match and the new
// password to pass strength rules and differ from the current one.
func (s *Service) ChangePassword(userID, current, newPassword string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil || user == nil {
		return ErrUserNotFound
	}
	if err := ValidatePassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword, user.PasswordHash); err == nil {
		return ErrSamePassword
	}
	if err := CheckPasswordStrength(newPassword, true); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	return s.store.UpdateUser(user)
}

// ForgotPassword issues a single-use, 1-hour TTL reset token for the
// account matching email, if one exists. Callers MUST return a uniform
// response regardless of whether the email was found, to avoid account
// enumeration.
func (s *Service) ForgotPassword(email string) (string, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil || user == nil {
		return "", nil // uniform no-op; caller reports generic success
	}
	token, err := generateResetToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(time.Hour)
	user.ResetToken = token
	user.ResetTokenExpires = &expires
	if err := s.store.UpdateUser(user); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token (single use) and sets newPassword.
func (s *Service) ResetPassword(token, newPassword string) error {
	if token == "" {
		return ErrResetTokenInvalid
	}
	user, err := s.findByResetToken(token)
	if err != nil || user == nil {
		return ErrResetTokenInvalid
	}
	if user.ResetTokenExpires == nil || user.ResetTokenExpires.Before(time.Now()) {
		user.ResetToken = ""
		user.ResetTokenExpires = nil
		_ = s.store.UpdateUser(user)
		return ErrResetTokenInvalid
	}
	if err := CheckPasswordStrength(newPassword, true); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpires = nil
	user.UpdatedAt = time.Now().UTC()
	return s.store.UpdateUser(user)
}

// findByResetTokenStore is set by the store package's lookup, since
// UserStore has no dedicated reset-token query; the relational
// implementation scans by the indexed reset_token column via a
// type-asserted optional interface, keeping UserStore itself minimal for
// other backends that may never support password reset.
type resetTokenLookup interface {
	GetUserByResetToken(token string) (*User, error)
}

func (s *Service) findByResetToken(token string) (*User, error) {
	if rl, ok := s.store.(resetTokenLookup); ok {
		return rl.GetUserByResetToken(token)
	}
	return nil, ErrResetTokenInvalid
}
