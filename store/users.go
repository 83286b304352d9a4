package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"standards-gateway/auth"
)

func toAuthUser(u *User) *auth.User {
	if u == nil {
		return nil
	}
	return &auth.User{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		PasswordHash:      u.PasswordHash,
		IsActive:          u.IsActive,
		LastLogin:         u.LastLogin,
		ResetToken:        u.ResetToken,
		ResetTokenExpires: u.ResetTokenExpires,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func fromAuthUser(u *auth.User) *User {
	return &User{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		PasswordHash:      u.PasswordHash,
		IsActive:          u.IsActive,
		LastLogin:         u.LastLogin,
		ResetToken:        u.ResetToken,
		ResetTokenExpires: u.ResetTokenExpires,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// CreateUser persists a new user row.
func (s *Store) CreateUser(u *auth.User) error {
	return s.db.Create(fromAuthUser(u)).Error
}

func (s *Store) GetUserByID(id string) (*auth.User, error) {
	var u User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(&u), nil
}

func (s *Store) GetUserByEmail(email string) (*auth.User, error) {
	var u User
	if err := s.db.First(&u, "email = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(&u), nil
}

func (s *Store) GetUserByUsername(username string) (*auth.User, error) {
	var u User
	if err := s.db.First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(&u), nil
}

// GetUserByCredential matches email or username, per the login contract.
func (s *Store) GetUserByCredential(credential string) (*auth.User, error) {
	var u User
	err := s.db.Where("email = ? OR username = ?", strings.ToLower(credential), credential).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(&u), nil
}

// GetUserByResetToken backs the optional resetTokenLookup interface the
// auth service type-asserts for.
func (s *Store) GetUserByResetToken(token string) (*auth.User, error) {
	var u User
	if err := s.db.First(&u, "reset_token = ? AND reset_token != ''", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(&u), nil
}

func (s *Store) UpdateUser(u *auth.User) error {
	return s.db.Save(fromAuthUser(u)).Error
}
