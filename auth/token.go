package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the standard registered claims plus the user id subject
// used by VerifyToken.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry}
}

// GenerateToken issues a new access token for userID, returning the token
// string, its jti (the revocation-set key), and its expiry.
func (ts *TokenService) GenerateToken(userID string) (string, string, time.Time, error) {
	jti := uuid.New().String()
	expiresAt := time.Now().Add(ts.expiry)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, expiresAt, nil
}

// ValidateToken parses and verifies a token's signature and expiry,
// returning its claims. Callers must additionally consult the revoked set.
func (ts *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// generateResetToken issues a 32-byte URL-safe random token.
func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// RevokedSet is a concurrent-safe membership test over revoked token ids,
// pruned periodically so memory does not grow unbounded over a long
// process lifetime. Loss on restart is acceptable: tokens carry short
// expiry, so a revoked token also becomes unusable once it naturally
// expires.
type RevokedSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> original expiry
}

func NewRevokedSet() *RevokedSet {
	return &RevokedSet{entries: make(map[string]time.Time)}
}

func (r *RevokedSet) Revoke(jti string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[jti] = expiresAt
}

func (r *RevokedSet) IsRevoked(jti string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[jti]
	return ok
}

// Prune drops entries whose embedded expiry has already passed; call
// periodically from a background ticker.
func (r *RevokedSet) Prune() {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for jti, exp := range r.entries {
		if exp.Before(now) {
			delete(r.entries, jti)
		}
	}
}

// RunPruner launches a ticker loop that prunes the revoked set until stop
// closes. A ticker + select
// over a stop channel) rather than its queue-based pool abstraction,
// since there is no queue here, just periodic maintenance.
func (r *RevokedSet) RunPruner(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Prune()
		}
	}
}
