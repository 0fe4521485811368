package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrBadCredentials is returned for a wrong admin password.
	ErrBadCredentials = errors.New("incorrect admin password")
	// ErrInvalidToken is returned for tokens that are malformed, forged,
	// expired, or whose session has been revoked.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

const issuer = "partystat"

// Claims are the JWT claims carried by an admin session token.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Manager checks the admin password and issues HS256 session tokens.
type Manager struct {
	store         *Store
	adminPassword []byte
	signingKey    []byte
	ttl           time.Duration
}

func NewManager(store *Store, adminPassword string, signingKey []byte, ttl time.Duration) *Manager {
	return &Manager{
		store:         store,
		adminPassword: []byte(adminPassword),
		signingKey:    signingKey,
		ttl:           ttl,
	}
}

// Login verifies the admin password and issues a signed token whose session
// is recorded server-side. Expired sessions are pruned on the way.
func (m *Manager) Login(ctx context.Context, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), m.adminPassword) != 1 {
		return "", ErrBadCredentials
	}

	now := time.Now()
	if err := m.store.pruneExpired(ctx, now); err != nil {
		return "", err
	}

	id := uuid.NewString()
	expiresAt := now.Add(m.ttl)
	if err := m.store.insert(ctx, id, now, expiresAt); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate checks signature and expiry, then requires the session to still be
// live in the store.
func (m *Manager) Validate(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	live, err := m.store.live(ctx, claims.SessionID, time.Now())
	if err != nil {
		return err
	}
	if !live {
		return ErrInvalidToken
	}
	return nil
}

// Revoke terminates the token's session. Revoking an unknown or already
// revoked session is a no-op; a forged token is still rejected.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	return m.store.delete(ctx, claims.SessionID)
}

// LoadOrCreateSigningKey reads the token signing key at path, generating and
// persisting a fresh one on first start.
func LoadOrCreateSigningKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil && len(key) >= 32 {
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("persisting signing key: %w", err)
	}
	return key, nil
}
