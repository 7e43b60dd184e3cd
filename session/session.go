// Package session issues and resolves login sessions. A session token is a
// signed JWT whose ID must also be present in a Store, so sessions can be
// revoked before they expire.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNotFound     = errors.New("session not found")
)

// Store maps session IDs to user IDs.
type Store interface {
	Save(ctx context.Context, id string, userID uint, ttl time.Duration) error
	Load(ctx context.Context, id string) (uint, error)
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	store  Store
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, store Store) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, store: store, now: time.Now}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue starts a session for the user and returns its token.
func (m *Manager) Issue(ctx context.Context, userID uint) (string, error) {
	id := uuid.NewString()
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	if err := m.store.Save(ctx, id, userID, m.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// Resolve returns the user bound to a live session token.
func (m *Manager) Resolve(ctx context.Context, token string) (uint, error) {
	claims, err := m.parse(token, jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	stored, err := m.store.Load(ctx, claims.ID)
	if err != nil {
		return 0, err
	}
	if uint64(stored) != userID {
		return 0, ErrInvalidToken
	}
	return stored, nil
}

// Revoke ends the session. Expired but well-signed tokens are revoked too;
// garbage tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
