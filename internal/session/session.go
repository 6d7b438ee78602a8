// Package session issues signed session cookies backed by a revocable server-side record.
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
	ErrNoSession    = errors.New("session not found")
	ErrInvalidToken = errors.New("invalid session token")
)

// Store keeps the live sessions so they can be revoked before the token expires.
type Store interface {
	Create(ctx context.Context, sid string, uid uint64, ttl time.Duration) error
	// Lookup returns the owner of sid or ErrNoSession.
	Lookup(ctx context.Context, sid string) (uint64, error)
	Delete(ctx context.Context, sid string) error
	// DeleteUser removes every session of uid except keep.
	DeleteUser(ctx context.Context, uid uint64, keep string) error
}

type Session struct {
	ID        string
	UserID    uint64
	ExpiresAt time.Time
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue starts a session for uid and returns its signed token.
func (m *Manager) Issue(ctx context.Context, uid uint64) (string, *Session, error) {
	now := m.now()
	s := &Session{ID: uuid.NewString(), UserID: uid, ExpiresAt: now.Add(m.ttl)}
	if err := m.store.Create(ctx, s.ID, uid, m.ttl); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uid, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, s, nil
}

// Resolve verifies token and checks that its session is still live.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || c.SessionID == "" {
		return nil, ErrInvalidToken
	}
	owner, err := m.store.Lookup(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if owner != uid {
		return nil, ErrInvalidToken
	}
	return &Session{ID: c.SessionID, UserID: uid, ExpiresAt: c.ExpiresAt.Time}, nil
}

func (m *Manager) Revoke(ctx context.Context, sid string) error {
	return m.store.Delete(ctx, sid)
}

// RevokeOthers ends every session of uid except keep.
func (m *Manager) RevokeOthers(ctx context.Context, uid uint64, keep string) error {
	return m.store.DeleteUser(ctx, uid, keep)
}
