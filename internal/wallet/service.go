// Package wallet manages wallet connection sessions. Connecting a wallet
// issues a signed session token; the session registry backs the status and
// connected-wallets queries.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// Session is one connected wallet.
type Session struct {
	Account     id.AccountID
	Token       string
	ConnectedAt time.Time
	ExpiresAt   time.Time
}

// ErrSessionNotFound is returned when no session exists for the account.
var ErrSessionNotFound = dErrors.New(dErrors.CodeNotFound, "wallet session not found")

// SessionStore persists wallet sessions.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, account id.AccountID) (*Session, error)
	Delete(ctx context.Context, account id.AccountID) error
	List(ctx context.Context) ([]Session, error)
}

// InMemorySessionStore keeps sessions in process.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.AccountID]Session
}

var _ SessionStore = (*InMemorySessionStore)(nil)

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.AccountID]Session)}
}

func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Account] = session
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, account id.AccountID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[account]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[account]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, account)
	return nil
}

func (s *InMemorySessionStore) List(_ context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out, nil
}

// Service issues and revokes wallet sessions.
type Service struct {
	store      SessionStore
	signingKey []byte
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source. Test helper.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a wallet session service.
func New(store SessionStore, signingKey []byte, sessionTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:      store,
		signingKey: signingKey,
		sessionTTL: sessionTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect registers the wallet and issues a signed session token.
// Reconnecting an already connected wallet rotates its session.
func (s *Service) Connect(ctx context.Context, account id.AccountID) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	claims := jwt.RegisteredClaims{
		Subject:   account.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
		Issuer:    "greenhop",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}

	session := Session{
		Account:     account,
		Token:       token,
		ConnectedAt: now,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save wallet session")
	}
	return &session, nil
}

// Disconnect removes the wallet's session. Disconnecting a wallet that was
// never connected is not an error.
func (s *Service) Disconnect(ctx context.Context, account id.AccountID) error {
	if err := s.store.Delete(ctx, account); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete wallet session")
	}
	return nil
}

// Connected reports whether the wallet has a live session. Expired sessions
// are removed on sight.
func (s *Service) Connected(ctx context.Context, account id.AccountID) (bool, error) {
	session, err := s.store.Find(ctx, account)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if s.now().After(session.ExpiresAt) {
		if err := s.store.Delete(ctx, account); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Warn("failed to remove expired wallet session", "error", err, "account", account.String())
		}
		return false, nil
	}
	return true, nil
}

// ConnectedAccounts lists all wallets with live sessions.
func (s *Service) ConnectedAccounts(ctx context.Context) ([]id.AccountID, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]id.AccountID, 0, len(sessions))
	for _, session := range sessions {
		if now.After(session.ExpiresAt) {
			continue
		}
		out = append(out, session.Account)
	}
	return out, nil
}

// VerifyToken parses and validates a session token, returning its account.
func (s *Service) VerifyToken(tokenString string) (id.AccountID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid session token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return id.ParseAccountID(claims.Subject)
}
