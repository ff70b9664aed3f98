// Package auth manages email/password accounts and bearer-token sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/nutritrack/internal/crypto"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing, unknown, revoked or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmailTaken   = errors.New("email already registered")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	ErrInvalidEmail    = errors.New("invalid email address")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// Store is the persistence the service needs. *storage.Store satisfies it.
type Store interface {
	CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateSession(ctx context.Context, userID, tokenHash string, ttl time.Duration) (*models.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

// Service issues and checks session tokens. Only an HMAC of each token is
// stored, so a leaked database does not leak usable tokens.
type Service struct {
	store  Store
	key    []byte
	ttl    time.Duration
	admins map[string]bool
	cost   int
	now    func() time.Time
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService derives the session key from masterKey.
func NewService(store Store, masterKey []byte, ttl time.Duration, adminEmails []string, opts ...Option) (*Service, error) {
	key, err := crypto.DeriveKey(masterKey, crypto.InfoSession)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	s := &Service{
		store:  store,
		key:    key,
		ttl:    ttl,
		admins: make(map[string]bool, len(adminEmails)),
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, e := range adminEmails {
		s.admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc, err := s.store.CreateAccount(ctx, email, string(hash))
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, acc.ID)
}

// Login checks the password and issues a new session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	acc, err := s.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, acc.ID)
}

func (s *Service) issue(ctx context.Context, userID string) (*models.TokenResponse, error) {
	token := crypto.NewToken()
	sess, err := s.store.CreateSession(ctx, userID, crypto.MAC(s.key, token), s.ttl)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{UserID: userID, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate resolves a bearer token to its user ID.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	sess, err := s.store.GetSessionByTokenHash(ctx, crypto.MAC(s.key, token))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if sess.Status != models.SessionActive || !s.now().Before(sess.ExpiresAt) {
		return "", ErrUnauthorized
	}
	return sess.UserID, nil
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.store.RevokeSession(ctx, crypto.MAC(s.key, token))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUnauthorized
	}
	return err
}

// IsAdmin reports whether the account's email is an admin email.
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	if len(s.admins) == 0 {
		return false
	}
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return false
	}
	return s.admins[strings.ToLower(acc.Email)]
}

// Email returns the account email for userID.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	return acc.Email, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
