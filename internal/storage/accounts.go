package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrylevesque/nutritrack/internal/models"
)

// CreateAccount stores a new account. The email is unique regardless of case.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	a := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, formatTime(a.CreatedAt))
	if err != nil {
		if isUnique(err) {
			return nil, fmt.Errorf("account %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, s.db, `SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?`, email)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, s.db, `SELECT id, email, password_hash, created_at FROM accounts WHERE id = ?`, id)
}

func (s *Store) getAccount(ctx context.Context, q queryer, query string, arg string) (*models.Account, error) {
	var a models.Account
	var created string
	err := q.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// CreateSession stores a session keyed by the hash of its bearer token.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, ttl time.Duration) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    models.SessionActive,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.UserID, sess.TokenHash, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt), sess.Status)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var sess models.Session
	var created, expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, created_at, expires_at, status FROM sessions WHERE token_hash = ?`, tokenHash).
		Scan(&sess.SessionID, &sess.UserID, &sess.TokenHash, &created, &expires, &sess.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.CreatedAt = parseTime(created)
	sess.ExpiresAt = parseTime(expires)
	return &sess, nil
}

// RevokeSession marks the session logged out. Revoking twice is not an error.
func (s *Store) RevokeSession(ctx context.Context, tokenHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE token_hash = ?`, models.SessionLoggedOut, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and returns
// how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
