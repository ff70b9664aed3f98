package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harrylevesque/nutritrack/internal/models"
)

// ExportUser collects an account, its profile if onboarded and every meal
// into an archive. ErrNotFound means neither an account nor a profile exists.
func (s *Store) ExportUser(ctx context.Context, userID string) (*models.UserArchive, error) {
	archive := &models.UserArchive{Version: models.ArchiveVersion, ExportedAt: s.now(), UserID: userID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := getUser(ctx, tx, userID)
		switch {
		case err == nil:
			archive.User = u
		case !errors.Is(err, ErrNotFound):
			return err
		}

		a, err := s.getAccount(ctx, tx, `SELECT id, email, password_hash, created_at FROM accounts WHERE id = ?`, userID)
		switch {
		case err == nil:
			archive.Account = &models.ArchivedAccount{
				ID: a.ID, Email: a.Email, PasswordHash: a.PasswordHash, CreatedAt: a.CreatedAt,
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if archive.User == nil && archive.Account == nil {
			return ErrNotFound
		}

		archive.Meals, err = listMeals(ctx, tx, userID, models.MealFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// ImportUser replaces everything stored for the archived account with the
// archive contents and rebuilds its daily logs. Sessions are dropped.
func (s *Store) ImportUser(ctx context.Context, archive *models.UserArchive) error {
	if archive == nil || archive.ID() == "" {
		return errors.New("archive has no user")
	}
	if archive.Version > models.ArchiveVersion {
		return fmt.Errorf("archive version %d is newer than supported version %d", archive.Version, models.ArchiveVersion)
	}
	id := archive.ID()
	if archive.User == nil && archive.Account == nil {
		return fmt.Errorf("archive for %s has neither account nor profile", id)
	}
	if (archive.User != nil && archive.User.ID != id) || (archive.Account != nil && archive.Account.ID != id) {
		return fmt.Errorf("archive for %s contains records of another user", id)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM meals WHERE user_id = ?`,
			`DELETE FROM daily_logs WHERE user_id = ?`,
			`DELETE FROM sessions WHERE user_id = ?`,
			`DELETE FROM users WHERE id = ?`,
			`DELETE FROM accounts WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("clear user data: %w", err)
			}
		}

		if a := archive.Account; a != nil {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
				a.ID, a.Email, a.PasswordHash, formatTime(a.CreatedAt))
			if err != nil {
				if isUnique(err) {
					return fmt.Errorf("account %s: %w", a.Email, ErrConflict)
				}
				return fmt.Errorf("insert account: %w", err)
			}
		}
		if archive.User != nil {
			if err := insertUser(ctx, tx, archive.User); err != nil {
				return err
			}
		}

		dates := map[string]bool{}
		for _, m := range archive.Meals {
			m.UserID = id
			if err := insertMeal(ctx, tx, m); err != nil {
				return err
			}
			dates[m.Date] = true
		}
		for d := range dates {
			if _, err := s.recomputeDailyLog(ctx, tx, id, d); err != nil {
				return err
			}
		}
		return nil
	})
}
