package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harrylevesque/nutritrack/internal/models"
)

const userColumns = `id, email, name, date_of_birth, gender, height, weight, measurements_updated_at,
	activity_level, nutrition_goal, target_calories, target_protein, target_carbs, target_fat, bmr, tdee,
	goals_updated_at, units, notifications, theme, created_at, updated_at`

// CreateUser stores a new profile. u.ID must be the account ID.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := insertUser(ctx, s.db, u); err != nil {
		if isUnique(err) {
			return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
		}
		return err
	}
	return nil
}

func insertUser(ctx context.Context, q queryer, u *models.User) error {
	_, err := q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userArgs(u)...)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func userArgs(u *models.User) []any {
	return []any{
		u.ID, u.Email, u.Name, u.DateOfBirth, u.Gender,
		u.Measurements.Height, u.Measurements.Weight, formatTime(u.Measurements.UpdatedAt),
		u.Goals.ActivityLevel, u.Goals.NutritionGoal, u.Goals.TargetCalories,
		u.Goals.TargetProtein, u.Goals.TargetCarbs, u.Goals.TargetFat, u.Goals.BMR, u.Goals.TDEE,
		formatTime(u.Goals.UpdatedAt), u.Settings.Units, boolInt(u.Settings.Notifications), u.Settings.Theme,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	}
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q queryer, id string) (*models.User, error) {
	var (
		u                                   models.User
		measured, goalsAt, created, updated string
		notifications                       int
	)
	err := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.DateOfBirth, &u.Gender,
		&u.Measurements.Height, &u.Measurements.Weight, &measured,
		&u.Goals.ActivityLevel, &u.Goals.NutritionGoal, &u.Goals.TargetCalories,
		&u.Goals.TargetProtein, &u.Goals.TargetCarbs, &u.Goals.TargetFat, &u.Goals.BMR, &u.Goals.TDEE,
		&goalsAt, &u.Settings.Units, &notifications, &u.Settings.Theme, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Measurements.UpdatedAt = parseTime(measured)
	u.Goals.UpdatedAt = parseTime(goalsAt)
	u.Settings.Notifications = notifications != 0
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

// UpdateUser replaces every stored field of the profile with u.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	args := append(userArgs(u)[1:], u.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE users SET
		email = ?, name = ?, date_of_birth = ?, gender = ?, height = ?, weight = ?, measurements_updated_at = ?,
		activity_level = ?, nutrition_goal = ?, target_calories = ?, target_protein = ?, target_carbs = ?,
		target_fat = ?, bmr = ?, tdee = ?, goals_updated_at = ?, units = ?, notifications = ?, theme = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the profile together with its meals, daily logs,
// sessions and account.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var removed int64
		for _, stmt := range []string{
			`DELETE FROM meals WHERE user_id = ?`,
			`DELETE FROM daily_logs WHERE user_id = ?`,
			`DELETE FROM sessions WHERE user_id = ?`,
			`DELETE FROM users WHERE id = ?`,
			`DELETE FROM accounts WHERE id = ?`,
		} {
			res, err := tx.ExecContext(ctx, stmt, id)
			if err != nil {
				return fmt.Errorf("delete user data: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				removed += n
			}
		}
		if removed == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListUserIDs returns the ID of every account or profile in creation order,
// including accounts that have not onboarded yet.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM (
		SELECT id, created_at FROM accounts
		UNION ALL
		SELECT id, created_at FROM users
	) GROUP BY id ORDER BY MIN(created_at), id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
