package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harrylevesque/nutritrack/internal/models"
)

const dailyLogColumns = `id, user_id, date, calories, protein, carbs, fat, fiber, sugar, sodium, meal_count, updated_at`

func scanDailyLog(row interface{ Scan(...any) error }) (*models.DailyLog, error) {
	var (
		l       models.DailyLog
		updated string
	)
	t := &l.Totals
	if err := row.Scan(&l.ID, &l.UserID, &l.Date, &t.Calories, &t.Protein, &t.Carbs, &t.Fat,
		&t.Fiber, &t.Sugar, &t.Sodium, &l.MealCount, &updated); err != nil {
		return nil, err
	}
	l.UpdatedAt = parseTime(updated)
	return &l, nil
}

// GetDailyLog returns the log for one date with its meals in eating order.
// ErrNotFound means no meals were logged that day.
func (s *Store) GetDailyLog(ctx context.Context, userID, date string) (*models.DailyLog, error) {
	var log *models.DailyLog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		l, err := scanDailyLog(tx.QueryRowContext(ctx,
			`SELECT `+dailyLogColumns+` FROM daily_logs WHERE user_id = ? AND date = ?`, userID, date))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query daily log: %w", err)
		}
		l.Meals, err = listMeals(ctx, tx, userID, models.MealFilter{Date: date})
		log = l
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// ListDailyLogs returns logs without meals, newest first.
func (s *Store) ListDailyLogs(ctx context.Context, userID string, f models.DailyLogFilter) ([]*models.DailyLog, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.From != "" {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `SELECT `+dailyLogColumns+` FROM daily_logs WHERE `+
		strings.Join(where, " AND ")+` ORDER BY date DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.DailyLog{}
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
