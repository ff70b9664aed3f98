package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harrylevesque/nutritrack/internal/models"
)

const mealColumns = `id, user_id, food_id, food_name, date, meal_type, portion,
	calories, protein, carbs, fat, fiber, sugar, sodium, image_url, timestamp, created_at, updated_at`

// CreateMeal stores m and recomputes the daily log for its date in the same
// transaction. The returned log reflects the new totals.
func (s *Store) CreateMeal(ctx context.Context, m *models.Meal) (*models.DailyLog, error) {
	now := s.now()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}

	var log *models.DailyLog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertMeal(ctx, tx, m); err != nil {
			return err
		}
		var err error
		log, err = s.recomputeDailyLog(ctx, tx, m.UserID, m.Date)
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func insertMeal(ctx context.Context, q queryer, m *models.Meal) error {
	n := m.Nutrition
	_, err := q.ExecContext(ctx, `INSERT INTO meals (`+mealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.FoodID, m.FoodName, m.Date, m.MealType, m.Portion,
		n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber, n.Sugar, n.Sodium,
		m.ImageURL, formatTime(m.Timestamp), formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("meal %s: %w", m.ID, ErrConflict)
		}
		return fmt.Errorf("insert meal: %w", err)
	}
	return nil
}

func scanMeal(row interface{ Scan(...any) error }) (*models.Meal, error) {
	var (
		m                    models.Meal
		ts, created, updated string
	)
	err := row.Scan(&m.ID, &m.UserID, &m.FoodID, &m.FoodName, &m.Date, &m.MealType, &m.Portion,
		&m.Nutrition.Calories, &m.Nutrition.Protein, &m.Nutrition.Carbs, &m.Nutrition.Fat,
		&m.Nutrition.Fiber, &m.Nutrition.Sugar, &m.Nutrition.Sodium,
		&m.ImageURL, &ts, &created, &updated)
	if err != nil {
		return nil, err
	}
	m.Timestamp = parseTime(ts)
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}

// GetMeal returns the meal only when it belongs to userID.
func (s *Store) GetMeal(ctx context.Context, userID, id string) (*models.Meal, error) {
	return getMeal(ctx, s.db, userID, id)
}

func getMeal(ctx context.Context, q queryer, userID, id string) (*models.Meal, error) {
	m, err := scanMeal(q.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query meal: %w", err)
	}
	return m, nil
}

// UpdateMeal loads the meal, lets mutate change it and writes it back. The
// logs of the old and, if it moved, the new date are recomputed in the same
// transaction and returned in that order. An error from mutate aborts the
// update unchanged.
func (s *Store) UpdateMeal(ctx context.Context, userID, id string, mutate func(m *models.Meal) error) (*models.Meal, []*models.DailyLog, error) {
	var (
		meal *models.Meal
		logs []*models.DailyLog
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeal(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		oldDate := m.Date
		if err := mutate(m); err != nil {
			return err
		}
		m.ID, m.UserID = id, userID
		m.UpdatedAt = s.now()

		n := m.Nutrition
		_, err = tx.ExecContext(ctx, `UPDATE meals SET
			food_id = ?, food_name = ?, date = ?, meal_type = ?, portion = ?,
			calories = ?, protein = ?, carbs = ?, fat = ?, fiber = ?, sugar = ?, sodium = ?,
			image_url = ?, timestamp = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			m.FoodID, m.FoodName, m.Date, m.MealType, m.Portion,
			n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber, n.Sugar, n.Sodium,
			m.ImageURL, formatTime(m.Timestamp), formatTime(m.UpdatedAt), id, userID)
		if err != nil {
			return fmt.Errorf("update meal: %w", err)
		}

		dates := []string{oldDate}
		if m.Date != oldDate {
			dates = append(dates, m.Date)
		}
		for _, d := range dates {
			log, err := s.recomputeDailyLog(ctx, tx, userID, d)
			if err != nil {
				return err
			}
			logs = append(logs, log)
		}
		meal = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return meal, logs, nil
}

// DeleteMeal removes the meal and recomputes its day. The returned log has
// MealCount 0 when the day no longer has meals.
func (s *Store) DeleteMeal(ctx context.Context, userID, id string) (*models.Meal, *models.DailyLog, error) {
	var (
		meal *models.Meal
		log  *models.DailyLog
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeal(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete meal: %w", err)
		}
		log, err = s.recomputeDailyLog(ctx, tx, userID, m.Date)
		meal = m
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return meal, log, nil
}

// ListMeals returns the user's meals, newest date first and in eating order
// within a date.
func (s *Store) ListMeals(ctx context.Context, userID string, f models.MealFilter) ([]*models.Meal, error) {
	return listMeals(ctx, s.db, userID, f)
}

func listMeals(ctx context.Context, q queryer, userID string, f models.MealFilter) ([]*models.Meal, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Date != "" {
		where = append(where, "date = ?")
		args = append(args, f.Date)
	}
	if f.From != "" {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	if f.MealType != "" {
		where = append(where, "meal_type = ?")
		args = append(args, f.MealType)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, `SELECT `+mealColumns+` FROM meals WHERE `+strings.Join(where, " AND ")+
		` ORDER BY date DESC, timestamp, id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query meals: %w", err)
	}
	defer rows.Close()

	meals := []*models.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// recomputeDailyLog rebuilds the (userID, date) log from the meals table. A
// date without meals has its log removed and gets a zero log back.
func (s *Store) recomputeDailyLog(ctx context.Context, tx *sql.Tx, userID, date string) (*models.DailyLog, error) {
	log := &models.DailyLog{UserID: userID, Date: date, UpdatedAt: s.now()}
	t := &log.Totals
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0), COALESCE(SUM(carbs), 0), COALESCE(SUM(fat), 0),
		COALESCE(SUM(fiber), 0), COALESCE(SUM(sugar), 0), COALESCE(SUM(sodium), 0)
		FROM meals WHERE user_id = ? AND date = ?`, userID, date).
		Scan(&log.MealCount, &t.Calories, &t.Protein, &t.Carbs, &t.Fat, &t.Fiber, &t.Sugar, &t.Sodium)
	if err != nil {
		return nil, fmt.Errorf("sum meals: %w", err)
	}
	log.Totals = log.Totals.Rounded()

	if log.MealCount == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_logs WHERE user_id = ? AND date = ?`, userID, date); err != nil {
			return nil, fmt.Errorf("delete daily log: %w", err)
		}
		return log, nil
	}

	err = tx.QueryRowContext(ctx, `INSERT INTO daily_logs
		(id, user_id, date, calories, protein, carbs, fat, fiber, sugar, sodium, meal_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			calories = excluded.calories, protein = excluded.protein, carbs = excluded.carbs,
			fat = excluded.fat, fiber = excluded.fiber, sugar = excluded.sugar, sodium = excluded.sodium,
			meal_count = excluded.meal_count, updated_at = excluded.updated_at
		RETURNING id`,
		uuid.NewString(), userID, date, t.Calories, t.Protein, t.Carbs, t.Fat, t.Fiber, t.Sugar, t.Sodium,
		log.MealCount, formatTime(log.UpdatedAt)).Scan(&log.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert daily log: %w", err)
	}
	return log, nil
}
