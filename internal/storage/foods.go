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

const foodColumns = `id, name, name_indonesian, category, calories, protein, carbs, fat, fiber, sugar, sodium,
	serving_amount, serving_unit, barcode, image_url, is_verified, source, created_by, created_at, updated_at`

// CreateFood stores f, assigning an ID and timestamps when they are unset.
func (s *Store) CreateFood(ctx context.Context, f *models.Food) error {
	s.prepareFood(f)
	if err := insertFood(ctx, s.db, f); err != nil {
		if isUnique(err) {
			return fmt.Errorf("food barcode %s: %w", f.Barcode, ErrConflict)
		}
		return err
	}
	return nil
}

// BulkCreateFoods inserts foods in one transaction. Nothing is stored if any
// insert fails.
func (s *Store) BulkCreateFoods(ctx context.Context, foods []*models.Food) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, f := range foods {
			s.prepareFood(f)
			if err := insertFood(ctx, tx, f); err != nil {
				if isUnique(err) {
					return fmt.Errorf("food %q: %w", f.Name, ErrConflict)
				}
				return err
			}
		}
		return nil
	})
}

func (s *Store) prepareFood(f *models.Food) {
	now := s.now()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
}

func insertFood(ctx context.Context, q queryer, f *models.Food) error {
	n := f.Nutrition
	_, err := q.ExecContext(ctx, `INSERT INTO foods (`+foodColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.NameIndonesian, f.Category,
		n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber, n.Sugar, n.Sodium,
		f.ServingSize.Amount, f.ServingSize.Unit, f.Barcode, f.ImageURL, boolInt(f.IsVerified),
		f.Source, f.CreatedBy, formatTime(f.CreatedAt), formatTime(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert food: %w", err)
	}
	return nil
}

func scanFood(row interface{ Scan(...any) error }) (*models.Food, error) {
	var (
		f                models.Food
		verified         int
		created, updated string
	)
	err := row.Scan(&f.ID, &f.Name, &f.NameIndonesian, &f.Category,
		&f.Nutrition.Calories, &f.Nutrition.Protein, &f.Nutrition.Carbs, &f.Nutrition.Fat,
		&f.Nutrition.Fiber, &f.Nutrition.Sugar, &f.Nutrition.Sodium,
		&f.ServingSize.Amount, &f.ServingSize.Unit, &f.Barcode, &f.ImageURL, &verified,
		&f.Source, &f.CreatedBy, &created, &updated)
	if err != nil {
		return nil, err
	}
	f.IsVerified = verified != 0
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return &f, nil
}

func (s *Store) getFoodBy(ctx context.Context, column, value string) (*models.Food, error) {
	f, err := scanFood(s.db.QueryRowContext(ctx, `SELECT `+foodColumns+` FROM foods WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query food: %w", err)
	}
	return f, nil
}

func (s *Store) GetFood(ctx context.Context, id string) (*models.Food, error) {
	return s.getFoodBy(ctx, "id", id)
}

func (s *Store) GetFoodByBarcode(ctx context.Context, barcode string) (*models.Food, error) {
	if barcode == "" {
		return nil, ErrNotFound
	}
	return s.getFoodBy(ctx, "barcode", barcode)
}

// UpdateFood replaces the editable fields of an existing food.
func (s *Store) UpdateFood(ctx context.Context, f *models.Food) error {
	f.UpdatedAt = s.now()
	n := f.Nutrition
	res, err := s.db.ExecContext(ctx, `UPDATE foods SET
		name = ?, name_indonesian = ?, category = ?, calories = ?, protein = ?, carbs = ?, fat = ?,
		fiber = ?, sugar = ?, sodium = ?, serving_amount = ?, serving_unit = ?, barcode = ?, image_url = ?,
		is_verified = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, f.NameIndonesian, f.Category, n.Calories, n.Protein, n.Carbs, n.Fat,
		n.Fiber, n.Sugar, n.Sodium, f.ServingSize.Amount, f.ServingSize.Unit, f.Barcode, f.ImageURL,
		boolInt(f.IsVerified), f.Source, formatTime(f.UpdatedAt), f.ID)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("food barcode %s: %w", f.Barcode, ErrConflict)
		}
		return fmt.Errorf("update food: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFood removes a food. Meals that reference it keep their copied
// name and nutrition.
func (s *Store) DeleteFood(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete food: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchFoods matches req.Query as a case-insensitive substring of the
// English or Indonesian name, ordered by name. It returns one page and the
// total number of matches.
func (s *Store) SearchFoods(ctx context.Context, req models.FoodSearchRequest) ([]*models.Food, int, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(req.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR name_indonesian LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if req.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, req.Category)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count foods: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = -1
	}
	pageArgs := append(append([]any{}, args...), limit, max(req.Offset, 0))
	foods, err := s.queryFoods(ctx, `SELECT `+foodColumns+` FROM foods`+clause+
		` ORDER BY name COLLATE NOCASE, id LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return foods, total, nil
}

// FoodsByCategory returns up to limit foods of one category, ordered by name.
func (s *Store) FoodsByCategory(ctx context.Context, category string, limit int) ([]*models.Food, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryFoods(ctx, `SELECT `+foodColumns+` FROM foods WHERE category = ?
		ORDER BY name COLLATE NOCASE, id LIMIT ?`, category, limit)
}

func (s *Store) CountFoods(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}
	return n, nil
}

func (s *Store) queryFoods(ctx context.Context, query string, args ...any) ([]*models.Food, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query foods: %w", err)
	}
	defer rows.Close()

	foods := []*models.Food{}
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		foods = append(foods, f)
	}
	return foods, rows.Err()
}
