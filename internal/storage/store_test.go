package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/harrylevesque/nutritrack/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testUser(id string) *models.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Budi",
		DateOfBirth:  "1995-06-01",
		Gender:       "male",
		Measurements: models.Measurements{Height: 172, Weight: 68, UpdatedAt: now},
		Goals: models.Goals{
			ActivityLevel: "moderate", NutritionGoal: "maintain",
			TargetCalories: 2500, TargetProtein: 188, TargetCarbs: 281, TargetFat: 69,
			BMR: 1610, TDEE: 2500, UpdatedAt: now,
		},
		Settings:  models.DefaultSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func meal(userID, date, mealType string, kcal float64) *models.Meal {
	return &models.Meal{
		UserID:    userID,
		FoodName:  "Nasi Goreng",
		Date:      date,
		MealType:  mealType,
		Portion:   1,
		Nutrition: models.Nutrition{Calories: kcal, Protein: kcal / 40, Carbs: kcal / 8, Fat: kcal / 30},
	}
}

func TestOpenMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nt.db")
	s, err := Open(path)
	require.NoError(t, err)

	var v int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&v))
	assert.Equal(t, SchemaVersion, v)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err, "reopening a migrated database must not re-run migrations")
	require.NoError(t, s.Ping(context.Background()))
	s.Close()
}

func TestAccountsAndSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAccount(ctx, "Siti@Example.com", "hash")
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, "siti@example.com", "other")
	assert.ErrorIs(t, err, ErrConflict, "emails are unique regardless of case")

	got, err := s.GetAccountByEmail(ctx, "siti@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	sess, err := s.CreateSession(ctx, a.ID, "tokenhash", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, sess.Status)

	loaded, err := s.GetSessionByTokenHash(ctx, "tokenhash")
	require.NoError(t, err)
	assert.Equal(t, a.ID, loaded.UserID)
	assert.WithinDuration(t, sess.ExpiresAt, loaded.ExpiresAt, time.Millisecond)

	require.NoError(t, s.RevokeSession(ctx, "tokenhash"))
	loaded, err = s.GetSessionByTokenHash(ctx, "tokenhash")
	require.NoError(t, err)
	assert.Equal(t, models.SessionLoggedOut, loaded.Status)
	assert.ErrorIs(t, s.RevokeSession(ctx, "missing"), ErrNotFound)

	_, err = s.CreateSession(ctx, a.ID, "expired", -time.Minute)
	require.NoError(t, err)
	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAccount(ctx, "budi@example.com", "hash")
	require.NoError(t, err)
	u := testUser(a.ID)
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, u), ErrConflict)

	got, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got.Name = "Budi Santoso"
	got.Settings.Notifications = false
	got.Goals.TargetCalories = 2000
	require.NoError(t, s.UpdateUser(ctx, got))
	again, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", again.Name)
	assert.False(t, again.Settings.Notifications)
	assert.Equal(t, 2000, again.Goals.TargetCalories)

	_, err = s.CreateMeal(ctx, meal(a.ID, "2026-01-02", models.MealLunch, 500))
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, a.ID, "tok", time.Hour)
	require.NoError(t, err)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	require.NoError(t, s.DeleteUser(ctx, a.ID))
	_, err = s.GetUser(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetAccount(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSessionByTokenHash(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
	meals, err := s.ListMeals(ctx, a.ID, models.MealFilter{})
	require.NoError(t, err)
	assert.Empty(t, meals)
	_, err = s.GetDailyLog(ctx, a.ID, "2026-01-02")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, a.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateUser(ctx, u), ErrNotFound)
}

func TestSeedAndSearchFoods(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 29, n)

	n, err = s.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding is skipped when foods exist")

	foods, total, err := s.SearchFoods(ctx, models.FoodSearchRequest{Query: "NASI", Limit: 20})
	require.NoError(t, err)
	require.NotEmpty(t, foods)
	assert.Equal(t, len(foods), total)
	for _, f := range foods {
		assert.True(t, f.IsVerified)
		assert.Equal(t, models.SourceSystem, f.Source)
	}

	// Indonesian name match.
	foods, _, err = s.SearchFoods(ctx, models.FoodSearchRequest{Query: "pisang"})
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, "Banana", foods[0].Name)

	foods, total, err = s.SearchFoods(ctx, models.FoodSearchRequest{Category: models.CategoryFruits, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, foods, 2)
	assert.Equal(t, "Banana", foods[0].Name, "ordered by name: Apple, Banana, Mango...")

	foods, total, err = s.SearchFoods(ctx, models.FoodSearchRequest{Query: "100%"})
	require.NoError(t, err)
	assert.Zero(t, total, "LIKE wildcards in the query are literal")
	assert.Empty(t, foods)

	byCat, err := s.FoodsByCategory(ctx, models.CategoryGrains, 3)
	require.NoError(t, err)
	assert.Len(t, byCat, 3)
}

func TestFoodCRUDAndBarcode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := &models.Food{
		Name:        "Teh Botol",
		Category:    models.CategoryBeverages,
		Nutrition:   models.Nutrition{Calories: 90, Carbs: 22, Sugar: 22},
		ServingSize: models.ServingSize{Amount: 250, Unit: "ml"},
		Barcode:     "8886008101053",
		Source:      models.SourceUser,
		CreatedBy:   "u1",
	}
	require.NoError(t, s.CreateFood(ctx, f))
	require.NotEmpty(t, f.ID)

	dup := *f
	dup.ID = ""
	dup.Name = "Copy"
	assert.ErrorIs(t, s.CreateFood(ctx, &dup), ErrConflict)

	got, err := s.GetFoodByBarcode(ctx, "8886008101053")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "u1", got.CreatedBy)

	// Foods without barcodes don't collide.
	require.NoError(t, s.CreateFood(ctx, &models.Food{Name: "A", Category: "others", Source: "user"}))
	require.NoError(t, s.CreateFood(ctx, &models.Food{Name: "B", Category: "others", Source: "user"}))
	_, err = s.GetFoodByBarcode(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Nutrition.Calories = 70
	got.IsVerified = true
	require.NoError(t, s.UpdateFood(ctx, got))
	got, err = s.GetFood(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Nutrition.Calories)
	assert.True(t, got.IsVerified)

	require.NoError(t, s.DeleteFood(ctx, f.ID))
	_, err = s.GetFood(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteFood(ctx, f.ID), ErrNotFound)

	count, err := s.CountFoods(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMealWritesMaintainDailyLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	breakfast := meal("u1", "2026-03-01", models.MealBreakfast, 350.5)
	log, err := s.CreateMeal(ctx, breakfast)
	require.NoError(t, err)
	assert.Equal(t, 1, log.MealCount)
	assert.Equal(t, 350.5, log.Totals.Calories)

	lunch := meal("u1", "2026-03-01", models.MealLunch, 700.25)
	log, err = s.CreateMeal(ctx, lunch)
	require.NoError(t, err)
	assert.Equal(t, 2, log.MealCount)
	assert.Equal(t, 1050.75, log.Totals.Calories)

	// Another user's meals never leak in.
	_, err = s.CreateMeal(ctx, meal("u2", "2026-03-01", models.MealLunch, 999))
	require.NoError(t, err)

	day, err := s.GetDailyLog(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1050.75, day.Totals.Calories)
	require.Len(t, day.Meals, 2)

	_, err = s.GetMeal(ctx, "u2", lunch.ID)
	assert.ErrorIs(t, err, ErrNotFound, "meals are owner scoped")

	// Moving lunch to the next day updates both logs.
	updated, logs, err := s.UpdateMeal(ctx, "u1", lunch.ID, func(m *models.Meal) error {
		m.Date = "2026-03-02"
		m.Portion = 2
		m.Nutrition = m.Nutrition.Scale(2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", updated.Date)
	require.Len(t, logs, 2)
	assert.Equal(t, 350.5, logs[0].Totals.Calories)
	assert.Equal(t, 1400.5, logs[1].Totals.Calories)

	// A failing mutation leaves everything untouched.
	_, _, err = s.UpdateMeal(ctx, "u1", lunch.ID, func(m *models.Meal) error {
		m.Date = "2026-03-09"
		return fmt.Errorf("rejected")
	})
	require.Error(t, err)
	still, err := s.GetMeal(ctx, "u1", lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", still.Date)

	// Deleting the last meal of a day removes its log.
	_, log, err = s.DeleteMeal(ctx, "u1", breakfast.ID)
	require.NoError(t, err)
	assert.Zero(t, log.MealCount)
	assert.Zero(t, log.Totals.Calories)
	_, err = s.GetDailyLog(ctx, "u1", "2026-03-01")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.DeleteMeal(ctx, "u1", breakfast.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	logsList, err := s.ListDailyLogs(ctx, "u1", models.DailyLogFilter{})
	require.NoError(t, err)
	require.Len(t, logsList, 1)
	assert.Equal(t, "2026-03-02", logsList[0].Date)
}

func TestListMealsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, m := range []*models.Meal{
		meal("u1", "2026-03-01", models.MealBreakfast, 300),
		meal("u1", "2026-03-01", models.MealDinner, 600),
		meal("u1", "2026-03-02", models.MealBreakfast, 320),
		meal("u1", "2026-03-05", models.MealSnack, 150),
	} {
		_, err := s.CreateMeal(ctx, m)
		require.NoError(t, err)
	}

	all, err := s.ListMeals(ctx, "u1", models.MealFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2026-03-05", all[0].Date, "newest date first")

	day, err := s.ListMeals(ctx, "u1", models.MealFilter{Date: "2026-03-01"})
	require.NoError(t, err)
	assert.Len(t, day, 2)

	rangeMeals, err := s.ListMeals(ctx, "u1", models.MealFilter{From: "2026-03-02", To: "2026-03-05"})
	require.NoError(t, err)
	assert.Len(t, rangeMeals, 2)

	breakfasts, err := s.ListMeals(ctx, "u1", models.MealFilter{MealType: models.MealBreakfast, Limit: 1})
	require.NoError(t, err)
	require.Len(t, breakfasts, 1)
	assert.Equal(t, "2026-03-02", breakfasts[0].Date)

	logs, err := s.ListDailyLogs(ctx, "u1", models.DailyLogFilter{From: "2026-03-01", To: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2026-03-02", logs[0].Date)
}

func TestMealsOrderWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	offsets := []time.Duration{500 * time.Millisecond, 150 * time.Millisecond, 0, 100 * time.Millisecond}
	for _, off := range offsets {
		m := meal("u1", "2026-03-01", models.MealBreakfast, 100)
		m.Timestamp = base.Add(off)
		_, err := s.CreateMeal(ctx, m)
		require.NoError(t, err)
	}

	meals, err := s.ListMeals(ctx, "u1", models.MealFilter{Date: "2026-03-01"})
	require.NoError(t, err)
	var got []time.Duration
	for _, m := range meals {
		got = append(got, m.Timestamp.Sub(base))
	}
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 150 * time.Millisecond, 500 * time.Millisecond}, got)

	assert.Less(t, formatTime(base), formatTime(base.Add(time.Millisecond)))
	assert.Less(t, formatTime(base.Add(100*time.Millisecond)), formatTime(base.Add(150*time.Millisecond)))
	assert.Equal(t, base, parseTime(formatTime(base)))
}

func TestConcurrentMealWritesKeepTotalsConsistent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const writers, perWriter = 8, 10
	var g errgroup.Group
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				m := meal("u1", "2026-04-01", models.MealSnack, 10)
				if _, err := s.CreateMeal(ctx, m); err != nil {
					return err
				}
				if i%3 == 0 {
					if _, _, err := s.DeleteMeal(ctx, "u1", m.ID); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	meals, err := s.ListMeals(ctx, "u1", models.MealFilter{Date: "2026-04-01"})
	require.NoError(t, err)
	var sum models.Nutrition
	for _, m := range meals {
		sum = sum.Add(m.Nutrition)
	}

	log, err := s.GetDailyLog(ctx, "u1", "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, len(meals), log.MealCount)
	assert.Equal(t, sum.Rounded(), log.Totals)
	assert.Equal(t, writers*(perWriter-4), log.MealCount)
}

func TestExportImportUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAccount(ctx, "ani@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, testUser(a.ID)))
	for _, m := range []*models.Meal{
		meal(a.ID, "2026-05-01", models.MealLunch, 400),
		meal(a.ID, "2026-05-02", models.MealDinner, 800),
	} {
		_, err := s.CreateMeal(ctx, m)
		require.NoError(t, err)
	}

	archive, err := s.ExportUser(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, archive.Account)
	assert.Equal(t, "hash", archive.Account.PasswordHash)
	assert.Len(t, archive.Meals, 2)

	other := newTestStore(t)
	require.NoError(t, other.ImportUser(ctx, archive))
	// Importing twice replaces rather than duplicates.
	require.NoError(t, other.ImportUser(ctx, archive))

	acc, err := other.GetAccountByEmail(ctx, "ani@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, acc.ID)

	logs, err := other.ListDailyLogs(ctx, a.ID, models.DailyLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 800.0, logs[0].Totals.Calories)

	_, err = s.ExportUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, other.ImportUser(ctx, &models.UserArchive{}))
}

func TestExportImportAccountWithoutProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	onboarded, err := s.CreateAccount(ctx, "ani@example.com", "hash-ani")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, testUser(onboarded.ID)))
	fresh, err := s.CreateAccount(ctx, "rudi@example.com", "hash-rudi")
	require.NoError(t, err)
	_, err = s.CreateMeal(ctx, meal(fresh.ID, "2026-05-03", models.MealBreakfast, 350))
	require.NoError(t, err)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{onboarded.ID, fresh.ID}, ids)

	archive, err := s.ExportUser(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, archive.ID())
	assert.Nil(t, archive.User)
	require.NotNil(t, archive.Account)
	assert.Len(t, archive.Meals, 1)

	other := newTestStore(t)
	require.NoError(t, other.ImportUser(ctx, archive))
	acc, err := other.GetAccountByEmail(ctx, "rudi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-rudi", acc.PasswordHash)
	_, err = other.GetUser(ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	log, err := other.GetDailyLog(ctx, fresh.ID, "2026-05-03")
	require.NoError(t, err)
	assert.Equal(t, 350.0, log.Totals.Calories)

	archive.Account.ID = onboarded.ID
	assert.Error(t, other.ImportUser(ctx, archive), "records must belong to the archive's user")
}
