package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/nutritrack/internal/events"
	"github.com/harrylevesque/nutritrack/internal/models"
)

func (e *testEnv) foodID(token, query string) string {
	e.t.Helper()
	var res models.FoodSearchResponse
	resp := e.do("GET", "/api/v1/foods?q="+query, token, nil, &res)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(e.t, res.Foods)
	return res.Foods[0].ID
}

func TestMealLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("meals@example.com")
	e.onboard(token)
	banana := e.foodID(token, "pisang")

	var fromFood models.Meal
	resp := e.do("POST", "/api/v1/meals", token, models.CreateMealRequest{
		FoodID: banana, MealType: "Breakfast", Portion: 2, Date: "2026-03-10",
	}, &fromFood)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Banana", fromFood.FoodName)
	assert.Equal(t, models.MealBreakfast, fromFood.MealType)
	assert.InDelta(t, 178, fromFood.Nutrition.Calories, 0.001)
	assert.InDelta(t, 2.2, fromFood.Nutrition.Protein, 0.001)

	var custom models.Meal
	resp = e.do("POST", "/api/v1/meals", token, models.CreateMealRequest{
		FoodName: "Nasi Goreng", MealType: "lunch", Portion: 1.5,
		Nutrition: &models.Nutrition{Calories: 300, Protein: 10, Carbs: 40, Fat: 12},
	}, &custom)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "2026-03-10", custom.Date, "date defaults to today")
	assert.InDelta(t, 450, custom.Nutrition.Calories, 0.001)
	assert.InDelta(t, 18, custom.Nutrition.Fat, 0.001)

	var day models.DailyLog
	resp = e.do("GET", "/api/v1/daily-logs/2026-03-10", token, nil, &day)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, day.MealCount)
	assert.Len(t, day.Meals, 2)
	assert.InDelta(t, 628, day.Totals.Calories, 0.001)
	require.NotNil(t, day.Progress)
	assert.Equal(t, 2874, day.Progress.TargetCalories)
	assert.Equal(t, 2246, day.Progress.RemainingCalories)

	other := e.register("other@example.com")
	resp = e.do("GET", "/api/v1/meals/"+custom.ID, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = e.do("DELETE", "/api/v1/meals/"+custom.ID, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A new portion is recomputed from the catalogue entry.
	one := 1.0
	var rescaled models.Meal
	resp = e.do("PUT", "/api/v1/meals/"+fromFood.ID, token, models.UpdateMealRequest{Portion: &one}, &rescaled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 89, rescaled.Nutrition.Calories, 0.001)

	// Custom entries scale by the portion ratio.
	three := 3.0
	resp = e.do("PUT", "/api/v1/meals/"+custom.ID, token, models.UpdateMealRequest{Portion: &three}, &rescaled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 900, rescaled.Nutrition.Calories, 0.001)

	moved := "2026-03-09"
	resp = e.do("PUT", "/api/v1/meals/"+fromFood.ID, token, models.UpdateMealRequest{Date: &moved}, &rescaled)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do("GET", "/api/v1/daily-logs/2026-03-09", token, nil, &day)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, day.MealCount)
	assert.InDelta(t, 89, day.Totals.Calories, 0.001)
	day = models.DailyLog{}
	e.do("GET", "/api/v1/daily-logs/2026-03-10", token, nil, &day)
	assert.Equal(t, 1, day.MealCount)
	assert.InDelta(t, 900, day.Totals.Calories, 0.001)

	resp = e.do("DELETE", "/api/v1/meals/"+custom.ID, token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	day = models.DailyLog{}
	resp = e.do("GET", "/api/v1/daily-logs/2026-03-10", token, nil, &day)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, day.MealCount)
	assert.Zero(t, day.Totals.Calories)
	assert.Empty(t, day.Meals)
	require.NotNil(t, day.Progress)
	assert.Equal(t, 2874, day.Progress.RemainingCalories)

	var logs models.DailyLogsResponse
	resp = e.do("GET", "/api/v1/daily-logs?from=2026-03-01&to=2026-03-31", token, nil, &logs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, logs.Count)
	assert.Equal(t, "2026-03-09", logs.Logs[0].Date)
	assert.NotNil(t, logs.Logs[0].Progress)

	subjects := e.events.Subjects()
	assert.Contains(t, subjects, events.SubjectMealCreated)
	assert.Contains(t, subjects, events.SubjectMealUpdated)
	assert.Contains(t, subjects, events.SubjectMealDeleted)
	assert.Contains(t, subjects, events.SubjectDailyLogUpdated)
}

func TestListMealsFilters(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("filters@example.com")
	rice := e.foodID(token, "nasi")

	for _, req := range []models.CreateMealRequest{
		{FoodID: rice, MealType: "lunch", Date: "2026-03-08"},
		{FoodID: rice, MealType: "dinner", Date: "2026-03-08"},
		{FoodID: rice, MealType: "lunch", Date: "2026-03-09"},
	} {
		resp := e.do("POST", "/api/v1/meals", token, req, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var list models.MealListResponse
	e.do("GET", "/api/v1/meals?date=2026-03-08", token, nil, &list)
	assert.Equal(t, 2, list.Count)
	e.do("GET", "/api/v1/meals?mealType=lunch", token, nil, &list)
	assert.Equal(t, 2, list.Count)
	e.do("GET", "/api/v1/meals?from=2026-03-09&to=2026-03-31", token, nil, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "2026-03-09", list.Meals[0].Date)
	e.do("GET", "/api/v1/meals?limit=1", token, nil, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "2026-03-09", list.Meals[0].Date, "newest date first")

	var logs models.DailyLogsResponse
	e.do("GET", "/api/v1/daily-logs", token, nil, &logs)
	require.Equal(t, 2, logs.Count)
	assert.Nil(t, logs.Logs[0].Progress, "no progress before onboarding")

	for _, q := range []string{
		"date=2026-03-08&from=2026-03-01",
		"date=2026-02-30",
		"from=2026-03-10&to=2026-03-01",
		"mealType=brunch",
		"limit=0",
	} {
		resp := e.do("GET", "/api/v1/meals?"+q, token, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestCreateMealValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("invalid@example.com")
	rice := e.foodID(token, "nasi")

	cases := map[string]models.CreateMealRequest{
		"no food":        {MealType: "lunch"},
		"unknown food":   {FoodID: "missing", MealType: "lunch"},
		"bad meal type":  {FoodID: rice, MealType: "brunch"},
		"huge portion":   {FoodID: rice, MealType: "lunch", Portion: 101},
		"negative":       {FoodID: rice, MealType: "lunch", Portion: -1},
		"bad date":       {FoodID: rice, MealType: "lunch", Date: "10-03-2026"},
		"no nutrition":   {FoodName: "Soto", MealType: "lunch"},
		"negative value": {FoodName: "Soto", MealType: "lunch", Nutrition: &models.Nutrition{Calories: -5}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			resp := e.do("POST", "/api/v1/meals", token, req, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	var m models.Meal
	resp := e.do("POST", "/api/v1/meals", token, models.CreateMealRequest{FoodID: rice, MealType: "snack"}, &m)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1.0, m.Portion, "portion defaults to one serving")

	zero := 0.0
	resp = e.do("PUT", "/api/v1/meals/"+m.ID, token, models.UpdateMealRequest{Portion: &zero}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do("PUT", "/api/v1/meals/missing", token, models.UpdateMealRequest{MealType: &m.MealType}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
