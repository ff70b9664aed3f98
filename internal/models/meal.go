package models

import (
	"strings"
	"time"
)

// Meal types.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// ParseMealType normalizes s. The second result is false for unknown types.
func ParseMealType(s string) (string, bool) {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return t, true
	}
	return "", false
}

// Meal is one logged food entry. Nutrition is already scaled by Portion.
type Meal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FoodID    string    `json:"foodId,omitempty"`
	FoodName  string    `json:"foodName"`
	Date      string    `json:"date"` // YYYY-MM-DD
	MealType  string    `json:"mealType"`
	Portion   float64   `json:"portion"`
	Nutrition Nutrition `json:"nutrition"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateMealRequest logs either a catalogue food (FoodID, nutrition scaled
// server side) or a custom entry (FoodName plus Nutrition for one portion).
type CreateMealRequest struct {
	FoodID    string     `json:"foodId,omitempty"`
	FoodName  string     `json:"foodName,omitempty"`
	Date      string     `json:"date,omitempty"`
	MealType  string     `json:"mealType"`
	Portion   float64    `json:"portion"`
	Nutrition *Nutrition `json:"nutrition,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type UpdateMealRequest struct {
	Date      *string    `json:"date,omitempty"`
	MealType  *string    `json:"mealType,omitempty"`
	Portion   *float64   `json:"portion,omitempty"`
	Nutrition *Nutrition `json:"nutrition,omitempty"`
}

// MealFilter narrows ListMeals. Empty fields match everything.
type MealFilter struct {
	Date     string
	From     string
	To       string
	MealType string
	Limit    int
}

type MealListResponse struct {
	Meals []*Meal `json:"meals"`
	Count int     `json:"count"`
}
