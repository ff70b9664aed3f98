package models

import "time"

// User is a profile created by onboarding. The ID is the account ID.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	DateOfBirth  string       `json:"dateOfBirth"` // YYYY-MM-DD
	Gender       string       `json:"gender"`      // male, female
	Measurements Measurements `json:"measurements"`
	Goals        Goals        `json:"goals"`
	Settings     Settings     `json:"settings"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type Measurements struct {
	Height    float64   `json:"height"` // cm
	Weight    float64   `json:"weight"` // kg
	UpdatedAt time.Time `json:"updatedAt"`
}

// Goals holds the chosen activity level and goal plus the targets derived
// from them.
type Goals struct {
	ActivityLevel  string    `json:"activityLevel"`
	NutritionGoal  string    `json:"nutritionGoal"`
	TargetCalories int       `json:"targetCalories"`
	TargetProtein  float64   `json:"targetProtein"`
	TargetCarbs    float64   `json:"targetCarbs"`
	TargetFat      float64   `json:"targetFat"`
	BMR            int       `json:"bmr"`
	TDEE           int       `json:"tdee"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Settings struct {
	Units         string `json:"units"` // metric, imperial
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"` // light, dark, system
}

// DefaultSettings are applied to every new profile.
func DefaultSettings() Settings {
	return Settings{Units: "metric", Notifications: true, Theme: "system"}
}

// CreateUserRequest is the onboarding questionnaire.
type CreateUserRequest struct {
	Name          string  `json:"name"`
	DateOfBirth   string  `json:"dateOfBirth"`
	Gender        string  `json:"gender"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	ActivityLevel string  `json:"activityLevel,omitempty"`
	NutritionGoal string  `json:"nutritionGoal,omitempty"`
}

type UpdateUserRequest struct {
	Name        *string  `json:"name,omitempty"`
	DateOfBirth *string  `json:"dateOfBirth,omitempty"`
	Gender      *string  `json:"gender,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
}

type UpdateGoalsRequest struct {
	ActivityLevel *string `json:"activityLevel,omitempty"`
	NutritionGoal *string `json:"nutritionGoal,omitempty"`
}

type UpdateSettingsRequest struct {
	Units         *string `json:"units,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	Theme         *string `json:"theme,omitempty"`
}

// Account is the login identity behind a profile.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session statuses.
const (
	SessionActive    = "active"
	SessionLoggedOut = "logged_out"
)

type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
