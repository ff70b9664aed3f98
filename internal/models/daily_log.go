package models

import "time"

// DateLayout is the calendar date format used for meals and daily logs.
const DateLayout = "2006-01-02"

// DailyLog aggregates one user's meals for one date.
type DailyLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	Totals    Nutrition `json:"totals"`
	MealCount int       `json:"mealCount"`
	Meals     []*Meal   `json:"meals,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Progress compares a log's totals with the user's targets.
type Progress struct {
	TargetCalories    int              `json:"targetCalories"`
	RemainingCalories int              `json:"remainingCalories"`
	Calories          float64          `json:"calories"` // percent of target, capped at 100
	Protein           float64          `json:"protein"`
	Carbs             float64          `json:"carbs"`
	Fat               float64          `json:"fat"`
	MacroShare        MacroPercentages `json:"macroShare"`
}

type MacroPercentages struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

type DailyLogFilter struct {
	From  string
	To    string
	Limit int
}

type DailyLogsResponse struct {
	Logs  []*DailyLog `json:"logs"`
	Count int         `json:"count"`
}

// ArchiveVersion is written into every UserArchive.
const ArchiveVersion = 2

// UserArchive is the unit of backup and restore. It is keyed by the account
// ID; User is nil for accounts that never completed onboarding.
type UserArchive struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	UserID     string           `json:"user_id"`
	Account    *ArchivedAccount `json:"account,omitempty"`
	User       *User            `json:"user,omitempty"`
	Meals      []*Meal          `json:"meals"`
}

// ID is the account the archive belongs to. Version 1 archives carry no
// user_id and always have a profile.
func (a *UserArchive) ID() string {
	switch {
	case a.UserID != "":
		return a.UserID
	case a.User != nil:
		return a.User.ID
	case a.Account != nil:
		return a.Account.ID
	}
	return ""
}

// ArchivedAccount carries the login identity, including the password hash,
// inside an encrypted archive.
type ArchivedAccount struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
