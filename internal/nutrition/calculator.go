// Package nutrition derives daily energy and macronutrient targets from a
// user's biometrics and reports progress against them.
package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidGender   = errors.New("gender must be male or female")
	ErrInvalidActivity = errors.New("unknown activity level")
	ErrInvalidGoal     = errors.New("unknown nutrition goal")
	ErrInvalidDOB      = errors.New("date of birth must be a past date in YYYY-MM-DD form")
	ErrOutOfRange      = errors.New("value out of range")
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}

type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

var multipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

// Multiplier is the TDEE factor for a. Unknown levels count as moderate.
func (a ActivityLevel) Multiplier() float64 {
	if m, ok := multipliers[a]; ok {
		return m
	}
	return multipliers[Moderate]
}

// ParseActivityLevel accepts the canonical names, with spaces or
// underscores and any case, plus the long forms "lightly_active",
// "moderately_active" and "extremely_active". Names map by value, not by
// position in the mobile app's five-level list: "very_active" is always the
// 1.9 level, and the app's 1.725 level must be sent as "active".
func ParseActivityLevel(s string) (ActivityLevel, error) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch k {
	case "sedentary":
		return Sedentary, nil
	case "light", "lightly_active":
		return Light, nil
	case "moderate", "moderately_active":
		return Moderate, nil
	case "active":
		return Active, nil
	case "very_active", "extremely_active":
		return VeryActive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidActivity, s)
}

type Goal string

const (
	Lose     Goal = "lose"
	Maintain Goal = "maintain"
	Gain     Goal = "gain"
)

func ParseGoal(s string) (Goal, error) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch k {
	case "lose", "lose_weight":
		return Lose, nil
	case "maintain", "maintain_weight":
		return Maintain, nil
	case "gain", "gain_weight":
		return Gain, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGoal, s)
}

// Profile is the calculator input.
type Profile struct {
	WeightKg float64
	HeightCm float64
	Age      int
	Gender   Gender
	Activity ActivityLevel
	Goal     Goal
}

// Validate checks biometric bounds and enum values.
func (p Profile) Validate() error {
	switch {
	case p.WeightKg <= 0 || p.WeightKg > 500:
		return fmt.Errorf("%w: weight must be in (0, 500] kg, got %v", ErrOutOfRange, p.WeightKg)
	case p.HeightCm <= 0 || p.HeightCm > 300:
		return fmt.Errorf("%w: height must be in (0, 300] cm, got %v", ErrOutOfRange, p.HeightCm)
	case p.Age < 1 || p.Age > 150:
		return fmt.Errorf("%w: age must be in [1, 150], got %d", ErrOutOfRange, p.Age)
	case p.Gender != Male && p.Gender != Female:
		return ErrInvalidGender
	}
	if _, ok := multipliers[p.Activity]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidActivity, p.Activity)
	}
	switch p.Goal {
	case Lose, Maintain, Gain:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGoal, p.Goal)
	}
	return nil
}

// Macros are daily gram targets.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

type Targets struct {
	BMR      int    `json:"bmr"`
	TDEE     int    `json:"tdee"`
	Calories int    `json:"targetCalories"`
	Macros   Macros `json:"macros"`
}

// kcal per gram
const (
	kcalProtein = 4
	kcalCarbs   = 4
	kcalFat     = 9
)

// BMR is the Harris-Benedict basal metabolic rate in kcal.
func BMR(weightKg, heightCm float64, age int, g Gender) int {
	a := float64(age)
	if g == Male {
		return round(88.362 + 13.397*weightKg + 4.799*heightCm - 5.677*a)
	}
	return round(447.593 + 9.247*weightKg + 3.098*heightCm - 4.330*a)
}

func TDEE(bmr int, a ActivityLevel) int {
	return round(float64(bmr) * a.Multiplier())
}

// TargetCalories applies a 20% deficit to lose and a 10% surplus to gain.
func TargetCalories(tdee int, goal Goal) int {
	switch goal {
	case Lose:
		return round(float64(tdee) * 0.8)
	case Gain:
		return round(float64(tdee) * 1.1)
	default:
		return tdee
	}
}

// MacroSplit assigns 30% of calories to protein (25% when gaining), 25% to
// fat and the rest to carbs.
func MacroSplit(calories int, goal Goal) Macros {
	proteinShare := 0.30
	if goal == Gain {
		proteinShare = 0.25
	}
	const fatShare = 0.25
	carbsShare := 1 - proteinShare - fatShare

	c := float64(calories)
	return Macros{
		Protein: float64(round(c * proteinShare / kcalProtein)),
		Carbs:   float64(round(c * carbsShare / kcalCarbs)),
		Fat:     float64(round(c * fatShare / kcalFat)),
	}
}

// Calculate validates p and returns its full set of targets.
func Calculate(p Profile) (Targets, error) {
	if err := p.Validate(); err != nil {
		return Targets{}, err
	}
	bmr := BMR(p.WeightKg, p.HeightCm, p.Age, p.Gender)
	tdee := TDEE(bmr, p.Activity)
	cal := TargetCalories(tdee, p.Goal)
	return Targets{BMR: bmr, TDEE: tdee, Calories: cal, Macros: MacroSplit(cal, p.Goal)}, nil
}

// Shares is the percentage of energy contributed by each macro.
type Shares struct {
	Protein float64
	Carbs   float64
	Fat     float64
}

// Percentages splits calories between macros. When calories is not positive
// the total is taken from the macros themselves.
func Percentages(calories, protein, carbs, fat float64) Shares {
	total := calories
	if total <= 0 {
		total = protein*kcalProtein + carbs*kcalCarbs + fat*kcalFat
	}
	if total <= 0 {
		return Shares{}
	}
	return Shares{
		Protein: protein * kcalProtein / total * 100,
		Carbs:   carbs * kcalCarbs / total * 100,
		Fat:     fat * kcalFat / total * 100,
	}
}

// Remaining is the calories left for the day, never negative.
func Remaining(target int, consumed float64) int {
	r := round(float64(target) - consumed)
	if r < 0 {
		return 0
	}
	return r
}

// Progress is consumed as a percentage of target, capped at 100.
func Progress(consumed, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(consumed/target*100, 100)
}

// Age returns whole years between dob and now.
func Age(dob string, now time.Time) (int, error) {
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDOB, err)
	}
	if !born.Before(now) {
		return 0, ErrInvalidDOB
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, nil
}

func round(v float64) int { return int(math.Round(v)) }
