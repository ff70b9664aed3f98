package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/nutrition"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

// Defaults for onboarding answers the client may skip.
const (
	defaultActivity = nutrition.Moderate
	defaultGoal     = nutrition.Maintain
)

var errNoProfile = newError(http.StatusNotFound, "profile not found; complete onboarding first")

// applyTargets validates the profile fields of u and stores freshly derived
// targets in u.Goals.
func (s *Server) applyTargets(u *models.User) error {
	gender, err := nutrition.ParseGender(u.Gender)
	if err != nil {
		return err
	}
	activity, err := nutrition.ParseActivityLevel(u.Goals.ActivityLevel)
	if err != nil {
		return err
	}
	goal, err := nutrition.ParseGoal(u.Goals.NutritionGoal)
	if err != nil {
		return err
	}
	age, err := nutrition.Age(u.DateOfBirth, s.now())
	if err != nil {
		return err
	}
	t, err := nutrition.Calculate(nutrition.Profile{
		WeightKg: u.Measurements.Weight,
		HeightCm: u.Measurements.Height,
		Age:      age,
		Gender:   gender,
		Activity: activity,
		Goal:     goal,
	})
	if err != nil {
		return err
	}

	u.Gender = string(gender)
	u.Goals.ActivityLevel = string(activity)
	u.Goals.NutritionGoal = string(goal)
	u.Goals.BMR = t.BMR
	u.Goals.TDEE = t.TDEE
	u.Goals.TargetCalories = t.Calories
	u.Goals.TargetProtein = t.Macros.Protein
	u.Goals.TargetCarbs = t.Macros.Carbs
	u.Goals.TargetFat = t.Macros.Fat
	u.Goals.UpdatedAt = s.now().UTC()
	return nil
}

// CreateUserHandler is onboarding: it creates the caller's profile and
// derives their targets.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)

	var req models.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.writeError(w, r, badRequest("name is required"))
		return
	}
	email, err := s.auth.Email(ctx, uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	u := &models.User{
		ID:           uid,
		Email:        email,
		Name:         name,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Measurements: models.Measurements{Height: req.Height, Weight: req.Weight, UpdatedAt: now},
		Goals:        models.Goals{ActivityLevel: req.ActivityLevel, NutritionGoal: req.NutritionGoal},
		Settings:     models.DefaultSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.Goals.ActivityLevel == "" {
		u.Goals.ActivityLevel = string(defaultActivity)
	}
	if u.Goals.NutritionGoal == "" {
		u.Goals.NutritionGoal = string(defaultGoal)
	}
	if err := s.applyTargets(u); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = newError(http.StatusConflict, "profile already exists")
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) loadProfile(r *http.Request) (*models.User, error) {
	u, err := s.store.GetUser(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNoProfile
	}
	return u, err
}

func (s *Server) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := s.loadProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMeHandler applies a partial profile update and recomputes targets.
func (s *Server) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.loadProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			s.writeError(w, r, badRequest("name must not be empty"))
			return
		}
		u.Name = name
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.Height != nil || req.Weight != nil {
		if req.Height != nil {
			u.Measurements.Height = *req.Height
		}
		if req.Weight != nil {
			u.Measurements.Weight = *req.Weight
		}
		u.Measurements.UpdatedAt = now
	}
	s.saveWithTargets(w, r, u)
}

// UpdateGoalsHandler changes activity level and goal and recomputes targets.
func (s *Server) UpdateGoalsHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateGoalsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.loadProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ActivityLevel != nil {
		u.Goals.ActivityLevel = *req.ActivityLevel
	}
	if req.NutritionGoal != nil {
		u.Goals.NutritionGoal = *req.NutritionGoal
	}
	s.saveWithTargets(w, r, u)
}

func (s *Server) saveWithTargets(w http.ResponseWriter, r *http.Request, u *models.User) {
	if err := s.applyTargets(u); err != nil {
		s.writeError(w, r, err)
		return
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.loadProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Units != nil {
		switch *req.Units {
		case "metric", "imperial":
			u.Settings.Units = *req.Units
		default:
			s.writeError(w, r, badRequest("units must be metric or imperial"))
			return
		}
	}
	if req.Theme != nil {
		switch *req.Theme {
		case "light", "dark", "system":
			u.Settings.Theme = *req.Theme
		default:
			s.writeError(w, r, badRequest("theme must be light, dark or system"))
			return
		}
	}
	if req.Notifications != nil {
		u.Settings.Notifications = *req.Notifications
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteMeHandler removes the profile, meals, logs, sessions and account.
func (s *Server) DeleteMeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(r.Context(), auth.UserID(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
