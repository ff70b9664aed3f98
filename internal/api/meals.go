package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/events"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

const (
	defaultMealLimit = 100
	maxMealLimit     = 500
	maxPortion       = 100
)

var errMealNotFound = newError(http.StatusNotFound, "meal not found")

func checkPortion(p float64) error {
	if p <= 0 || p > maxPortion {
		return badRequest("portion must be in (0, %d]", maxPortion)
	}
	return nil
}

func checkMealType(t string) (string, error) {
	mt, ok := models.ParseMealType(t)
	if !ok {
		return "", badRequest("mealType must be breakfast, lunch, dinner or snack")
	}
	return mt, nil
}

// ListMealsHandler serves GET /meals?date=|from=&to=&mealType=&limit=.
func (s *Server) ListMealsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f models.MealFilter
	if d := q.Get("date"); d != "" {
		if q.Get("from") != "" || q.Get("to") != "" {
			s.writeError(w, r, badRequest("use either date or from/to"))
			return
		}
		if err := checkDate("date", d); err != nil {
			s.writeError(w, r, err)
			return
		}
		f.Date = d
	}
	var err error
	if f.From, f.To, err = dateRange(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	if mt := q.Get("mealType"); mt != "" {
		if f.MealType, err = checkMealType(mt); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if f.Limit, err = queryInt(r, "limit", defaultMealLimit, 1, maxMealLimit); err != nil {
		s.writeError(w, r, err)
		return
	}

	meals, err := s.store.ListMeals(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MealListResponse{Meals: meals, Count: len(meals)})
}

// CreateMealHandler logs a catalogue food (foodId, nutrition scaled by
// portion) or a custom entry (foodName plus per-portion nutrition).
func (s *Server) CreateMealHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)

	var req models.CreateMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.newMeal(r, uid, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log, err := s.store.CreateMeal(ctx, m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.MealLogged(m.MealType)
	}
	s.publish(ctx, events.SubjectMealCreated, events.MealEvent{UserID: uid, Meal: m, OccurredAt: s.now().UTC()})
	s.publishLogs(ctx, uid, log)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) newMeal(r *http.Request, uid string, req *models.CreateMealRequest) (*models.Meal, error) {
	mealType, err := checkMealType(req.MealType)
	if err != nil {
		return nil, err
	}
	portion := req.Portion
	if portion == 0 {
		portion = 1
	}
	if err := checkPortion(portion); err != nil {
		return nil, err
	}

	m := &models.Meal{UserID: uid, MealType: mealType, Portion: portion, ImageURL: req.ImageURL}
	if req.Timestamp != nil {
		m.Timestamp = req.Timestamp.UTC()
	}
	switch {
	case req.Date != "":
		if err := checkDate("date", req.Date); err != nil {
			return nil, err
		}
		m.Date = req.Date
	case req.Timestamp != nil:
		m.Date = req.Timestamp.Format(models.DateLayout)
	default:
		m.Date = s.today()
	}

	switch {
	case req.FoodID != "":
		food, err := s.store.GetFood(r.Context(), req.FoodID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, badRequest("unknown foodId %q", req.FoodID)
		}
		if err != nil {
			return nil, err
		}
		m.FoodID = food.ID
		m.FoodName = food.Name
		m.Nutrition = food.Nutrition.Scale(portion)
		if m.ImageURL == "" {
			m.ImageURL = food.ImageURL
		}
	case strings.TrimSpace(req.FoodName) != "":
		if req.Nutrition == nil {
			return nil, badRequest("nutrition is required for a custom food")
		}
		if req.Nutrition.Negative() {
			return nil, badRequest("nutrition values must not be negative")
		}
		m.FoodName = strings.TrimSpace(req.FoodName)
		m.Nutrition = req.Nutrition.Scale(portion)
	default:
		return nil, badRequest("either foodId or foodName is required")
	}
	return m, nil
}

func (s *Server) GetMealHandler(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMeal(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		err = errMealNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMealHandler changes date, meal type, portion or per-portion
// nutrition. A new portion rescales the stored nutrition.
func (s *Server) UpdateMealHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)
	id := mux.Vars(r)["id"]

	var req models.UpdateMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Date != nil {
		if err := checkDate("date", *req.Date); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	var mealType string
	if req.MealType != nil {
		var err error
		if mealType, err = checkMealType(*req.MealType); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Portion != nil {
		if err := checkPortion(*req.Portion); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Nutrition != nil && req.Nutrition.Negative() {
		s.writeError(w, r, badRequest("nutrition values must not be negative"))
		return
	}

	// The catalogue entry is read before the write transaction starts.
	var perPortion *models.Nutrition
	switch {
	case req.Nutrition != nil:
		perPortion = req.Nutrition
	case req.Portion != nil:
		current, err := s.store.GetMeal(ctx, uid, id)
		if errors.Is(err, storage.ErrNotFound) {
			err = errMealNotFound
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if current.FoodID != "" {
			if food, err := s.store.GetFood(ctx, current.FoodID); err == nil {
				perPortion = &food.Nutrition
			}
		}
	}

	m, logs, err := s.store.UpdateMeal(ctx, uid, id, func(m *models.Meal) error {
		if req.Date != nil {
			m.Date = *req.Date
		}
		if req.MealType != nil {
			m.MealType = mealType
		}
		oldPortion := m.Portion
		if req.Portion != nil {
			m.Portion = *req.Portion
		}
		switch {
		case perPortion != nil:
			m.Nutrition = perPortion.Scale(m.Portion)
		case m.Portion != oldPortion && oldPortion > 0:
			m.Nutrition = m.Nutrition.Scale(m.Portion / oldPortion)
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		err = errMealNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(ctx, events.SubjectMealUpdated, events.MealEvent{UserID: uid, Meal: m, OccurredAt: s.now().UTC()})
	s.publishLogs(ctx, uid, logs...)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) DeleteMealHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := auth.UserID(ctx)
	m, log, err := s.store.DeleteMeal(ctx, uid, mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		err = errMealNotFound
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(ctx, events.SubjectMealDeleted, events.MealEvent{UserID: uid, Meal: m, OccurredAt: s.now().UTC()})
	s.publishLogs(ctx, uid, log)
	w.WriteHeader(http.StatusNoContent)
}
