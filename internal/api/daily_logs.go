package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/nutrition"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

const (
	defaultLogLimit = 30
	maxLogLimit     = 366
)

// progressFor compares log totals with the profile's targets.
func progressFor(log *models.DailyLog, g models.Goals) *models.Progress {
	t := log.Totals
	share := nutrition.Percentages(t.Calories, t.Protein, t.Carbs, t.Fat)
	return &models.Progress{
		TargetCalories:    g.TargetCalories,
		RemainingCalories: nutrition.Remaining(g.TargetCalories, t.Calories),
		Calories:          nutrition.Progress(t.Calories, float64(g.TargetCalories)),
		Protein:           nutrition.Progress(t.Protein, g.TargetProtein),
		Carbs:             nutrition.Progress(t.Carbs, g.TargetCarbs),
		Fat:               nutrition.Progress(t.Fat, g.TargetFat),
		MacroShare: models.MacroPercentages{
			Protein: share.Protein,
			Carbs:   share.Carbs,
			Fat:     share.Fat,
		},
	}
}

// goalsFor returns the caller's goals, or nil before onboarding.
func (s *Server) goalsFor(r *http.Request) (*models.Goals, error) {
	u, err := s.store.GetUser(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u.Goals, nil
}

func (s *Server) ListDailyLogsHandler(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultLogLimit, 1, maxLogLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logs, err := s.store.ListDailyLogs(r.Context(), auth.UserID(r.Context()),
		models.DailyLogFilter{From: from, To: to, Limit: limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	goals, err := s.goalsFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if goals != nil {
		for _, l := range logs {
			l.Progress = progressFor(l, *goals)
		}
	}
	writeJSON(w, http.StatusOK, models.DailyLogsResponse{Logs: logs, Count: len(logs)})
}

// GetDailyLogHandler returns one day with its meals. A day without meals is
// an empty log, not an error.
func (s *Server) GetDailyLogHandler(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	date := mux.Vars(r)["date"]
	if err := checkDate("date", date); err != nil {
		s.writeError(w, r, err)
		return
	}

	log, err := s.store.GetDailyLog(r.Context(), uid, date)
	if errors.Is(err, storage.ErrNotFound) {
		log, err = &models.DailyLog{UserID: uid, Date: date, Meals: []*models.Meal{}}, nil
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	goals, err := s.goalsFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if goals != nil {
		log.Progress = progressFor(log, *goals)
	}
	writeJSON(w, http.StatusOK, log)
}
