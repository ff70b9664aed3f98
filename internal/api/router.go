package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every route. Handlers behind requireAuth see the user
// ID through auth.UserID.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(routeRecorder)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/ping", s.PingHandler).Methods("GET")
	v1.HandleFunc("/time", s.GetTimeHandler).Methods("GET")

	v1.HandleFunc("/auth/register", s.RegisterHandler).Methods("POST")
	v1.HandleFunc("/auth/login", s.LoginHandler).Methods("POST")
	v1.Handle("/auth/logout", s.requireAuth(s.LogoutHandler)).Methods("POST")

	v1.Handle("/users", s.requireAuth(s.CreateUserHandler)).Methods("POST")
	v1.Handle("/users/me", s.requireAuth(s.GetMeHandler)).Methods("GET")
	v1.Handle("/users/me", s.requireAuth(s.UpdateMeHandler)).Methods("PUT")
	v1.Handle("/users/me", s.requireAuth(s.DeleteMeHandler)).Methods("DELETE")
	v1.Handle("/users/me/goals", s.requireAuth(s.UpdateGoalsHandler)).Methods("PUT")
	v1.Handle("/users/me/settings", s.requireAuth(s.UpdateSettingsHandler)).Methods("PUT")

	v1.Handle("/foods", s.requireAuth(s.SearchFoodsHandler)).Methods("GET")
	v1.Handle("/foods", s.requireAuth(s.CreateFoodHandler)).Methods("POST")
	v1.Handle("/foods/barcode/{barcode}", s.requireAuth(s.FoodByBarcodeHandler)).Methods("GET")
	v1.Handle("/foods/category/{category}", s.requireAuth(s.FoodsByCategoryHandler)).Methods("GET")
	v1.Handle("/foods/{id}", s.requireAuth(s.GetFoodHandler)).Methods("GET")
	v1.Handle("/foods/{id}", s.requireAuth(s.UpdateFoodHandler)).Methods("PUT")
	v1.Handle("/foods/{id}", s.requireAuth(s.DeleteFoodHandler)).Methods("DELETE")

	v1.Handle("/meals", s.requireAuth(s.ListMealsHandler)).Methods("GET")
	v1.Handle("/meals", s.requireAuth(s.CreateMealHandler)).Methods("POST")
	v1.Handle("/meals/{id}", s.requireAuth(s.GetMealHandler)).Methods("GET")
	v1.Handle("/meals/{id}", s.requireAuth(s.UpdateMealHandler)).Methods("PUT")
	v1.Handle("/meals/{id}", s.requireAuth(s.DeleteMealHandler)).Methods("DELETE")

	v1.Handle("/daily-logs", s.requireAuth(s.ListDailyLogsHandler)).Methods("GET")
	v1.Handle("/daily-logs/{date}", s.requireAuth(s.GetDailyLogHandler)).Methods("GET")

	return r
}
