package api

import (
	"net/http"
	"time"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/models"
)

// HealthHandler reports liveness and database reachability.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":  status,
		"service": "nutritrack",
		"version": s.opts.Version,
		"time":    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// GetTimeHandler returns the current server time in RFC3339 format
func (s *Server) GetTimeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"time": s.now().UTC().Format(time.RFC3339)})
}

func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), auth.Token(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
