package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/crypto"
	"github.com/harrylevesque/nutritrack/internal/events"
	"github.com/harrylevesque/nutritrack/internal/metrics"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

const adminEmail = "admin@nutritrack.app"

type testEnv struct {
	t       *testing.T
	srv     *httptest.Server
	api     *Server
	store   *storage.Store
	events  *events.Recorder
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Seed(context.Background())
	require.NoError(t, err)

	authSvc, err := auth.NewService(st, crypto.MustRandom(crypto.KeySize), time.Hour,
		[]string{adminEmail}, auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	rec := &events.Recorder{}
	m := metrics.New()
	s := NewServer(Deps{Store: st, Auth: authSvc, Events: rec, Metrics: m, Logger: zap.NewNop()},
		Options{Version: "test", AllowedOrigins: []string{"https://app.nutritrack.test"}})
	s.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{t: t, srv: srv, api: s, store: st, events: rec, metrics: m}
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (e *testEnv) do(method, path, token string, body, out any) *http.Response {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if out != nil && len(data) > 0 {
		require.NoError(e.t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp
}

func (e *testEnv) register(email string) string {
	e.t.Helper()
	var tok models.TokenResponse
	resp := e.do("POST", "/api/v1/auth/register", "", models.CredentialsRequest{Email: email, Password: "password123"}, &tok)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return tok.Token
}

func (e *testEnv) onboard(token string) *models.User {
	e.t.Helper()
	var u models.User
	resp := e.do("POST", "/api/v1/users", token, models.CreateUserRequest{
		Name: "Budi", DateOfBirth: "1996-03-10", Gender: "male", Height: 180, Weight: 80,
		ActivityLevel: "moderately_active", NutritionGoal: "maintain_weight",
	}, &u)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return &u
}

type errorBody struct {
	Error string `json:"error"`
}

func TestHealthPingTime(t *testing.T) {
	e := newTestEnv(t)

	var health map[string]string
	resp := e.do("GET", "/health", "", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "nutritrack", health["service"])
	assert.Equal(t, "test", health["version"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var pong map[string]string
	e.do("GET", "/api/v1/ping", "", nil, &pong)
	assert.Equal(t, "pong", pong["message"])

	var now map[string]string
	e.do("GET", "/api/v1/time", "", nil, &now)
	assert.Equal(t, "2026-03-10T12:00:00Z", now["time"])

	var nf errorBody
	resp = e.do("GET", "/api/v1/nope", "", nil, &nf)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "route not found", nf.Error)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("siti@example.com")

	var eb errorBody
	resp := e.do("POST", "/api/v1/auth/register", "", models.CredentialsRequest{Email: "siti@example.com", Password: "password123"}, &eb)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do("POST", "/api/v1/auth/register", "", models.CredentialsRequest{Email: "x@example.com", Password: "short"}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do("POST", "/api/v1/auth/register", "", models.CredentialsRequest{Email: "x@example.com", Password: strings.Repeat("a", 73)}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.ErrPasswordTooLong.Error(), eb.Error)

	resp = e.do("POST", "/api/v1/auth/login", "", models.CredentialsRequest{Email: "siti@example.com", Password: "wrongpass"}, &eb)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var login models.TokenResponse
	resp = e.do("POST", "/api/v1/auth/login", "", models.CredentialsRequest{Email: "siti@example.com", Password: "password123"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do("POST", "/api/v1/auth/logout", login.Token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do("GET", "/api/v1/meals", login.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do("GET", "/api/v1/meals", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "other sessions stay valid")

	resp = e.do("GET", "/api/v1/meals", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do("POST", "/api/v1/auth/login", "", "not an object", &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOnboardingAndProfile(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("budi@example.com")

	var eb errorBody
	resp := e.do("GET", "/api/v1/users/me", token, nil, &eb)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	u := e.onboard(token)
	assert.Equal(t, "budi@example.com", u.Email)
	assert.Equal(t, "moderate", u.Goals.ActivityLevel)
	assert.Equal(t, "maintain", u.Goals.NutritionGoal)
	assert.Equal(t, 1854, u.Goals.BMR)
	assert.Equal(t, 2874, u.Goals.TDEE)
	assert.Equal(t, 2874, u.Goals.TargetCalories)
	assert.Equal(t, 216.0, u.Goals.TargetProtein)
	assert.Equal(t, models.DefaultSettings(), u.Settings)

	resp = e.do("POST", "/api/v1/users", token, models.CreateUserRequest{
		Name: "Budi", DateOfBirth: "1996-03-10", Gender: "male", Height: 180, Weight: 80,
	}, &eb)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var goals models.User
	lose := "lose_weight"
	resp = e.do("PUT", "/api/v1/users/me/goals", token, models.UpdateGoalsRequest{NutritionGoal: &lose}, &goals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2299, goals.Goals.TargetCalories)

	var updated models.User
	weight := 70.0
	resp = e.do("PUT", "/api/v1/users/me", token, models.UpdateUserRequest{Weight: &weight}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 70.0, updated.Measurements.Weight)
	assert.Less(t, updated.Goals.BMR, 1854, "targets follow the new weight")

	bad := 900.0
	resp = e.do("PUT", "/api/v1/users/me", token, models.UpdateUserRequest{Weight: &bad}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	future := "2030-01-01"
	resp = e.do("PUT", "/api/v1/users/me", token, models.UpdateUserRequest{DateOfBirth: &future}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var settings models.User
	dark, off := "dark", false
	resp = e.do("PUT", "/api/v1/users/me/settings", token, models.UpdateSettingsRequest{Theme: &dark, Notifications: &off}, &settings)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dark", settings.Settings.Theme)
	assert.False(t, settings.Settings.Notifications)

	neon := "neon"
	resp = e.do("PUT", "/api/v1/users/me/settings", token, models.UpdateSettingsRequest{Theme: &neon}, &eb)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do("DELETE", "/api/v1/users/me", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do("GET", "/api/v1/users/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "deleting the account ends its sessions")
}

func TestOnboardingValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.register("valid@example.com")

	cases := map[string]models.CreateUserRequest{
		"missing name": {DateOfBirth: "1990-01-01", Gender: "female", Height: 160, Weight: 50},
		"bad gender":   {Name: "A", DateOfBirth: "1990-01-01", Gender: "x", Height: 160, Weight: 50},
		"bad dob":      {Name: "A", DateOfBirth: "01/01/1990", Gender: "female", Height: 160, Weight: 50},
		"zero height":  {Name: "A", DateOfBirth: "1990-01-01", Gender: "female", Weight: 50},
		"bad activity": {Name: "A", DateOfBirth: "1990-01-01", Gender: "female", Height: 160, Weight: 50, ActivityLevel: "couch"},
		"bad goal":     {Name: "A", DateOfBirth: "1990-01-01", Gender: "female", Height: 160, Weight: 50, NutritionGoal: "bulk"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			var eb errorBody
			resp := e.do("POST", "/api/v1/users", token, req, &eb)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, eb.Error)
		})
	}
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodOptions, e.srv.URL+"/api/v1/meals", nil)
	req.Header.Set("Origin", "https://app.nutritrack.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.nutritrack.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/ping", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp, err = e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	e := newTestEnv(t)
	h := e.api.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	e := newTestEnv(t)
	core, logs := observer.New(zap.InfoLevel)
	e.api.log = zap.New(core)
	panics := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := e.api.requestLogger(e.api.recoverer(panics))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	assert.Equal(t, 1, logs.FilterMessage("panic serving request").Len())
	access := logs.FilterMessage("request").All()
	require.Len(t, access, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])

	m := httptest.NewRecorder()
	e.metrics.Handler().ServeHTTP(m, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, m.Body.String(),
		`nutritrack_http_requests_total{method="GET",route="unmatched",status="500"} 1`)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do("GET", "/api/v1/ping", "", nil, nil)

	resp, err := e.srv.Client().Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `route="/api/v1/ping"`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}
